package purchasing

// Status is a purchase order lifecycle state as reported by the API.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusPendingApproval   Status = "pending_approval"
	StatusApproved          Status = "approved"
	StatusSent              Status = "sent"
	StatusPartiallyReceived Status = "partially_received"
	StatusReceived          Status = "received"
	StatusCancelled         Status = "cancelled"
)

var statusLabels = map[Status]string{
	StatusDraft:             "Draft",
	StatusPendingApproval:   "Pending Approval",
	StatusApproved:          "Approved",
	StatusSent:              "Sent",
	StatusPartiallyReceived: "Partially Received",
	StatusReceived:          "Received",
	StatusCancelled:         "Cancelled",
}

var statusColors = map[Status]string{
	StatusDraft:             "default",
	StatusPendingApproval:   "orange",
	StatusApproved:          "blue",
	StatusSent:              "cyan",
	StatusPartiallyReceived: "geekblue",
	StatusReceived:          "green",
	StatusCancelled:         "red",
}

// Label is the human readable status name; unknown values echo back.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Color is the badge color class for the status.
func (s Status) Color() string {
	if color, ok := statusColors[s]; ok {
		return color
	}
	return "default"
}

// Editable reports whether header fields and lines may change.
// The zero status denotes a new, unsaved order.
func (s Status) Editable() bool {
	return s == "" || s == StatusDraft
}

// Receivable reports whether goods may be received against the order.
func (s Status) Receivable() bool {
	return s == StatusSent || s == StatusPartiallyReceived
}

// Action is a user-triggerable lifecycle step.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionSend    Action = "send"
	ActionReceive Action = "receive"
	ActionCancel  Action = "cancel"
)

var actionLabels = map[Action]string{
	ActionSubmit:  "Submit",
	ActionApprove: "Approve",
	ActionSend:    "Mark Sent",
	ActionReceive: "Receive Goods",
	ActionCancel:  "Cancel PO",
}

// Label is the button caption.
func (a Action) Label() string {
	return actionLabels[a]
}

// ParseAction validates a path segment.
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if _, ok := actionLabels[a]; !ok {
		return "", ErrUnknownAction
	}
	return a, nil
}

// AvailableActions lists the buttons offered for status, in display order.
// New orders offer nothing.
func AvailableActions(s Status) []Action {
	var actions []Action
	switch s {
	case StatusDraft:
		actions = append(actions, ActionSubmit)
	case StatusPendingApproval:
		actions = append(actions, ActionApprove)
	case StatusApproved:
		actions = append(actions, ActionSend)
	case StatusSent, StatusPartiallyReceived:
		actions = append(actions, ActionReceive)
	}
	if s != "" && s != StatusReceived && s != StatusCancelled {
		actions = append(actions, ActionCancel)
	}
	return actions
}

// Allows reports whether a is offered for s.
func Allows(s Status, a Action) bool {
	for _, candidate := range AvailableActions(s) {
		if candidate == a {
			return true
		}
	}
	return false
}

// ListTab is a status filter tab on the order list.
type ListTab struct {
	Key    string
	Label  string
	Status Status
}

// ListTabs are the filters shown above the order list.
var ListTabs = []ListTab{
	{Key: "", Label: "All"},
	{Key: "draft", Label: "Draft", Status: StatusDraft},
	{Key: "pending_approval", Label: "Pending", Status: StatusPendingApproval},
	{Key: "approved", Label: "Approved", Status: StatusApproved},
	{Key: "sent", Label: "Sent", Status: StatusSent},
	{Key: "partially_received", Label: "Partial", Status: StatusPartiallyReceived},
	{Key: "received", Label: "Received", Status: StatusReceived},
}

// TabFor resolves a query value to a tab, defaulting to All.
func TabFor(key string) ListTab {
	for _, tab := range ListTabs {
		if tab.Key == key {
			return tab
		}
	}
	return ListTabs[0]
}
