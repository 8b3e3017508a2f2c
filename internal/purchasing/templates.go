package purchasing

import "html/template"

// TemplateFuncs exposes lifecycle helpers to the view engine.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"statusLabel": func(s string) string { return Status(s).Label() },
		"statusColor": func(s string) string { return Status(s).Color() },
	}
}

// ActionButton is a lifecycle button on the order page.
type ActionButton struct {
	Action  Action
	Label   string
	URL     string
	Method  string
	Confirm string
	Primary bool
	Danger  bool
}

// ActionButtons builds the buttons offered for an order.
func ActionButtons(id string, status Status) []ActionButton {
	actions := AvailableActions(status)
	buttons := make([]ActionButton, 0, len(actions))
	for _, a := range actions {
		b := ActionButton{
			Action: a,
			Label:  a.Label(),
			URL:    "/purchase-orders/" + id + "/actions/" + string(a),
			Method: "POST",
		}
		switch a {
		case ActionApprove, ActionSend:
			b.Primary = true
		case ActionReceive:
			b.URL = "/purchase-orders/" + id + "/receive"
			b.Method = "GET"
			b.Primary = true
		case ActionCancel:
			b.Confirm = "Cancel this PO?"
			b.Danger = true
		}
		buttons = append(buttons, b)
	}
	return buttons
}
