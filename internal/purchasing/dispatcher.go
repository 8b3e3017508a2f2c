package purchasing

import (
	"context"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
)

// Outcome is the result of a dispatched action and its confirmation text.
type Outcome struct {
	Order   erpapi.PurchaseOrder
	Message string
}

type transition struct {
	call    func(API, context.Context, string) (erpapi.PurchaseOrder, error)
	message string
}

var transitions = map[Action]transition{
	ActionSubmit:  {call: API.SubmitPurchaseOrder, message: "Submitted"},
	ActionApprove: {call: API.ApprovePurchaseOrder, message: "Approved"},
	ActionSend:    {call: API.SendPurchaseOrder, message: "Sent"},
	ActionCancel:  {call: API.CancelPurchaseOrder, message: "Cancelled"},
}

// Dispatcher maps a lifecycle button to exactly one remote transition. The
// next status is whatever the server reports; callers re-fetch to display it.
type Dispatcher struct {
	api API
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(api API) *Dispatcher {
	return &Dispatcher{api: api}
}

// Dispatch issues the call for action. Receiving goods is a page of its own
// and is not dispatchable.
func (d *Dispatcher) Dispatch(ctx context.Context, id string, action Action) (Outcome, error) {
	t, ok := transitions[action]
	if !ok {
		return Outcome{}, ErrUnknownAction
	}
	po, err := t.call(d.api, ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Order: po, Message: t.message}, nil
}
