package purchasing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAvailableActions(t *testing.T) {
	cases := map[Status][]Action{
		"":                      nil,
		StatusDraft:             {ActionSubmit, ActionCancel},
		StatusPendingApproval:   {ActionApprove, ActionCancel},
		StatusApproved:          {ActionSend, ActionCancel},
		StatusSent:              {ActionReceive, ActionCancel},
		StatusPartiallyReceived: {ActionReceive, ActionCancel},
		StatusReceived:          nil,
		StatusCancelled:         nil,
	}
	for status, want := range cases {
		require.Equal(t, want, AvailableActions(status), string(status))
	}
	require.True(t, Allows(StatusSent, ActionReceive))
	require.False(t, Allows(StatusReceived, ActionCancel))
}

func TestStatusPresentation(t *testing.T) {
	require.Equal(t, "Pending Approval", StatusPendingApproval.Label())
	require.Equal(t, "mystery", Status("mystery").Label())
	require.Equal(t, "default", Status("mystery").Color())
	require.True(t, Status("").Editable())
	require.True(t, StatusDraft.Editable())
	require.False(t, StatusApproved.Editable())
	require.True(t, StatusPartiallyReceived.Receivable())
	require.False(t, StatusApproved.Receivable())
}

func TestParseAction(t *testing.T) {
	action, err := ParseAction("send")
	require.NoError(t, err)
	require.Equal(t, ActionSend, action)
	require.Equal(t, "Mark Sent", action.Label())

	_, err = ParseAction("delete")
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestTabs(t *testing.T) {
	require.Equal(t, "All", TabFor("bogus").Label)
	require.Equal(t, StatusPartiallyReceived, TabFor("partially_received").Status)
	require.Equal(t, "Pending", TabFor("pending_approval").Label)
}

func TestActionButtons(t *testing.T) {
	buttons := ActionButtons("po-1", StatusSent)
	require.Len(t, buttons, 2)
	require.Equal(t, "GET", buttons[0].Method)
	require.Equal(t, "/purchase-orders/po-1/receive", buttons[0].URL)
	require.Equal(t, "Cancel this PO?", buttons[1].Confirm)
	require.Equal(t, "/purchase-orders/po-1/actions/cancel", buttons[1].URL)
	require.Empty(t, ActionButtons("po-1", StatusReceived))
}
