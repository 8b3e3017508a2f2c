package purchasing

import "github.com/odyssey-erp/erp-console/internal/shared"

// Local precondition failures. They are raised before any remote call and
// their text is shown to the user verbatim.
var (
	ErrNoLineItems        = shared.NewUserError("Add at least one line item")
	ErrLineWithoutProduct = shared.NewUserError("Select a product for every line item")
	ErrVendorRequired     = shared.NewUserError("Select a vendor")
	ErrInvalidDate        = shared.NewUserError("Enter dates as YYYY-MM-DD")
	ErrAmountOutOfRange   = shared.NewUserError("Quantities and amounts are too large")
	ErrIncompleteReceipt  = shared.NewUserError("Select a location and quantity for all items")
	ErrNotReceivable      = shared.NewUserError("Select a PO to receive against.")
	ErrNotEditable        = shared.NewUserError("Can only edit draft purchase orders")
	ErrUnknownAction      = shared.NewUserError("Unknown action")
)
