package purchasing

import (
	"errors"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
)

// ReceiptRow is one outstanding line on the goods receipt page. Outstanding
// is fixed when the sheet is derived and never leaves the console.
type ReceiptRow struct {
	LineItemID      string `validate:"required"`
	ProductID       string `validate:"required"`
	Ordered         int    `validate:"-"`
	AlreadyReceived int    `validate:"-"`
	Outstanding     int    `validate:"-"`
	Quantity        int    `validate:"min=1"`
	LocationID      string `validate:"required"`
}

// ReceiptSheet tracks the quantities and locations entered against an order.
type ReceiptSheet struct {
	OrderID  string       `validate:"-"`
	PONumber string       `validate:"-"`
	Notes    string       `validate:"-"`
	Rows     []ReceiptRow `validate:"min=1,dive"`
}

// NewReceiptSheet derives rows for every line still awaiting goods. Each row
// starts at its outstanding quantity with no location.
func NewReceiptSheet(po erpapi.PurchaseOrder) (*ReceiptSheet, error) {
	if !Status(po.Status).Receivable() {
		return nil, ErrNotReceivable
	}
	sheet := &ReceiptSheet{OrderID: po.ID, PONumber: po.PONumber}
	for _, li := range po.LineItems {
		if li.QuantityReceived >= li.QuantityOrdered {
			continue
		}
		outstanding := li.QuantityOrdered - li.QuantityReceived
		sheet.Rows = append(sheet.Rows, ReceiptRow{
			LineItemID:      li.ID,
			ProductID:       li.ProductID,
			Ordered:         li.QuantityOrdered,
			AlreadyReceived: li.QuantityReceived,
			Outstanding:     outstanding,
			Quantity:        outstanding,
		})
	}
	return sheet, nil
}

// Receipt form field names shared with the receive template.
const (
	FieldRowLineItem    = "row_line_item_id"
	FieldRowProduct     = "row_product_id"
	FieldRowOrdered     = "row_ordered"
	FieldRowReceived    = "row_already_received"
	FieldRowOutstanding = "row_outstanding"
	FieldRowQuantity    = "row_quantity"
	FieldRowLocation    = "row_location_id"
	FieldReceiptNotes   = "notes"
	FieldPONumber       = "po_number"
)

// DecodeReceiptSheet restores a sheet from the posted page so validation and
// re-rendering need no remote round trip.
func DecodeReceiptSheet(orderID string, values url.Values) *ReceiptSheet {
	sheet := &ReceiptSheet{
		OrderID:  orderID,
		PONumber: values.Get(FieldPONumber),
		Notes:    values.Get(FieldReceiptNotes),
	}
	lines := values[FieldRowLineItem]
	for i, lineID := range lines {
		row := ReceiptRow{
			LineItemID:      strings.TrimSpace(lineID),
			ProductID:       strings.TrimSpace(at(values[FieldRowProduct], i)),
			Ordered:         parseInt(at(values[FieldRowOrdered], i)),
			AlreadyReceived: parseInt(at(values[FieldRowReceived], i)),
			Outstanding:     parseInt(at(values[FieldRowOutstanding], i)),
			LocationID:      strings.TrimSpace(at(values[FieldRowLocation], i)),
		}
		row.Quantity = clampReceived(parseInt(at(values[FieldRowQuantity], i)), row.Outstanding)
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

// SetQuantity records the quantity for a line. Values above outstanding are
// clamped; non-positive values are kept so validation can reject them.
func (s *ReceiptSheet) SetQuantity(lineItemID string, quantity int) bool {
	row := s.row(lineItemID)
	if row == nil {
		return false
	}
	row.Quantity = clampReceived(quantity, row.Outstanding)
	return true
}

// SetLocation records the putaway location for a line.
func (s *ReceiptSheet) SetLocation(lineItemID, locationID string) bool {
	row := s.row(lineItemID)
	if row == nil {
		return false
	}
	row.LocationID = strings.TrimSpace(locationID)
	return true
}

func (s *ReceiptSheet) row(lineItemID string) *ReceiptRow {
	for i := range s.Rows {
		if s.Rows[i].LineItemID == lineItemID {
			return &s.Rows[i]
		}
	}
	return nil
}

// Validate rejects the whole batch when any row lacks a location or a
// positive quantity.
func (s *ReceiptSheet) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.StructField() == "Rows" {
			return ErrNotReceivable
		}
	}
	return ErrIncompleteReceipt
}

// Payload validates the sheet and builds the receive request dated today.
func (s *ReceiptSheet) Payload(today erpapi.Date) (erpapi.GoodsReceiptCreate, error) {
	if err := s.Validate(); err != nil {
		return erpapi.GoodsReceiptCreate{}, err
	}
	payload := erpapi.GoodsReceiptCreate{
		ReceivedDate: today,
		Notes:        optional(s.Notes),
		Items:        make([]erpapi.GoodsReceiptItemCreate, 0, len(s.Rows)),
	}
	for _, row := range s.Rows {
		payload.Items = append(payload.Items, erpapi.GoodsReceiptItemCreate{
			POLineItemID:     row.LineItemID,
			ProductID:        row.ProductID,
			QuantityReceived: row.Quantity,
			LocationID:       row.LocationID,
		})
	}
	return payload, nil
}

func clampReceived(quantity, outstanding int) int {
	if quantity > outstanding {
		return outstanding
	}
	return quantity
}
