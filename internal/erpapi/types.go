package erpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// timestampLayouts covers ISO-8601 with and without zone offsets.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Date is a calendar date transmitted as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD value. An empty string yields nil.
func ParseDate(value string) (*Date, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("erpapi: parse date %q: %w", value, err)
	}
	d := NewDate(t)
	return &d, nil
}

// String renders the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// DateString renders an optional date, yielding "" for nil.
func DateString(d *Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return err
	}
	*d = NewDate(t)
	return nil
}

// Timestamp is a server timestamp that may omit its zone offset.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			*t = Timestamp{Time: parsed}
			return nil
		}
	}
	return fmt.Errorf("erpapi: unsupported timestamp %q", raw)
}

// Page is the paginated list envelope.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// ListParams are the query parameters understood by list endpoints.
type ListParams struct {
	Skip     int
	Limit    int
	Status   string
	VendorID string
	Search   string
}

// POLineItem is a persisted purchase order line.
type POLineItem struct {
	ID               string    `json:"id"`
	PurchaseOrderID  string    `json:"purchase_order_id"`
	ProductID        string    `json:"product_id"`
	QuantityOrdered  int       `json:"quantity_ordered"`
	QuantityReceived int       `json:"quantity_received"`
	UnitPrice        float64   `json:"unit_price"`
	LineTotal        float64   `json:"line_total"`
	SortOrder        int       `json:"sort_order"`
	CreatedAt        Timestamp `json:"created_at"`
}

// Outstanding is the quantity still expected from the vendor.
func (li POLineItem) Outstanding() int {
	if li.QuantityReceived >= li.QuantityOrdered {
		return 0
	}
	return li.QuantityOrdered - li.QuantityReceived
}

// PurchaseOrder is the server representation of an order.
type PurchaseOrder struct {
	ID                   string       `json:"id"`
	PONumber             string       `json:"po_number"`
	VendorID             string       `json:"vendor_id"`
	Status               string       `json:"status"`
	OrderDate            *Date        `json:"order_date"`
	ExpectedDeliveryDate *Date        `json:"expected_delivery_date"`
	ShippingAddress      *string      `json:"shipping_address"`
	Subtotal             float64      `json:"subtotal"`
	TaxAmount            float64      `json:"tax_amount"`
	TotalAmount          float64      `json:"total_amount"`
	Notes                *string      `json:"notes"`
	CreatedBy            string       `json:"created_by"`
	ApprovedBy           *string      `json:"approved_by"`
	ApprovedAt           *Timestamp   `json:"approved_at"`
	CreatedAt            Timestamp    `json:"created_at"`
	UpdatedAt            Timestamp    `json:"updated_at"`
	LineItems            []POLineItem `json:"line_items"`
}

// POLineItemCreate is a line in a create or update request.
type POLineItemCreate struct {
	ProductID       string  `json:"product_id"`
	QuantityOrdered int     `json:"quantity_ordered"`
	UnitPrice       float64 `json:"unit_price"`
	SortOrder       int     `json:"sort_order"`
}

// PurchaseOrderCreate is the create request body.
type PurchaseOrderCreate struct {
	VendorID             string             `json:"vendor_id"`
	OrderDate            *Date              `json:"order_date,omitempty"`
	ExpectedDeliveryDate *Date              `json:"expected_delivery_date,omitempty"`
	ShippingAddress      *string            `json:"shipping_address,omitempty"`
	TaxAmount            float64            `json:"tax_amount"`
	Notes                *string            `json:"notes,omitempty"`
	LineItems            []POLineItemCreate `json:"line_items"`
}

// PurchaseOrderUpdate is the partial update body; nil fields are left untouched.
type PurchaseOrderUpdate struct {
	VendorID             string             `json:"vendor_id,omitempty"`
	OrderDate            *Date              `json:"order_date,omitempty"`
	ExpectedDeliveryDate *Date              `json:"expected_delivery_date,omitempty"`
	ShippingAddress      *string            `json:"shipping_address,omitempty"`
	TaxAmount            *float64           `json:"tax_amount,omitempty"`
	Notes                *string            `json:"notes,omitempty"`
	LineItems            []POLineItemCreate `json:"line_items,omitempty"`
}

// GoodsReceiptItemCreate is one received line.
type GoodsReceiptItemCreate struct {
	POLineItemID     string `json:"po_line_item_id"`
	ProductID        string `json:"product_id"`
	QuantityReceived int    `json:"quantity_received"`
	LocationID       string `json:"location_id"`
}

// GoodsReceiptCreate is the receive request body.
type GoodsReceiptCreate struct {
	ReceivedDate Date                     `json:"received_date"`
	Notes        *string                  `json:"notes,omitempty"`
	Items        []GoodsReceiptItemCreate `json:"items"`
}

// GoodsReceiptItem is a persisted receipt line.
type GoodsReceiptItem struct {
	ID               string    `json:"id"`
	GoodsReceiptID   string    `json:"goods_receipt_id"`
	POLineItemID     string    `json:"po_line_item_id"`
	ProductID        string    `json:"product_id"`
	QuantityReceived int       `json:"quantity_received"`
	LocationID       string    `json:"location_id"`
	CreatedAt        Timestamp `json:"created_at"`
}

// GoodsReceipt is the server representation of a receipt.
type GoodsReceipt struct {
	ID              string             `json:"id"`
	ReceiptNumber   string             `json:"receipt_number"`
	PurchaseOrderID string             `json:"purchase_order_id"`
	ReceivedDate    Date               `json:"received_date"`
	Notes           *string            `json:"notes"`
	ReceivedBy      string             `json:"received_by"`
	CreatedAt       Timestamp          `json:"created_at"`
	Items           []GoodsReceiptItem `json:"items"`
}

// Location is a putaway slot inside a zone.
type Location struct {
	ID          string    `json:"id"`
	ZoneID      string    `json:"zone_id"`
	Code        string    `json:"code"`
	Label       *string   `json:"label"`
	MaxCapacity *int      `json:"max_capacity"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   Timestamp `json:"created_at"`
}

// Zone groups locations inside a warehouse.
type Zone struct {
	ID          string     `json:"id"`
	WarehouseID string     `json:"warehouse_id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	ZoneType    *string    `json:"zone_type"`
	CreatedAt   Timestamp  `json:"created_at"`
	Locations   []Location `json:"locations"`
}

// Warehouse is a site; Zones is populated only by the detail endpoint.
type Warehouse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   *string   `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
	Zones     []Zone    `json:"zones,omitempty"`
}

// Vendor is a supplier.
type Vendor struct {
	ID               string  `json:"id"`
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	ContactName      *string `json:"contact_name"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	PaymentTermsDays int     `json:"payment_terms_days"`
	LeadTimeDays     int     `json:"lead_time_days"`
	Status           string  `json:"status"`
}

// Product is a catalog item.
type Product struct {
	ID            string   `json:"id"`
	SKU           string   `json:"sku"`
	Name          string   `json:"name"`
	UnitOfMeasure string   `json:"unit_of_measure"`
	Status        string   `json:"status"`
	CostPrice     *float64 `json:"cost_price"`
}

// TokenPair is returned by the login and refresh endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
