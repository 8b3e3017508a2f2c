package purchasing

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
)

var validate = validator.New()

// Upper bounds accepted on the order form. They keep line totals finite.
const (
	MaxQuantity = 1_000_000
	MaxAmount   = 1_000_000_000
)

// DraftLine is an unsaved line on the order form. Key is local to the form
// and only identifies the line between requests.
type DraftLine struct {
	Key           int
	ProductID     string  `validate:"required,uuid"`
	PrevProductID string  `validate:"-"`
	Quantity      int     `validate:"min=1,max=1000000"`
	UnitPrice     float64 `validate:"gte=0,lte=1000000000"`
}

// LineTotal is quantity times unit price.
func (l DraftLine) LineTotal() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// OrderForm is the editable state of a purchase order page. It round-trips
// through the HTML form between requests and never persists on its own.
type OrderForm struct {
	ID              string `validate:"-"`
	PONumber        string `validate:"-"`
	Status          Status `validate:"-"`
	VendorID        string `validate:"required"`
	OrderDate       string `validate:"omitempty,datetime=2006-01-02"`
	ExpectedDate    string `validate:"omitempty,datetime=2006-01-02"`
	ShippingAddress string
	TaxAmount       float64     `validate:"gte=0,lte=1000000000"`
	Notes           string      `validate:"-"`
	Lines           []DraftLine `validate:"min=1,dive"`
	NextKey         int         `validate:"-"`
}

// NewOrderForm starts an unsaved order with no lines.
func NewOrderForm() *OrderForm {
	return &OrderForm{}
}

// FormFromOrder seeds a form from a fetched order.
func FormFromOrder(po erpapi.PurchaseOrder) *OrderForm {
	f := &OrderForm{
		ID:           po.ID,
		PONumber:     po.PONumber,
		Status:       Status(po.Status),
		VendorID:     po.VendorID,
		OrderDate:    erpapi.DateString(po.OrderDate),
		ExpectedDate: erpapi.DateString(po.ExpectedDeliveryDate),
		TaxAmount:    po.TaxAmount,
	}
	if po.ShippingAddress != nil {
		f.ShippingAddress = *po.ShippingAddress
	}
	if po.Notes != nil {
		f.Notes = *po.Notes
	}
	for i, li := range po.LineItems {
		f.Lines = append(f.Lines, DraftLine{
			Key:           i,
			ProductID:     li.ProductID,
			PrevProductID: li.ProductID,
			Quantity:      li.QuantityOrdered,
			UnitPrice:     li.UnitPrice,
		})
	}
	f.NextKey = len(f.Lines)
	return f
}

// Form field names shared with the order template.
const (
	FieldVendor        = "vendor_id"
	FieldOrderDate     = "order_date"
	FieldExpectedDate  = "expected_delivery_date"
	FieldShipping      = "shipping_address"
	FieldTax           = "tax_amount"
	FieldNotes         = "notes"
	FieldNextKey       = "next_key"
	FieldLineKey       = "line_key"
	FieldLineProduct   = "line_product_id"
	FieldLinePrev      = "line_prev_product_id"
	FieldLineQuantity  = "line_quantity"
	FieldLineUnitPrice = "line_unit_price"
)

// DecodeOrderForm rebuilds the form the user posted. Status is left for the
// caller to set from the server copy.
func DecodeOrderForm(values url.Values) *OrderForm {
	f := &OrderForm{
		VendorID:        strings.TrimSpace(values.Get(FieldVendor)),
		OrderDate:       strings.TrimSpace(values.Get(FieldOrderDate)),
		ExpectedDate:    strings.TrimSpace(values.Get(FieldExpectedDate)),
		ShippingAddress: values.Get(FieldShipping),
		Notes:           values.Get(FieldNotes),
	}
	f.TaxAmount = max(parseFloat(values.Get(FieldTax)), 0)

	keys := values[FieldLineKey]
	products := values[FieldLineProduct]
	prev := values[FieldLinePrev]
	quantities := values[FieldLineQuantity]
	prices := values[FieldLineUnitPrice]
	highest := -1
	for i, rawKey := range keys {
		key, err := strconv.Atoi(rawKey)
		if err != nil {
			continue
		}
		line := DraftLine{
			Key:           key,
			ProductID:     strings.TrimSpace(at(products, i)),
			PrevProductID: strings.TrimSpace(at(prev, i)),
			Quantity:      floorQuantity(parseInt(at(quantities, i))),
			UnitPrice:     floorPrice(parseFloat(at(prices, i))),
		}
		f.Lines = append(f.Lines, line)
		highest = max(highest, key)
	}
	f.NextKey = max(parseInt(values.Get(FieldNextKey)), highest+1)
	return f
}

// Editable reports whether mutators apply.
func (f *OrderForm) Editable() bool {
	return f.Status.Editable()
}

// IsNew reports whether the order has not been saved yet.
func (f *OrderForm) IsNew() bool {
	return f.ID == ""
}

// AddLine appends a line at quantity 1 and price 0. It returns the new key,
// or -1 when the form is read-only.
func (f *OrderForm) AddLine() int {
	if !f.Editable() {
		return -1
	}
	key := f.NextKey
	f.Lines = append(f.Lines, DraftLine{Key: key, Quantity: 1, UnitPrice: 0})
	f.NextKey++
	return key
}

// RemoveLine drops the line with key.
func (f *OrderForm) RemoveLine(key int) bool {
	if !f.Editable() {
		return false
	}
	for i, line := range f.Lines {
		if line.Key == key {
			f.Lines = append(f.Lines[:i:i], f.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// SetProduct selects a product. A known cost price replaces the unit price.
func (f *OrderForm) SetProduct(key int, productID string, costPrice *float64) bool {
	line := f.line(key)
	if line == nil {
		return false
	}
	line.ProductID = productID
	line.PrevProductID = productID
	if costPrice != nil && *costPrice != 0 {
		line.UnitPrice = floorPrice(*costPrice)
	}
	return true
}

// SetQuantity sets a line quantity; values below 1 become 1.
func (f *OrderForm) SetQuantity(key, quantity int) bool {
	line := f.line(key)
	if line == nil {
		return false
	}
	line.Quantity = floorQuantity(quantity)
	return true
}

// SetUnitPrice sets a line price; negative values become 0.
func (f *OrderForm) SetUnitPrice(key int, price float64) bool {
	line := f.line(key)
	if line == nil {
		return false
	}
	line.UnitPrice = floorPrice(price)
	return true
}

// SetTax sets the order tax; negative values become 0.
func (f *OrderForm) SetTax(tax float64) bool {
	if !f.Editable() {
		return false
	}
	f.TaxAmount = max(tax, 0)
	return true
}

// ApplyProductChanges pre-fills prices for lines whose product changed since
// the last render. cost returns nil for products without a cost price.
func (f *OrderForm) ApplyProductChanges(cost func(productID string) *float64) {
	if !f.Editable() {
		return
	}
	for i := range f.Lines {
		line := f.Lines[i]
		if line.ProductID == line.PrevProductID {
			continue
		}
		var price *float64
		if line.ProductID != "" && cost != nil {
			price = cost(line.ProductID)
		}
		f.SetProduct(line.Key, line.ProductID, price)
	}
}

func (f *OrderForm) line(key int) *DraftLine {
	if !f.Editable() {
		return nil
	}
	for i := range f.Lines {
		if f.Lines[i].Key == key {
			return &f.Lines[i]
		}
	}
	return nil
}

// Subtotal is the advisory sum of quantity times price across lines.
func (f *OrderForm) Subtotal() float64 {
	sum := 0.0
	for _, line := range f.Lines {
		sum += line.LineTotal()
	}
	return sum
}

// Total is subtotal plus tax.
func (f *OrderForm) Total() float64 {
	return f.Subtotal() + f.TaxAmount
}

// Validate checks the local creation contract.
func (f *OrderForm) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	failed := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		failed[fe.StructField()] = true
	}
	switch {
	case failed["VendorID"]:
		return ErrVendorRequired
	case failed["Lines"]:
		return ErrNoLineItems
	case failed["ProductID"]:
		return ErrLineWithoutProduct
	case failed["OrderDate"], failed["ExpectedDate"]:
		return ErrInvalidDate
	case failed["Quantity"], failed["UnitPrice"], failed["TaxAmount"]:
		return ErrAmountOutOfRange
	}
	return err
}

// CheckAmounts reports ErrAmountOutOfRange when a quantity, price or the tax
// exceeds what the form accepts.
func (f *OrderForm) CheckAmounts() error {
	if f.TaxAmount > MaxAmount {
		return ErrAmountOutOfRange
	}
	for _, line := range f.Lines {
		if line.Quantity > MaxQuantity || line.UnitPrice > MaxAmount {
			return ErrAmountOutOfRange
		}
	}
	return nil
}

func (f *OrderForm) lineItems() []erpapi.POLineItemCreate {
	items := make([]erpapi.POLineItemCreate, 0, len(f.Lines))
	for i, line := range f.Lines {
		items = append(items, erpapi.POLineItemCreate{
			ProductID:       line.ProductID,
			QuantityOrdered: line.Quantity,
			UnitPrice:       line.UnitPrice,
			SortOrder:       i,
		})
	}
	return items
}

// CreatePayload validates and builds the create request.
func (f *OrderForm) CreatePayload() (erpapi.PurchaseOrderCreate, error) {
	if err := f.Validate(); err != nil {
		return erpapi.PurchaseOrderCreate{}, err
	}
	orderDate, expected, err := f.dates()
	if err != nil {
		return erpapi.PurchaseOrderCreate{}, err
	}
	return erpapi.PurchaseOrderCreate{
		VendorID:             f.VendorID,
		OrderDate:            orderDate,
		ExpectedDeliveryDate: expected,
		ShippingAddress:      optional(f.ShippingAddress),
		TaxAmount:            f.TaxAmount,
		Notes:                optional(f.Notes),
		LineItems:            f.lineItems(),
	}, nil
}

// UpdatePayload validates and builds the update request. Lines are always
// sent and replace the stored set.
func (f *OrderForm) UpdatePayload() (erpapi.PurchaseOrderUpdate, error) {
	if !f.Editable() {
		return erpapi.PurchaseOrderUpdate{}, ErrNotEditable
	}
	if err := f.Validate(); err != nil {
		return erpapi.PurchaseOrderUpdate{}, err
	}
	orderDate, expected, err := f.dates()
	if err != nil {
		return erpapi.PurchaseOrderUpdate{}, err
	}
	tax := f.TaxAmount
	shipping := f.ShippingAddress
	notes := f.Notes
	return erpapi.PurchaseOrderUpdate{
		VendorID:             f.VendorID,
		OrderDate:            orderDate,
		ExpectedDeliveryDate: expected,
		ShippingAddress:      &shipping,
		TaxAmount:            &tax,
		Notes:                &notes,
		LineItems:            f.lineItems(),
	}, nil
}

func (f *OrderForm) dates() (*erpapi.Date, *erpapi.Date, error) {
	orderDate, err := erpapi.ParseDate(f.OrderDate)
	if err != nil {
		return nil, nil, ErrInvalidDate
	}
	expected, err := erpapi.ParseDate(f.ExpectedDate)
	if err != nil {
		return nil, nil, ErrInvalidDate
	}
	return orderDate, expected, nil
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func floorQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

func floorPrice(p float64) float64 {
	if p < 0 {
		return 0
	}
	return p
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func parseInt(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
