package purchasing

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
)

func floatPtr(v float64) *float64 { return &v }

func TestOrderFormLineEditing(t *testing.T) {
	form := NewOrderForm()
	first := form.AddLine()
	second := form.AddLine()
	require.Equal(t, 0, first)
	require.Equal(t, 1, second)
	require.Len(t, form.Lines, 2)
	require.Equal(t, 1, form.Lines[0].Quantity)
	require.Zero(t, form.Lines[0].UnitPrice)

	require.True(t, form.SetQuantity(first, 0))
	require.Equal(t, 1, form.Lines[0].Quantity)
	require.True(t, form.SetUnitPrice(first, -4))
	require.Zero(t, form.Lines[0].UnitPrice)

	require.True(t, form.SetQuantity(first, 3))
	require.True(t, form.SetUnitPrice(first, 10))
	require.True(t, form.SetTax(2.5))
	require.InDelta(t, 30.0, form.Subtotal(), 1e-9)
	require.InDelta(t, 32.5, form.Total(), 1e-9)

	require.True(t, form.RemoveLine(first))
	require.Len(t, form.Lines, 1)
	require.Equal(t, second, form.Lines[0].Key)
	require.False(t, form.RemoveLine(42))

	// Keys are never reused after a removal.
	require.Equal(t, 2, form.AddLine())
}

func TestOrderFormProductPrefill(t *testing.T) {
	form := NewOrderForm()
	key := form.AddLine()
	productID := uuid.NewString()

	require.True(t, form.SetProduct(key, productID, floatPtr(12.5)))
	require.InDelta(t, 12.5, form.Lines[0].UnitPrice, 1e-9)

	form.SetUnitPrice(key, 9)
	require.True(t, form.SetProduct(key, productID, floatPtr(0)))
	require.InDelta(t, 9.0, form.Lines[0].UnitPrice, 1e-9)
	require.True(t, form.SetProduct(key, productID, nil))
	require.InDelta(t, 9.0, form.Lines[0].UnitPrice, 1e-9)
}

func TestApplyProductChangesOnlyForChangedLines(t *testing.T) {
	kept := uuid.NewString()
	changed := uuid.NewString()
	form := &OrderForm{
		Lines: []DraftLine{
			{Key: 0, ProductID: kept, PrevProductID: kept, Quantity: 1, UnitPrice: 3},
			{Key: 1, ProductID: changed, PrevProductID: "", Quantity: 1, UnitPrice: 0},
		},
		NextKey: 2,
	}
	costs := map[string]*float64{kept: floatPtr(99), changed: floatPtr(7)}
	form.ApplyProductChanges(func(id string) *float64 { return costs[id] })

	require.InDelta(t, 3.0, form.Lines[0].UnitPrice, 1e-9)
	require.InDelta(t, 7.0, form.Lines[1].UnitPrice, 1e-9)
	require.Equal(t, changed, form.Lines[1].PrevProductID)
}

func TestReadOnlyFormIgnoresEdits(t *testing.T) {
	for _, status := range []Status{StatusPendingApproval, StatusApproved, StatusSent, StatusPartiallyReceived, StatusReceived, StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			form := FormFromOrder(erpapi.PurchaseOrder{
				ID:        uuid.NewString(),
				Status:    string(status),
				TaxAmount: 1,
				LineItems: []erpapi.POLineItem{{ID: "l1", ProductID: uuid.NewString(), QuantityOrdered: 2, UnitPrice: 5}},
			})
			require.False(t, form.Editable())
			require.Equal(t, -1, form.AddLine())
			require.False(t, form.RemoveLine(0))
			require.False(t, form.SetQuantity(0, 9))
			require.False(t, form.SetUnitPrice(0, 9))
			require.False(t, form.SetProduct(0, uuid.NewString(), floatPtr(1)))
			require.False(t, form.SetTax(9))
			require.Len(t, form.Lines, 1)
			require.Equal(t, 2, form.Lines[0].Quantity)
			require.InDelta(t, 1.0, form.TaxAmount, 1e-9)

			_, err := form.UpdatePayload()
			require.ErrorIs(t, err, ErrNotEditable)
		})
	}
}

func TestValidateRejectsBeforeAnyCall(t *testing.T) {
	vendor := uuid.NewString()
	product := uuid.NewString()
	cases := []struct {
		name string
		form *OrderForm
		want error
	}{
		{"no vendor", &OrderForm{Lines: []DraftLine{{ProductID: product, Quantity: 1}}}, ErrVendorRequired},
		{"no lines", &OrderForm{VendorID: vendor}, ErrNoLineItems},
		{"line without product", &OrderForm{VendorID: vendor, Lines: []DraftLine{{ProductID: product, Quantity: 1}, {Quantity: 1}}}, ErrLineWithoutProduct},
		{"bad date", &OrderForm{VendorID: vendor, OrderDate: "16/10/2026", Lines: []DraftLine{{ProductID: product, Quantity: 1}}}, ErrInvalidDate},
		{"huge price", &OrderForm{VendorID: vendor, Lines: []DraftLine{{ProductID: product, Quantity: 10, UnitPrice: 1e308}}}, ErrAmountOutOfRange},
		{"huge quantity", &OrderForm{VendorID: vendor, Lines: []DraftLine{{ProductID: product, Quantity: MaxQuantity + 1}}}, ErrAmountOutOfRange},
		{"huge tax", &OrderForm{VendorID: vendor, TaxAmount: 2e9, Lines: []DraftLine{{ProductID: product, Quantity: 1}}}, ErrAmountOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.form.CreatePayload()
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreatePayload(t *testing.T) {
	vendor := uuid.NewString()
	product := uuid.NewString()
	form := &OrderForm{
		VendorID:     vendor,
		OrderDate:    "2026-10-16",
		ExpectedDate: "",
		TaxAmount:    4,
		Notes:        "  ",
		Lines: []DraftLine{
			{Key: 5, ProductID: product, Quantity: 3, UnitPrice: 10},
			{Key: 2, ProductID: product, Quantity: 1, UnitPrice: 2.5},
		},
	}
	payload, err := form.CreatePayload()
	require.NoError(t, err)
	require.Equal(t, vendor, payload.VendorID)
	require.NotNil(t, payload.OrderDate)
	require.Equal(t, "2026-10-16", payload.OrderDate.String())
	require.Nil(t, payload.ExpectedDeliveryDate)
	require.Nil(t, payload.Notes)
	require.Nil(t, payload.ShippingAddress)
	require.Len(t, payload.LineItems, 2)
	require.Equal(t, 0, payload.LineItems[0].SortOrder)
	require.Equal(t, 1, payload.LineItems[1].SortOrder)
	require.Equal(t, 3, payload.LineItems[0].QuantityOrdered)
}

func TestUpdatePayloadAlwaysSendsLines(t *testing.T) {
	product := uuid.NewString()
	form := &OrderForm{
		ID:       uuid.NewString(),
		Status:   StatusDraft,
		VendorID: uuid.NewString(),
		Lines:    []DraftLine{{ProductID: product, Quantity: 2, UnitPrice: 1}},
	}
	payload, err := form.UpdatePayload()
	require.NoError(t, err)
	require.NotNil(t, payload.TaxAmount)
	require.Zero(t, *payload.TaxAmount)
	require.NotNil(t, payload.Notes)
	require.Len(t, payload.LineItems, 1)
}

func TestDecodeOrderForm(t *testing.T) {
	product := uuid.NewString()
	values := url.Values{
		FieldVendor:        {" v-1 "},
		FieldOrderDate:     {"2026-10-01"},
		FieldTax:           {"-3"},
		FieldNotes:         {"rush"},
		FieldNextKey:       {"2"},
		FieldLineKey:       {"0", "7", "oops"},
		FieldLineProduct:   {product, ""},
		FieldLinePrev:      {product},
		FieldLineQuantity:  {"0", "4"},
		FieldLineUnitPrice: {"NaN", "1.25"},
	}
	form := DecodeOrderForm(values)
	require.Equal(t, "v-1", form.VendorID)
	require.Zero(t, form.TaxAmount)
	require.Len(t, form.Lines, 2)
	require.Equal(t, 1, form.Lines[0].Quantity)
	require.Zero(t, form.Lines[0].UnitPrice)
	require.Equal(t, product, form.Lines[0].PrevProductID)
	require.Equal(t, 7, form.Lines[1].Key)
	require.Equal(t, 4, form.Lines[1].Quantity)
	require.InDelta(t, 1.25, form.Lines[1].UnitPrice, 1e-9)
	require.Equal(t, 8, form.NextKey)
}

func TestFormFromOrder(t *testing.T) {
	shipping := "Dock 4"
	orderDate := erpapi.NewDate(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	po := erpapi.PurchaseOrder{
		ID:              "po-1",
		PONumber:        "PO-20260001",
		Status:          "draft",
		VendorID:        "v-1",
		OrderDate:       &orderDate,
		ShippingAddress: &shipping,
		TaxAmount:       3,
		LineItems: []erpapi.POLineItem{
			{ProductID: "p-1", QuantityOrdered: 2, UnitPrice: 4},
			{ProductID: "p-2", QuantityOrdered: 1, UnitPrice: 6},
		},
	}
	form := FormFromOrder(po)
	require.True(t, form.Editable())
	require.False(t, form.IsNew())
	require.Equal(t, "2026-10-01", form.OrderDate)
	require.Empty(t, form.ExpectedDate)
	require.Equal(t, "Dock 4", form.ShippingAddress)
	require.Equal(t, 2, form.NextKey)
	require.Equal(t, "p-1", form.Lines[0].PrevProductID)
	require.InDelta(t, 14.0, form.Subtotal(), 1e-9)
	require.InDelta(t, 17.0, form.Total(), 1e-9)
}

func TestCheckAmounts(t *testing.T) {
	form := &OrderForm{Lines: []DraftLine{{Quantity: 10, UnitPrice: MaxAmount}}}
	require.NoError(t, form.CheckAmounts())

	form.Lines[0].UnitPrice = 1e308
	require.ErrorIs(t, form.CheckAmounts(), ErrAmountOutOfRange)

	form.Lines[0].UnitPrice = 1
	form.TaxAmount = MaxAmount + 1
	require.ErrorIs(t, form.CheckAmounts(), ErrAmountOutOfRange)
}
