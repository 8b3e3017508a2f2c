package purchasing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/format"
	"github.com/odyssey-erp/erp-console/internal/shared"
)

const (
	// PageSize is the number of orders per list page.
	PageSize = 20
	// referenceLimit caps vendor and product selector lists.
	referenceLimit = 100
)

// API is the subset of the remote client the purchasing pages use.
type API interface {
	ListPurchaseOrders(ctx context.Context, params erpapi.ListParams) (erpapi.Page[erpapi.PurchaseOrder], error)
	GetPurchaseOrder(ctx context.Context, id string) (erpapi.PurchaseOrder, error)
	CreatePurchaseOrder(ctx context.Context, in erpapi.PurchaseOrderCreate) (erpapi.PurchaseOrder, error)
	UpdatePurchaseOrder(ctx context.Context, id string, in erpapi.PurchaseOrderUpdate) (erpapi.PurchaseOrder, error)
	SubmitPurchaseOrder(ctx context.Context, id string) (erpapi.PurchaseOrder, error)
	ApprovePurchaseOrder(ctx context.Context, id string) (erpapi.PurchaseOrder, error)
	SendPurchaseOrder(ctx context.Context, id string) (erpapi.PurchaseOrder, error)
	CancelPurchaseOrder(ctx context.Context, id string) (erpapi.PurchaseOrder, error)
	ReceiveGoods(ctx context.Context, id string, in erpapi.GoodsReceiptCreate) (erpapi.GoodsReceipt, error)
	ListVendors(ctx context.Context, params erpapi.ListParams) (erpapi.Page[erpapi.Vendor], error)
	ListProducts(ctx context.Context, params erpapi.ListParams) (erpapi.Page[erpapi.Product], error)
}

// Option is a select entry.
type Option struct {
	Value string
	Label string
}

// ProductOption is a product select entry carrying its cost price.
type ProductOption struct {
	Option
	CostPrice *float64
}

// References are the selector lists for the order form.
type References struct {
	Vendors  []Option
	Products []ProductOption
}

// CostOf returns the cost price for a product, if known.
func (r References) CostOf(productID string) *float64 {
	for _, p := range r.Products {
		if p.Value == productID {
			return p.CostPrice
		}
	}
	return nil
}

// LabelOf returns the display label for a product ID, falling back to the ID.
func (r References) LabelOf(productID string) string {
	for _, p := range r.Products {
		if p.Value == productID {
			return p.Label
		}
	}
	return productID
}

// VendorLabel returns the display label for a vendor ID, falling back to the ID.
func (r References) VendorLabel(vendorID string) string {
	for _, v := range r.Vendors {
		if v.Value == vendorID {
			return v.Label
		}
	}
	return vendorID
}

// OrderList is one page of the order list.
type OrderList struct {
	Tab        ListTab
	Orders     []erpapi.PurchaseOrder
	Pagination shared.Pagination
}

// Service composes purchasing workflows over the remote API.
type Service struct {
	api    API
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

// NewService constructs the service. loc decides which calendar day counts as today.
func NewService(api API, logger *slog.Logger, loc *time.Location) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{api: api, logger: logger, now: time.Now, loc: loc}
}

// ListOrders fetches one page for a status tab.
func (s *Service) ListOrders(ctx context.Context, tabKey string, page int) (OrderList, error) {
	tab := TabFor(tabKey)
	if page < 1 {
		page = 1
	}
	pagination := shared.NewPagination(page, PageSize, 0)
	result, err := s.api.ListPurchaseOrders(ctx, erpapi.ListParams{
		Skip:   pagination.Offset(),
		Limit:  PageSize,
		Status: string(tab.Status),
	})
	if err != nil {
		return OrderList{Tab: tab}, fmt.Errorf("list purchase orders: %w", err)
	}
	return OrderList{
		Tab:        tab,
		Orders:     result.Items,
		Pagination: shared.NewPagination(page, PageSize, result.Total),
	}, nil
}

// References loads vendor and product selectors. Failures are logged and
// leave the affected list empty.
func (s *Service) References(ctx context.Context) References {
	var refs References
	var g errgroup.Group
	g.Go(func() error {
		page, err := s.api.ListVendors(ctx, erpapi.ListParams{Limit: referenceLimit})
		if err != nil {
			s.logger.Warn("load vendors", slog.Any("error", err))
			return nil
		}
		for _, v := range page.Items {
			refs.Vendors = append(refs.Vendors, Option{Value: v.ID, Label: v.Code + " - " + v.Name})
		}
		return nil
	})
	g.Go(func() error {
		page, err := s.api.ListProducts(ctx, erpapi.ListParams{Limit: referenceLimit})
		if err != nil {
			s.logger.Warn("load products", slog.Any("error", err))
			return nil
		}
		for _, p := range page.Items {
			refs.Products = append(refs.Products, ProductOption{
				Option:    Option{Value: p.ID, Label: p.SKU + " - " + p.Name},
				CostPrice: p.CostPrice,
			})
		}
		return nil
	})
	_ = g.Wait()
	return refs
}

// LoadOrder fetches an order for display.
func (s *Service) LoadOrder(ctx context.Context, id string) (erpapi.PurchaseOrder, error) {
	return s.api.GetPurchaseOrder(ctx, id)
}

// CreateOrder checks the form locally and creates a draft.
func (s *Service) CreateOrder(ctx context.Context, form *OrderForm) (erpapi.PurchaseOrder, error) {
	payload, err := form.CreatePayload()
	if err != nil {
		return erpapi.PurchaseOrder{}, err
	}
	return s.api.CreatePurchaseOrder(ctx, payload)
}

// UpdateOrder re-reads the order and only issues the update while it is
// still a draft.
func (s *Service) UpdateOrder(ctx context.Context, id string, form *OrderForm) (erpapi.PurchaseOrder, error) {
	current, err := s.api.GetPurchaseOrder(ctx, id)
	if err != nil {
		return erpapi.PurchaseOrder{}, err
	}
	form.ID = current.ID
	form.PONumber = current.PONumber
	form.Status = Status(current.Status)
	payload, err := form.UpdatePayload()
	if err != nil {
		return current, err
	}
	return s.api.UpdatePurchaseOrder(ctx, id, payload)
}

// LoadReceipt fetches an order and derives its receipt sheet.
func (s *Service) LoadReceipt(ctx context.Context, id string) (*ReceiptSheet, error) {
	po, err := s.api.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewReceiptSheet(po)
}

// Receive validates the sheet locally and posts it dated today.
func (s *Service) Receive(ctx context.Context, sheet *ReceiptSheet) (erpapi.GoodsReceipt, error) {
	payload, err := sheet.Payload(format.Today(s.now(), s.loc))
	if err != nil {
		return erpapi.GoodsReceipt{}, err
	}
	return s.api.ReceiveGoods(ctx, sheet.OrderID, payload)
}
