// Package erpapitest runs an in-memory stand-in for the remote ERP API. It
// enforces the server-side lifecycle rules and counts calls per route so tests
// can assert that local preconditions short-circuit remote traffic.
package erpapitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
)

const prefix = "/api/v1"

var validTransitions = map[string][]string{
	"draft":              {"pending_approval", "cancelled"},
	"pending_approval":   {"approved", "cancelled"},
	"approved":           {"sent", "cancelled"},
	"sent":               {"partially_received", "received", "cancelled"},
	"partially_received": {"received", "cancelled"},
}

// Server is a fake remote API backed by maps.
type Server struct {
	*httptest.Server

	// RequireAuth rejects requests without a valid bearer token.
	RequireAuth bool
	// AccessTTL controls the lifetime of issued access tokens.
	AccessTTL time.Duration
	// Now supplies the clock for timestamps and token expiry.
	Now func() time.Time

	secret []byte

	mu         sync.Mutex
	orders     map[string]*erpapi.PurchaseOrder
	orderSeq   int
	receipts   []erpapi.GoodsReceipt
	warehouses []erpapi.Warehouse
	vendors    []erpapi.Vendor
	products   []erpapi.Product
	users      map[string]string
	calls      map[string]int
	failures   map[string][]failure
}

type failure struct {
	status int
	detail any
}

// New starts a fake server that is closed with the test.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		AccessTTL: 30 * time.Minute,
		Now:       time.Now,
		secret:    []byte("erpapitest-secret"),
		orders:    make(map[string]*erpapi.PurchaseOrder),
		users:     make(map[string]string),
		calls:     make(map[string]int),
		failures:  make(map[string][]failure),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root clients should be configured with.
func (s *Server) BaseURL() string {
	return s.URL + prefix
}

// Calls reports how many requests matched a route such as
// "POST /purchase-orders/{id}/receive".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls reports every request served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// FailNext makes the next request to route, such as
// "POST /purchase-orders/{id}/receive", answer status with detail as the
// response's detail field. Queued failures are used in order.
func (s *Server) FailNext(route string, status int, detail any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, detail: detail})
}

// AddUser registers login credentials.
func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
}

// AddVendor seeds a vendor.
func (s *Server) AddVendor(code, name string) erpapi.Vendor {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := erpapi.Vendor{ID: uuid.NewString(), Code: code, Name: name, Status: "active", PaymentTermsDays: 30}
	s.vendors = append(s.vendors, v)
	return v
}

// AddProduct seeds a product; cost may be nil.
func (s *Server) AddProduct(sku, name string, cost *float64) erpapi.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := erpapi.Product{ID: uuid.NewString(), SKU: sku, Name: name, UnitOfMeasure: "each", Status: "active", CostPrice: cost}
	s.products = append(s.products, p)
	return p
}

// AddWarehouse seeds a warehouse. Missing IDs are generated.
func (s *Server) AddWarehouse(w erpapi.Warehouse) erpapi.Warehouse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.IsActive = true
	for zi := range w.Zones {
		zone := &w.Zones[zi]
		if zone.ID == "" {
			zone.ID = uuid.NewString()
		}
		zone.WarehouseID = w.ID
		for li := range zone.Locations {
			loc := &zone.Locations[li]
			if loc.ID == "" {
				loc.ID = uuid.NewString()
			}
			loc.ZoneID = zone.ID
			loc.IsActive = true
		}
	}
	s.warehouses = append(s.warehouses, w)
	return w
}

// PutOrder stores an order as-is, generating IDs where missing.
func (s *Server) PutOrder(po erpapi.PurchaseOrder) erpapi.PurchaseOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if po.ID == "" {
		po.ID = uuid.NewString()
	}
	if po.PONumber == "" {
		s.orderSeq++
		po.PONumber = fmt.Sprintf("PO-%d%04d", s.Now().UTC().Year(), s.orderSeq)
	}
	if po.Status == "" {
		po.Status = "draft"
	}
	for i := range po.LineItems {
		if po.LineItems[i].ID == "" {
			po.LineItems[i].ID = uuid.NewString()
		}
		po.LineItems[i].PurchaseOrderID = po.ID
		po.LineItems[i].LineTotal = float64(po.LineItems[i].QuantityOrdered) * po.LineItems[i].UnitPrice
	}
	recomputeTotals(&po)
	stored := po
	s.orders[po.ID] = &stored
	return clone(stored)
}

// Order returns the stored copy of an order.
func (s *Server) Order(id string) (erpapi.PurchaseOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.orders[id]
	if !ok {
		return erpapi.PurchaseOrder{}, false
	}
	return clone(*po), true
}

// Receipts returns every receipt recorded so far.
func (s *Server) Receipts() []erpapi.GoodsReceipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]erpapi.GoodsReceipt, len(s.receipts))
	copy(out, s.receipts)
	return out
}

// IssueToken signs an access token expiring after ttl.
func (s *Server) IssueToken(subject string, ttl time.Duration) string {
	return s.sign(subject, "access", ttl)
}

func (s *Server) sign(subject, kind string, ttl time.Duration) string {
	now := s.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"type": kind,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"jti":  uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) verify(raw, kind string) (string, bool) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.Now))
	if err != nil || !parsed.Valid {
		return "", false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != kind {
		return "", false
	}
	sub, _ := claims.GetSubject()
	return sub, true
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Route(prefix, func(r chi.Router) {
		r.Use(s.count)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate, s.injectFailures)
			r.Get("/purchase-orders", s.handleList)
			r.Post("/purchase-orders", s.handleCreate)
			r.Get("/purchase-orders/{id}", s.handleGet)
			r.Put("/purchase-orders/{id}", s.handleUpdate)
			r.Post("/purchase-orders/{id}/submit", s.transitionHandler("pending_approval"))
			r.Post("/purchase-orders/{id}/approve", s.transitionHandler("approved"))
			r.Post("/purchase-orders/{id}/send", s.transitionHandler("sent"))
			r.Post("/purchase-orders/{id}/cancel", s.handleCancel)
			r.Post("/purchase-orders/{id}/receive", s.handleReceive)
			r.Get("/warehouses", s.handleWarehouses)
			r.Get("/warehouses/{id}", s.handleWarehouse)
			r.Get("/vendors", s.handleVendors)
			r.Get("/products", s.handleProducts)
		})
	})
	return r
}

// count records the matched route before the first byte reaches the client.
func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&countingWriter{ResponseWriter: w, record: func() {
			pattern := strings.TrimPrefix(chi.RouteContext(r.Context()).RoutePattern(), prefix)
			s.mu.Lock()
			s.calls[r.Method+" "+pattern]++
			s.mu.Unlock()
		}}, r)
	})
}

type countingWriter struct {
	http.ResponseWriter
	record  func()
	counted bool
}

func (w *countingWriter) WriteHeader(status int) {
	if !w.counted {
		w.counted = true
		w.record()
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *countingWriter) Write(b []byte) (int, error) {
	if !w.counted {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + strings.TrimPrefix(chi.RouteContext(r.Context()).RoutePattern(), prefix)
		s.mu.Lock()
		queued := s.failures[route]
		var f *failure
		if len(queued) > 0 {
			f = &queued[0]
			s.failures[route] = queued[1:]
		}
		s.mu.Unlock()
		if f != nil {
			writeJSON(w, f.status, map[string]any{"detail": f.detail})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.RequireAuth {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if _, valid := s.verify(token, "access"); !valid {
			writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	s.mu.Lock()
	password, ok := s.users[body.Email]
	s.mu.Unlock()
	if !ok || password != body.Password {
		writeDetail(w, http.StatusBadRequest, "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, s.tokens(body.Email))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	subject, ok := s.verify(body.RefreshToken, "refresh")
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	writeJSON(w, http.StatusOK, s.tokens(subject))
}

func (s *Server) tokens(subject string) erpapi.TokenPair {
	return erpapi.TokenPair{
		AccessToken:  s.sign(subject, "access", s.AccessTTL),
		RefreshToken: s.sign(subject, "refresh", 7*24*time.Hour),
		TokenType:    "bearer",
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	vendorID := r.URL.Query().Get("vendor_id")

	s.mu.Lock()
	matched := make([]erpapi.PurchaseOrder, 0, len(s.orders))
	for _, po := range s.orders {
		if status != "" && po.Status != status {
			continue
		}
		if vendorID != "" && po.VendorID != vendorID {
			continue
		}
		matched = append(matched, clone(*po))
	}
	s.mu.Unlock()

	sortByNumberDesc(matched)
	writeJSON(w, http.StatusOK, paginate(matched, skip, limit))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	po, ok := s.Order(chi.URLParam(r, "id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Purchase order not found")
		return
	}
	writeJSON(w, http.StatusOK, po)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body erpapi.PurchaseOrderCreate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	var problems []fieldProblem
	if _, err := uuid.Parse(body.VendorID); err != nil {
		problems = append(problems, fieldProblem{Loc: []any{"body", "vendor_id"}, Msg: "Input should be a valid UUID"})
	}
	problems = append(problems, validateLines(body.LineItems)...)
	if body.TaxAmount < 0 {
		problems = append(problems, fieldProblem{Loc: []any{"body", "tax_amount"}, Msg: "Input should be greater than or equal to 0"})
	}
	if len(problems) > 0 {
		writeProblems(w, problems)
		return
	}
	now := erpapi.Timestamp{Time: s.Now().UTC()}
	po := erpapi.PurchaseOrder{
		VendorID:             body.VendorID,
		Status:               "draft",
		OrderDate:            body.OrderDate,
		ExpectedDeliveryDate: body.ExpectedDeliveryDate,
		ShippingAddress:      body.ShippingAddress,
		TaxAmount:            body.TaxAmount,
		Notes:                body.Notes,
		CreatedBy:            uuid.NewString(),
		CreatedAt:            now,
		UpdatedAt:            now,
		LineItems:            toLineItems(body.LineItems, now),
	}
	writeJSON(w, http.StatusCreated, s.PutOrder(po))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body erpapi.PurchaseOrderUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if problems := validateLines(body.LineItems); len(problems) > 0 {
		writeProblems(w, problems)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.orders[chi.URLParam(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Purchase order not found")
		return
	}
	if po.Status != "draft" {
		writeDetail(w, http.StatusBadRequest, "Can only edit draft purchase orders")
		return
	}
	now := erpapi.Timestamp{Time: s.Now().UTC()}
	if body.VendorID != "" {
		po.VendorID = body.VendorID
	}
	if body.OrderDate != nil {
		po.OrderDate = body.OrderDate
	}
	if body.ExpectedDeliveryDate != nil {
		po.ExpectedDeliveryDate = body.ExpectedDeliveryDate
	}
	if body.ShippingAddress != nil {
		po.ShippingAddress = body.ShippingAddress
	}
	if body.Notes != nil {
		po.Notes = body.Notes
	}
	if body.TaxAmount != nil {
		po.TaxAmount = *body.TaxAmount
	}
	if body.LineItems != nil {
		po.LineItems = toLineItems(body.LineItems, now)
		for i := range po.LineItems {
			po.LineItems[i].PurchaseOrderID = po.ID
		}
	}
	po.UpdatedAt = now
	recomputeTotals(po)
	writeJSON(w, http.StatusOK, clone(*po))
}

func (s *Server) transitionHandler(next string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		po, ok := s.orders[chi.URLParam(r, "id")]
		if !ok {
			writeDetail(w, http.StatusNotFound, "Purchase order not found")
			return
		}
		if !allowed(po.Status, next) {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Cannot transition from '%s' to '%s'", po.Status, next))
			return
		}
		po.Status = next
		now := erpapi.Timestamp{Time: s.Now().UTC()}
		if next == "approved" {
			approver := uuid.NewString()
			po.ApprovedBy = &approver
			po.ApprovedAt = &now
		}
		po.UpdatedAt = now
		writeJSON(w, http.StatusOK, clone(*po))
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.orders[chi.URLParam(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Purchase order not found")
		return
	}
	if po.Status == "received" {
		writeDetail(w, http.StatusBadRequest, "Cannot cancel a fully received PO")
		return
	}
	if !allowed(po.Status, "cancelled") {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Cannot cancel PO in '%s' status", po.Status))
		return
	}
	po.Status = "cancelled"
	po.UpdatedAt = erpapi.Timestamp{Time: s.Now().UTC()}
	writeJSON(w, http.StatusOK, clone(*po))
}

func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	var body erpapi.GoodsReceiptCreate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	var problems []fieldProblem
	if body.ReceivedDate.IsZero() {
		problems = append(problems, fieldProblem{Loc: []any{"body", "received_date"}, Msg: "Field required"})
	}
	for i, item := range body.Items {
		if item.QuantityReceived <= 0 {
			problems = append(problems, fieldProblem{Loc: []any{"body", "items", i, "quantity_received"}, Msg: "Input should be greater than 0"})
		}
		if _, err := uuid.Parse(item.LocationID); err != nil {
			problems = append(problems, fieldProblem{Loc: []any{"body", "items", i, "location_id"}, Msg: "Input should be a valid UUID"})
		}
	}
	if len(problems) > 0 {
		writeProblems(w, problems)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.orders[chi.URLParam(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Purchase order not found")
		return
	}
	if po.Status != "sent" && po.Status != "partially_received" {
		writeDetail(w, http.StatusBadRequest, "PO must be 'sent' or 'partially_received' to receive goods")
		return
	}
	now := erpapi.Timestamp{Time: s.Now().UTC()}
	receipt := erpapi.GoodsReceipt{
		ID:              uuid.NewString(),
		ReceiptNumber:   fmt.Sprintf("GR-%d%04d", now.Year(), len(s.receipts)+1),
		PurchaseOrderID: po.ID,
		ReceivedDate:    body.ReceivedDate,
		Notes:           body.Notes,
		ReceivedBy:      uuid.NewString(),
		CreatedAt:       now,
	}
	for _, item := range body.Items {
		receipt.Items = append(receipt.Items, erpapi.GoodsReceiptItem{
			ID:               uuid.NewString(),
			GoodsReceiptID:   receipt.ID,
			POLineItemID:     item.POLineItemID,
			ProductID:        item.ProductID,
			QuantityReceived: item.QuantityReceived,
			LocationID:       item.LocationID,
			CreatedAt:        now,
		})
		for i := range po.LineItems {
			if po.LineItems[i].ID == item.POLineItemID {
				po.LineItems[i].QuantityReceived += item.QuantityReceived
			}
		}
	}
	allReceived := true
	for _, li := range po.LineItems {
		if li.QuantityReceived < li.QuantityOrdered {
			allReceived = false
			break
		}
	}
	if allReceived {
		po.Status = "received"
	} else {
		po.Status = "partially_received"
	}
	po.UpdatedAt = now
	s.receipts = append(s.receipts, receipt)
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleWarehouses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]erpapi.Warehouse, 0, len(s.warehouses))
	for _, wh := range s.warehouses {
		summary := wh
		summary.Zones = nil
		out = append(out, summary)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWarehouse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, wh := range s.warehouses {
		if wh.ID == id {
			writeJSON(w, http.StatusOK, wh)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Warehouse not found")
}

func (s *Server) handleVendors(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	vendors := append([]erpapi.Vendor(nil), s.vendors...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, paginate(vendors, skip, limit))
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	products := append([]erpapi.Product(nil), s.products...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, paginate(products, skip, limit))
}

func allowed(from, to string) bool {
	for _, candidate := range validTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

type fieldProblem struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type,omitempty"`
}

func validateLines(lines []erpapi.POLineItemCreate) []fieldProblem {
	var problems []fieldProblem
	for i, line := range lines {
		if _, err := uuid.Parse(line.ProductID); err != nil {
			problems = append(problems, fieldProblem{Loc: []any{"body", "line_items", i, "product_id"}, Msg: "Input should be a valid UUID", Type: "uuid_parsing"})
		}
		if line.QuantityOrdered <= 0 {
			problems = append(problems, fieldProblem{Loc: []any{"body", "line_items", i, "quantity_ordered"}, Msg: "Input should be greater than 0", Type: "greater_than"})
		}
		if line.UnitPrice < 0 {
			problems = append(problems, fieldProblem{Loc: []any{"body", "line_items", i, "unit_price"}, Msg: "Input should be greater than or equal to 0", Type: "greater_than_equal"})
		}
	}
	return problems
}

func toLineItems(lines []erpapi.POLineItemCreate, now erpapi.Timestamp) []erpapi.POLineItem {
	items := make([]erpapi.POLineItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, erpapi.POLineItem{
			ID:              uuid.NewString(),
			ProductID:       line.ProductID,
			QuantityOrdered: line.QuantityOrdered,
			UnitPrice:       line.UnitPrice,
			LineTotal:       float64(line.QuantityOrdered) * line.UnitPrice,
			SortOrder:       line.SortOrder,
			CreatedAt:       now,
		})
	}
	return items
}

func recomputeTotals(po *erpapi.PurchaseOrder) {
	subtotal := 0.0
	for _, li := range po.LineItems {
		subtotal += float64(li.QuantityOrdered) * li.UnitPrice
	}
	po.Subtotal = subtotal
	po.TotalAmount = subtotal + po.TaxAmount
}

func clone(po erpapi.PurchaseOrder) erpapi.PurchaseOrder {
	po.LineItems = append([]erpapi.POLineItem(nil), po.LineItems...)
	return po
}

func sortByNumberDesc(orders []erpapi.PurchaseOrder) {
	for i := 1; i < len(orders); i++ {
		for j := i; j > 0 && orders[j].PONumber > orders[j-1].PONumber; j-- {
			orders[j], orders[j-1] = orders[j-1], orders[j]
		}
	}
}

func pageParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	skip, limit := 0, 20
	if raw := r.URL.Query().Get("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeProblems(w, []fieldProblem{{Loc: []any{"query", "skip"}, Msg: "Input should be greater than or equal to 0"}})
			return 0, 0, false
		}
		skip = v
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 100 {
			writeProblems(w, []fieldProblem{{Loc: []any{"query", "limit"}, Msg: "Input should be less than or equal to 100"}})
			return 0, 0, false
		}
		limit = v
	}
	return skip, limit, true
}

func paginate[T any](items []T, skip, limit int) erpapi.Page[T] {
	total := len(items)
	start := min(skip, total)
	end := min(start+limit, total)
	pages := (total + limit - 1) / limit
	return erpapi.Page[T]{
		Items:      append([]T{}, items[start:end]...),
		Total:      total,
		Page:       skip/limit + 1,
		PageSize:   limit,
		TotalPages: pages,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeProblems(w http.ResponseWriter, problems []fieldProblem) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": problems})
}
