package purchasing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/erpapi/erpapitest"
	"github.com/odyssey-erp/erp-console/internal/locations"
	"github.com/odyssey-erp/erp-console/internal/platform/cache"
	"github.com/odyssey-erp/erp-console/internal/platform/httpx"
	"github.com/odyssey-erp/erp-console/internal/shared"
	"github.com/odyssey-erp/erp-console/internal/view"
)

type stubPDF struct {
	html string
}

func (s *stubPDF) RenderHTML(_ context.Context, html string) ([]byte, error) {
	s.html = html
	return []byte("%PDF-1.7"), nil
}

type harness struct {
	t        *testing.T
	srv      *erpapitest.Server
	router   chi.Router
	sessions *shared.SessionManager
	pdf      *stubPDF
	logs     *bytes.Buffer
	cookie   *http.Cookie
	vendor   erpapi.Vendor
	product  erpapi.Product
	location string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv, client := newFakeAPI(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := view.NewEngine(TemplateFuncs())
	require.NoError(t, err)

	h := &harness{
		t:        t,
		srv:      srv,
		sessions: shared.NewSessionManager(rdb, "test_session", "secret", time.Hour, false),
		pdf:      &stubPDF{},
		logs:     &bytes.Buffer{},
	}
	catalog := locations.NewCatalog(client, cache.NewVersioned(rdb, "locations", time.Minute), 2, nil)
	handler := NewHandler(HandlerDeps{
		Logger:     slog.New(slog.NewTextHandler(h.logs, nil)),
		Service:    NewService(client, nil, time.UTC),
		Dispatcher: NewDispatcher(client),
		Catalog:    catalog,
		Templates:  engine,
		CSRF:       shared.NewCSRFManager("csrfsecret"),
		PDF:        h.pdf,
	})
	r := chi.NewRouter()
	r.Route("/purchase-orders", handler.MountRoutes)
	h.router = r

	cost := 10.0
	h.vendor = srv.AddVendor("V001", "Acme Supply")
	h.product = srv.AddProduct("SKU-1", "Widget", &cost)
	wh := srv.AddWarehouse(erpapi.Warehouse{
		Code: "W01",
		Name: "Main",
		Zones: []erpapi.Zone{{
			Code:      "A",
			Locations: []erpapi.Location{{Code: "A-01"}},
		}},
	})
	h.location = wh.Zones[0].Locations[0].ID
	return h
}

func (h *harness) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	h.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	ctx := context.Background()
	sess, err := h.sessions.Load(ctx, req)
	require.NoError(h.t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	committed := httptest.NewRecorder()
	require.NoError(h.t, h.sessions.Commit(ctx, committed, req, sess))
	if cookies := committed.Result().Cookies(); len(cookies) > 0 {
		h.cookie = cookies[0]
	}
	return rec
}

func (h *harness) follow(rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	h.t.Helper()
	require.Equal(h.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return h.do(http.MethodGet, rec.Header().Get("Location"), nil)
}

func (h *harness) order(status string) erpapi.PurchaseOrder {
	return seedOrder(h.srv, status, h.vendor.ID, h.product.ID)
}

func (h *harness) createForm() url.Values {
	return url.Values{
		FieldVendor:        {h.vendor.ID},
		FieldNextKey:       {"1"},
		FieldLineKey:       {"0"},
		FieldLineProduct:   {h.product.ID},
		FieldLinePrev:      {h.product.ID},
		FieldLineQuantity:  {"3"},
		FieldLineUnitPrice: {"10"},
		intentField:        {intentSave},
	}
}

func TestCreateSubmitFlow(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/purchase-orders", h.createForm())
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/purchase-orders/"), location)

	page := h.follow(rec)
	require.Equal(t, http.StatusOK, page.Code)
	body := page.Body.String()
	require.Contains(t, body, "Created")
	require.Contains(t, body, "$30.00")
	require.Contains(t, body, `data-editable="true"`)
	require.Contains(t, body, "Update PO")
	require.Contains(t, body, "Submit")

	id := strings.TrimPrefix(location, "/purchase-orders/")
	page = h.follow(h.do(http.MethodPost, location+"/actions/submit", url.Values{}))
	body = page.Body.String()
	require.Contains(t, body, "Submitted")
	require.Contains(t, body, "Pending Approval")
	require.Contains(t, body, `data-editable="false"`)
	require.Contains(t, body, "<fieldset disabled>")
	require.NotContains(t, body, "Update PO")
	require.Contains(t, body, "Approve")

	stored, ok := h.srv.Order(id)
	require.True(t, ok)
	require.Equal(t, "pending_approval", stored.Status)
}

func TestCreateRejectsEmptyOrderLocally(t *testing.T) {
	h := newHarness(t)

	form := url.Values{FieldVendor: {h.vendor.ID}, intentField: {intentSave}}
	rec := h.do(http.MethodPost, "/purchase-orders", form)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Add at least one line item")
	require.Zero(t, h.srv.Calls("POST /purchase-orders"))
	require.Contains(t, h.logs.String(), `level=INFO msg="create purchase order"`)
	require.NotContains(t, h.logs.String(), "level=ERROR")
}

func TestFormIntentsDoNotSave(t *testing.T) {
	h := newHarness(t)

	form := h.createForm()
	form.Set(intentField, intentAdd)
	rec := h.do(http.MethodPost, "/purchase-orders", form)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, strings.Count(rec.Body.String(), `name="line_key"`))
	require.Zero(t, h.srv.Calls("POST /purchase-orders"))

	form.Set(intentField, intentRemove+"0")
	rec = h.do(http.MethodPost, "/purchase-orders", form)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, strings.Count(rec.Body.String(), `name="line_key"`))
	require.Contains(t, rec.Body.String(), "No line items")
}

func TestReadOnlyOrderShowsNoEditing(t *testing.T) {
	h := newHarness(t)
	po := h.order("approved")

	rec := h.do(http.MethodGet, "/purchase-orders/"+po.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "<fieldset disabled>")
	require.Contains(t, body, "Mark Sent")
	require.Contains(t, body, `data-confirm="Cancel this PO?"`)
	require.NotContains(t, body, "Update PO")

	// A crafted edit is refused without reaching the update endpoint.
	form := h.createForm()
	form.Set(FieldLineQuantity, "9")
	page := h.follow(h.do(http.MethodPost, "/purchase-orders/"+po.ID, form))
	require.Contains(t, page.Body.String(), "Can only edit draft purchase orders")
	require.Zero(t, h.srv.Calls("PUT /purchase-orders/{id}"))
}

func TestUpdateDraft(t *testing.T) {
	h := newHarness(t)
	po := h.order("draft")

	form := h.createForm()
	form.Set(FieldLineQuantity, "5")
	form.Set(FieldTax, "2")
	page := h.follow(h.do(http.MethodPost, "/purchase-orders/"+po.ID, form))
	require.Contains(t, page.Body.String(), "Updated")

	stored, _ := h.srv.Order(po.ID)
	require.Equal(t, 5, stored.LineItems[0].QuantityOrdered)
	require.InDelta(t, 52.0, stored.TotalAmount, 1e-9)
}

func TestActionRejectedByServerFlashesMessage(t *testing.T) {
	h := newHarness(t)
	po := h.order("draft")

	page := h.follow(h.do(http.MethodPost, "/purchase-orders/"+po.ID+"/actions/approve", url.Values{}))
	require.Contains(t, page.Body.String(), "Cannot transition from &#39;draft&#39; to &#39;approved&#39;")

	rec := h.do(http.MethodPost, "/purchase-orders/"+po.ID+"/actions/receive", url.Values{})
	require.Equal(t, "/purchase-orders/"+po.ID+"/receive", rec.Header().Get("Location"))
}

func TestMissingOrderRedirectsToList(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/purchase-orders/8a5c2f0e-5f4b-4c7e-9d55-2f3f6f1d8b01", nil)
	require.Equal(t, "/purchase-orders", rec.Header().Get("Location"))
	page := h.follow(rec)
	require.Contains(t, page.Body.String(), "Not found")
}

func TestExpiredTokenSendsToLogin(t *testing.T) {
	h := newHarness(t)
	h.srv.RequireAuth = true

	rec := h.do(http.MethodGet, "/purchase-orders", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/auth/login", rec.Header().Get("Location"))
}

func TestListTabsAndFailure(t *testing.T) {
	h := newHarness(t)
	sent := h.order("sent")
	h.order("draft")

	rec := h.do(http.MethodGet, "/purchase-orders?status=sent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, sent.PONumber)
	require.Equal(t, 1, strings.Count(body, `<tr>`)-1)
	require.Contains(t, body, `class="tab active">Sent`)

	h.srv.Close()
	rec = h.do(http.MethodGet, "/purchase-orders", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "Failed to load")
}

func TestReceiveRejectsIncompleteBatch(t *testing.T) {
	h := newHarness(t)
	po := h.srv.PutOrder(erpapi.PurchaseOrder{
		VendorID: h.vendor.ID,
		Status:   "sent",
		LineItems: []erpapi.POLineItem{
			{ProductID: h.product.ID, QuantityOrdered: 10},
			{ProductID: h.product.ID, QuantityOrdered: 2},
		},
	})

	rec := h.do(http.MethodGet, "/purchase-orders/"+po.ID+"/receive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Receive Goods - "+po.PONumber)
	require.Contains(t, body, "W01 &gt; A &gt; A-01")
	require.Contains(t, body, "Confirm Receipt")

	form := url.Values{
		FieldPONumber:       {po.PONumber},
		FieldRowLineItem:    {po.LineItems[0].ID, po.LineItems[1].ID},
		FieldRowProduct:     {h.product.ID, h.product.ID},
		FieldRowOrdered:     {"10", "2"},
		FieldRowReceived:    {"0", "0"},
		FieldRowOutstanding: {"10", "2"},
		FieldRowQuantity:    {"4", "2"},
		FieldRowLocation:    {h.location, ""},
	}
	rec = h.do(http.MethodPost, "/purchase-orders/"+po.ID+"/receive", form)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Select a location and quantity for all items")
	require.Zero(t, h.srv.Calls("POST /purchase-orders/{id}/receive"))

	form[FieldRowLocation] = []string{h.location, h.location}
	page := h.follow(h.do(http.MethodPost, "/purchase-orders/"+po.ID+"/receive", form))
	require.Contains(t, page.Body.String(), "Goods received successfully")
	require.Contains(t, page.Body.String(), "Partially Received")
	require.Equal(t, 1, h.srv.Calls("POST /purchase-orders/{id}/receive"))

	stored, _ := h.srv.Order(po.ID)
	require.Equal(t, 4, stored.LineItems[0].QuantityReceived)
	require.Equal(t, 2, stored.LineItems[1].QuantityReceived)
}

func TestReceivePlaceholderForClosedOrder(t *testing.T) {
	h := newHarness(t)
	po := h.order("received")

	rec := h.do(http.MethodGet, "/purchase-orders/"+po.ID+"/receive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Select a PO to receive against.")
	require.NotContains(t, rec.Body.String(), "Confirm Receipt")
}

func TestTotalsEndpoint(t *testing.T) {
	h := newHarness(t)

	form := h.createForm()
	form.Set(FieldTax, "1.5")
	rec := h.do(http.MethodPost, "/purchase-orders/totals", form)
	require.Equal(t, http.StatusOK, rec.Code)
	var totals totalsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &totals))
	require.Equal(t, "$30.00", totals.Subtotal)
	require.Equal(t, "$1.50", totals.Tax)
	require.Equal(t, "$31.50", totals.Total)
	require.Equal(t, "$30.00", totals.Lines["0"])
}

func TestOversizedAmountsAreRejected(t *testing.T) {
	h := newHarness(t)

	form := h.createForm()
	form.Set(FieldLineUnitPrice, "1e308")
	form.Set(FieldLineQuantity, "10")
	rec := h.do(http.MethodPost, "/purchase-orders/totals", form)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, ErrAmountOutOfRange.Error(), problem.Detail)

	form.Set(intentField, intentRecalc)
	rec = h.do(http.MethodPost, "/purchase-orders", form)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `data-total="subtotal">-</strong>`)
	require.Contains(t, body, "</html>")

	form.Set(intentField, intentSave)
	rec = h.do(http.MethodPost, "/purchase-orders", form)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), ErrAmountOutOfRange.Error())
	require.Zero(t, h.srv.Calls("POST /purchase-orders"))
}

func TestEnterKeyDefaultsToRecalculate(t *testing.T) {
	h := newHarness(t)
	po := h.order("draft")

	rec := h.do(http.MethodGet, "/purchase-orders/"+po.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	start := strings.Index(body, `class="po-form"`)
	require.NotEqual(t, -1, start)
	formBody := body[start:]
	first := strings.Index(formBody, `type="submit"`)
	require.NotEqual(t, -1, first)
	end := strings.Index(formBody[first:], ">")
	button := formBody[first : first+end]
	require.Contains(t, button, `value="recalculate"`)
	require.Less(t, first, strings.Index(formBody, `value="remove:`))
}

func TestCreateRejectedByServerKeepsInput(t *testing.T) {
	h := newHarness(t)
	h.srv.FailNext("POST /purchase-orders", http.StatusUnprocessableEntity, []map[string]string{
		{"msg": "Vendor is on hold"},
		{"msg": "Check quantities"},
	})

	form := h.createForm()
	form.Set(FieldLineQuantity, "7")
	form.Set(FieldLineUnitPrice, "12.5")
	form.Set(FieldShipping, "12 Harbor Rd")
	form.Set(FieldNotes, "Deliver to dock 4")
	rec := h.do(http.MethodPost, "/purchase-orders", form)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 1, h.srv.Calls("POST /purchase-orders"))

	body := rec.Body.String()
	require.Contains(t, body, "Vendor is on hold, Check quantities")
	require.Contains(t, body, `name="line_quantity" min="1" max="1000000" step="1" value="7"`)
	require.Contains(t, body, `value="12.50"`)
	require.Contains(t, body, `value="`+h.vendor.ID+`" selected`)
	require.Contains(t, body, `value="`+h.product.ID+`" data-cost="10.00" selected`)
	require.Contains(t, body, "12 Harbor Rd")
	require.Contains(t, body, "Deliver to dock 4")
	require.Contains(t, body, "$87.50")
	require.Contains(t, h.logs.String(), `level=ERROR msg="create purchase order"`)
}

func TestReceiveRejectedByServerKeepsInput(t *testing.T) {
	h := newHarness(t)
	po := h.srv.PutOrder(erpapi.PurchaseOrder{
		VendorID: h.vendor.ID,
		Status:   "sent",
		LineItems: []erpapi.POLineItem{
			{ProductID: h.product.ID, QuantityOrdered: 10},
			{ProductID: h.product.ID, QuantityOrdered: 2},
		},
	})
	h.srv.FailNext("POST /purchase-orders/{id}/receive", http.StatusUnprocessableEntity, "Location A-01 is full")

	form := url.Values{
		FieldPONumber:       {po.PONumber},
		FieldRowLineItem:    {po.LineItems[0].ID, po.LineItems[1].ID},
		FieldRowProduct:     {h.product.ID, h.product.ID},
		FieldRowOrdered:     {"10", "2"},
		FieldRowReceived:    {"0", "0"},
		FieldRowOutstanding: {"10", "2"},
		FieldRowQuantity:    {"4", "1"},
		FieldRowLocation:    {h.location, h.location},
		FieldReceiptNotes:   {"Pallet 3 damaged"},
	}
	rec := h.do(http.MethodPost, "/purchase-orders/"+po.ID+"/receive", form)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 1, h.srv.Calls("POST /purchase-orders/{id}/receive"))

	body := rec.Body.String()
	require.Contains(t, body, "Location A-01 is full")
	require.Contains(t, body, `name="row_quantity" min="1" max="10" step="1" value="4"`)
	require.Contains(t, body, `name="row_quantity" min="1" max="2" step="1" value="1"`)
	require.Equal(t, 2, strings.Count(body, `value="`+h.location+`" selected`))
	require.Contains(t, body, "Pallet 3 damaged")

	stored, _ := h.srv.Order(po.ID)
	require.Zero(t, stored.LineItems[0].QuantityReceived)
	require.Zero(t, stored.LineItems[1].QuantityReceived)
}

func TestExportAndPrint(t *testing.T) {
	h := newHarness(t)
	po := h.order("approved")

	rec := h.do(http.MethodGet, "/purchase-orders/"+po.ID+"/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), po.PONumber+".xlsx")
	require.NotEmpty(t, rec.Body.Bytes())

	rec = h.do(http.MethodGet, "/purchase-orders/"+po.ID+"/print", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, h.pdf.html, "Purchase Order "+po.PONumber)
	require.Contains(t, h.pdf.html, "V001 - Acme Supply")
}

func TestDownloadNamesAreEscaped(t *testing.T) {
	h := newHarness(t)
	po := h.srv.PutOrder(erpapi.PurchaseOrder{PONumber: `PO "7"; x=1`, VendorID: h.vendor.ID, Status: "approved"})

	rec := h.do(http.MethodGet, "/purchase-orders/"+po.ID+"/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	kind, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	require.Equal(t, "attachment", kind)
	require.Equal(t, `PO "7"; x=1.xlsx`, params["filename"])
	require.NotContains(t, params, "x")

	rec = h.do(http.MethodGet, "/purchase-orders/"+po.ID+"/print", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	kind, params, err = mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	require.Equal(t, "inline", kind)
	require.Equal(t, `PO "7"; x=1.pdf`, params["filename"])
}
