package purchasing

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/format"
	"github.com/odyssey-erp/erp-console/internal/locations"
	"github.com/odyssey-erp/erp-console/internal/platform/httpx"
	"github.com/odyssey-erp/erp-console/internal/shared"
	"github.com/odyssey-erp/erp-console/internal/view"
)

const (
	listPath  = "/purchase-orders"
	loginPath = "/auth/login"

	intentField  = "intent"
	intentAdd    = "add_line"
	intentRemove = "remove:"
	intentRecalc = "recalculate"
	intentSave   = "save"
)

// LocationCatalog supplies putaway options for the receipt page.
type LocationCatalog interface {
	Options(ctx context.Context) ([]locations.Option, error)
}

// PDFRenderer converts HTML to PDF.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler serves the purchase order pages.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	dispatcher *Dispatcher
	catalog    LocationCatalog
	templates  *view.Engine
	csrf       *shared.CSRFManager
	pdf        PDFRenderer
}

// HandlerDeps groups Handler collaborators.
type HandlerDeps struct {
	Logger     *slog.Logger
	Service    *Service
	Dispatcher *Dispatcher
	Catalog    LocationCatalog
	Templates  *view.Engine
	CSRF       *shared.CSRFManager
	PDF        PDFRenderer
}

// NewHandler builds Handler instance.
func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		service:    deps.Service,
		dispatcher: deps.Dispatcher,
		catalog:    deps.Catalog,
		templates:  deps.Templates,
		csrf:       deps.CSRF,
		pdf:        deps.PDF,
	}
}

// MountRoutes registers purchase order routes relative to /purchase-orders.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/new", h.showNew)
	r.Post("/", h.handleCreate)
	r.Post("/totals", h.handleTotals)
	r.Get("/{id}", h.showOrder)
	r.Post("/{id}", h.handleUpdate)
	r.Post("/{id}/actions/{action}", h.handleAction)
	r.Get("/{id}/receive", h.showReceive)
	r.Post("/{id}/receive", h.handleReceive)
	r.Get("/{id}/export.xlsx", h.handleExport)
	r.Get("/{id}/print", h.handlePrint)
}

type formErrors map[string]string

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	list, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("status"), page)
	status := http.StatusOK
	errs := formErrors{}
	if err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.logger.Error("list purchase orders", slog.Any("error", err))
		errs["general"] = "Failed to load"
		status = http.StatusBadGateway
	}
	h.render(w, r, "pages/po_list.html", "Purchase Orders", map[string]any{
		"List":   list,
		"Tabs":   ListTabs,
		"Errors": errs,
	}, status)
}

func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	form := NewOrderForm()
	refs := h.service.References(r.Context())
	h.renderForm(w, r, form, nil, refs, formErrors{}, http.StatusOK)
}

func (h *Handler) showOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	po, err := h.service.LoadOrder(r.Context(), id)
	if err != nil {
		h.orderUnavailable(w, r, id, err)
		return
	}
	refs := h.service.References(r.Context())
	h.renderForm(w, r, FormFromOrder(po), &po, refs, formErrors{}, http.StatusOK)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := DecodeOrderForm(r.PostForm)
	refs := h.service.References(r.Context())
	form.ApplyProductChanges(refs.CostOf)

	if h.applyIntent(form, r.PostFormValue(intentField)) {
		h.renderForm(w, r, form, nil, refs, formErrors{}, http.StatusOK)
		return
	}
	po, err := h.service.CreateOrder(r.Context(), form)
	if err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.logFailure("create purchase order", err)
		h.renderForm(w, r, form, nil, refs, formErrors{"general": shared.UserSafeMessage(err)}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, orderPath(po.ID), shared.FlashSuccess, "Created")
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := DecodeOrderForm(r.PostForm)
	intent := r.PostFormValue(intentField)

	if intent != "" && intent != intentSave {
		po, err := h.service.LoadOrder(r.Context(), id)
		if err != nil {
			h.orderUnavailable(w, r, id, err)
			return
		}
		if !Status(po.Status).Editable() {
			h.redirectWithFlash(w, r, orderPath(id), shared.FlashError, ErrNotEditable.Error())
			return
		}
		form.ID, form.PONumber, form.Status = po.ID, po.PONumber, Status(po.Status)
		refs := h.service.References(r.Context())
		form.ApplyProductChanges(refs.CostOf)
		h.applyIntent(form, intent)
		h.renderForm(w, r, form, &po, refs, formErrors{}, http.StatusOK)
		return
	}

	refs := h.service.References(r.Context())
	form.ApplyProductChanges(refs.CostOf)
	po, err := h.service.UpdateOrder(r.Context(), id, form)
	if err != nil {
		if errors.Is(err, erpapi.ErrNotFound) || errors.Is(err, erpapi.ErrUnauthorized) {
			h.orderUnavailable(w, r, id, err)
			return
		}
		if errors.Is(err, ErrNotEditable) {
			h.redirectWithFlash(w, r, orderPath(id), shared.FlashError, ErrNotEditable.Error())
			return
		}
		h.logFailure("update purchase order", err, slog.String("id", id))
		if po.ID == "" {
			po = erpapi.PurchaseOrder{ID: id, PONumber: form.PONumber, Status: string(form.Status)}
		}
		h.renderForm(w, r, form, &po, refs, formErrors{"general": shared.UserSafeMessage(err)}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, orderPath(po.ID), shared.FlashSuccess, "Updated")
}

// applyIntent performs a non-saving form edit. It reports false when the
// intent is a save.
func (h *Handler) applyIntent(form *OrderForm, intent string) bool {
	switch {
	case intent == intentAdd:
		form.AddLine()
	case strings.HasPrefix(intent, intentRemove):
		if key, err := strconv.Atoi(strings.TrimPrefix(intent, intentRemove)); err == nil {
			form.RemoveLine(key)
		}
	case intent == intentRecalc:
	default:
		return false
	}
	return true
}

type totalsResponse struct {
	Subtotal string            `json:"subtotal"`
	Tax      string            `json:"tax"`
	Total    string            `json:"total"`
	Lines    map[string]string `json:"lines"`
}

func (h *Handler) handleTotals(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.RespondError(w, shared.NewUserError("Invalid form submission"))
		return
	}
	form := DecodeOrderForm(r.PostForm)
	if err := form.CheckAmounts(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := totalsResponse{
		Subtotal: format.Currency(form.Subtotal()),
		Tax:      format.Currency(form.TaxAmount),
		Total:    format.Currency(form.Total()),
		Lines:    make(map[string]string, len(form.Lines)),
	}
	for _, line := range form.Lines {
		resp.Lines[strconv.Itoa(line.Key)] = format.Currency(line.LineTotal())
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	action, err := ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		h.redirectWithFlash(w, r, orderPath(id), shared.FlashError, shared.UserSafeMessage(err))
		return
	}
	if action == ActionReceive {
		http.Redirect(w, r, orderPath(id)+"/receive", http.StatusSeeOther)
		return
	}
	outcome, err := h.dispatcher.Dispatch(r.Context(), id, action)
	if err != nil {
		if errors.Is(err, erpapi.ErrNotFound) || errors.Is(err, erpapi.ErrUnauthorized) {
			h.orderUnavailable(w, r, id, err)
			return
		}
		h.logFailure("purchase order action", err, slog.String("id", id), slog.String("action", string(action)))
		h.redirectWithFlash(w, r, orderPath(id), shared.FlashError, shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, orderPath(id), shared.FlashSuccess, outcome.Message)
}

func (h *Handler) showReceive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sheet, err := h.service.LoadReceipt(r.Context(), id)
	if err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		status := http.StatusOK
		errs := formErrors{}
		if !errors.Is(err, ErrNotReceivable) {
			h.logger.Error("load receipt", slog.Any("error", err), slog.String("id", id))
			errs["general"] = shared.UserSafeMessage(err)
			if errors.Is(err, erpapi.ErrNotFound) {
				status = http.StatusNotFound
			}
		}
		h.renderReceipt(w, r, id, nil, nil, errs, status)
		return
	}
	h.renderReceipt(w, r, id, sheet, h.locationOptions(r.Context()), formErrors{}, http.StatusOK)
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sheet := DecodeReceiptSheet(id, r.PostForm)
	if _, err := h.service.Receive(r.Context(), sheet); err != nil {
		if errors.Is(err, erpapi.ErrNotFound) || errors.Is(err, erpapi.ErrUnauthorized) {
			h.orderUnavailable(w, r, id, err)
			return
		}
		h.logFailure("receive goods", err, slog.String("id", id))
		h.renderReceipt(w, r, id, sheet, h.locationOptions(r.Context()), formErrors{"general": shared.UserSafeMessage(err)}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, orderPath(id), shared.FlashSuccess, "Goods received successfully")
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	po, err := h.service.LoadOrder(r.Context(), id)
	if err != nil {
		h.orderUnavailable(w, r, id, err)
		return
	}
	workbook, err := ExportWorkbook(po, h.service.References(r.Context()))
	if err != nil {
		h.logger.Error("export purchase order", slog.Any("error", err), slog.String("id", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", contentDisposition("attachment", ExportFilename(po)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

func (h *Handler) handlePrint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	po, err := h.service.LoadOrder(r.Context(), id)
	if err != nil {
		h.orderUnavailable(w, r, id, err)
		return
	}
	if h.pdf == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	refs := h.service.References(r.Context())
	html, err := h.templates.RenderString("pages/po_print.html", view.TemplateData{
		Title: "PO " + po.PONumber,
		Data:  map[string]any{"Order": po, "Refs": refs},
	})
	if err != nil {
		h.logger.Error("render print template", slog.Any("error", err), slog.String("id", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render purchase order pdf", slog.Any("error", err), slog.String("id", id))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", contentDisposition("inline", strings.TrimSuffix(ExportFilename(po), ".xlsx")+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) locationOptions(ctx context.Context) []locations.Option {
	if h.catalog == nil {
		return nil
	}
	options, err := h.catalog.Options(ctx)
	if err != nil {
		h.logger.Error("load location catalog", slog.Any("error", err))
		return nil
	}
	return options
}

// logFailure logs err at Error level unless it is a local precondition the
// user can correct.
func (h *Handler) logFailure(msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.Any("error", err))
	var userErr *shared.UserError
	if errors.As(err, &userErr) {
		h.logger.Info(msg, attrs...)
		return
	}
	h.logger.Error(msg, attrs...)
}

// orderUnavailable handles a failed order load: expired sessions go to
// login, everything else back to the list with a notice.
func (h *Handler) orderUnavailable(w http.ResponseWriter, r *http.Request, id string, err error) {
	if h.sessionExpired(w, r, err) {
		return
	}
	if errors.Is(err, erpapi.ErrNotFound) {
		h.redirectWithFlash(w, r, listPath, shared.FlashError, "Not found")
		return
	}
	h.logger.Error("load purchase order", slog.Any("error", err), slog.String("id", id))
	h.redirectWithFlash(w, r, listPath, shared.FlashError, shared.UserSafeMessage(err))
}

// sessionExpired clears the session and sends the user to login when the
// API rejected the stored token.
func (h *Handler) sessionExpired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, erpapi.ErrUnauthorized) {
		return false
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.ClearAuth()
	}
	h.redirectWithFlash(w, r, loginPath, shared.FlashError, "Session expired, please sign in again")
	return true
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, form *OrderForm, po *erpapi.PurchaseOrder, refs References, errs formErrors, status int) {
	title := "New Purchase Order"
	formAction := listPath
	var actions []ActionButton
	if po != nil {
		title = "PO " + po.PONumber
		formAction = orderPath(po.ID)
		actions = ActionButtons(po.ID, Status(po.Status))
	}
	h.render(w, r, "pages/po_form.html", title, map[string]any{
		"Form":       form,
		"Order":      po,
		"Actions":    actions,
		"Vendors":    refs.Vendors,
		"Products":   refs.Products,
		"Disabled":   !form.Editable(),
		"FormAction": formAction,
		"Errors":     errs,
	}, status)
}

func (h *Handler) renderReceipt(w http.ResponseWriter, r *http.Request, id string, sheet *ReceiptSheet, options []locations.Option, errs formErrors, status int) {
	title := "Receive Goods"
	if sheet != nil && sheet.PONumber != "" {
		title = "Receive Goods - " + sheet.PONumber
	}
	var refs References
	if sheet != nil {
		refs = h.service.References(r.Context())
	}
	h.render(w, r, "pages/po_receive.html", title, map[string]any{
		"OrderID":   id,
		"Sheet":     sheet,
		"Refs":      refs,
		"Locations": options,
		"Errors":    errs,
	}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	var user string
	if sess != nil {
		flash = sess.PopFlash()
		user = sess.User()
	}
	viewData := view.TemplateData{Title: title, CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, User: user, Data: data}
	html, err := h.templates.RenderString(template, viewData)
	if err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func contentDisposition(kind, filename string) string {
	return mime.FormatMediaType(kind, map[string]string{"filename": filename})
}

func orderPath(id string) string {
	return listPath + "/" + id
}
