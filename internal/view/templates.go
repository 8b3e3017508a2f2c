package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/format"
	"github.com/odyssey-erp/erp-console/internal/shared"
	"github.com/odyssey-erp/erp-console/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        string
	Data        any
}

// NewEngine parses templates at build-time. Feature packages contribute
// extra helpers through funcs.
func NewEngine(funcs ...template.FuncMap) (*Engine, error) {
	funcMap := template.FuncMap{
		"formatCurrency":         format.Currency,
		"formatOptionalCurrency": format.OptionalCurrency,
		"formatNumber":           format.Number,
		"formatDate":             format.Date,
		"formatDateTime":         format.DateTime,
		"formatTimestamp": func(t erpapi.Timestamp) string {
			return format.DateTime(&t)
		},
		"formatDay": func(t erpapi.Timestamp) string {
			if t.IsZero() {
				return format.Missing
			}
			return t.UTC().Format("2006-01-02")
		},
		"statusLabel": func(s string) string { return s },
		"statusColor": func(string) string { return "default" },
		"lineTotal": func(qty int, price float64) float64 {
			return float64(qty) * price
		},
		"priceValue": func(v float64) string {
			return strconv.FormatFloat(v, 'f', 2, 64)
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}
	for _, extra := range funcs {
		for name, fn := range extra {
			funcMap[name] = fn
		}
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// RenderString executes a named template into memory, e.g. for PDF conversion.
func (e *Engine) RenderString(name string, data TemplateData) (string, error) {
	if e == nil {
		return "", fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
