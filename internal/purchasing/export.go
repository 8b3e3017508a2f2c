package purchasing

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/format"
)

const exportSheet = "Purchase Order"

var exportColumns = []struct {
	title string
	width float64
}{
	{"#", 6},
	{"Product", 36},
	{"Ordered", 10},
	{"Received", 10},
	{"Outstanding", 12},
	{"Unit Price", 14},
	{"Line Total", 14},
}

// ExportWorkbook renders an order as an XLSX workbook.
func ExportWorkbook(po erpapi.PurchaseOrder, refs References) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return nil, err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}

	header := [][2]string{
		{"PO Number", po.PONumber},
		{"Vendor", refs.VendorLabel(po.VendorID)},
		{"Status", Status(po.Status).Label()},
		{"Order Date", format.Date(po.OrderDate)},
		{"Expected Delivery", format.Date(po.ExpectedDeliveryDate)},
	}
	sw := &sheetWriter{f: f, sheet: exportSheet}
	for i, kv := range header {
		row := i + 1
		sw.value(fmt.Sprintf("A%d", row), kv[0])
		sw.value(fmt.Sprintf("B%d", row), kv[1])
		sw.style(fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), boldStyle)
	}

	tableRow := len(header) + 2
	for i, col := range exportColumns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		cell := fmt.Sprintf("%s%d", name, tableRow)
		sw.value(cell, col.title)
		sw.style(cell, cell, boldStyle)
		sw.width(name, col.width)
	}

	row := tableRow
	for i, li := range po.LineItems {
		row++
		sw.value(fmt.Sprintf("A%d", row), i+1)
		sw.value(fmt.Sprintf("B%d", row), refs.LabelOf(li.ProductID))
		sw.value(fmt.Sprintf("C%d", row), li.QuantityOrdered)
		sw.value(fmt.Sprintf("D%d", row), li.QuantityReceived)
		sw.value(fmt.Sprintf("E%d", row), li.Outstanding())
		sw.value(fmt.Sprintf("F%d", row), li.UnitPrice)
		sw.value(fmt.Sprintf("G%d", row), li.LineTotal)
		sw.style(fmt.Sprintf("F%d", row), fmt.Sprintf("G%d", row), moneyStyle)
	}

	totals := [][2]any{
		{"Subtotal", po.Subtotal},
		{"Tax", po.TaxAmount},
		{"Total", po.TotalAmount},
	}
	row++
	for _, kv := range totals {
		row++
		sw.value(fmt.Sprintf("F%d", row), kv[0])
		sw.value(fmt.Sprintf("G%d", row), kv[1])
		sw.style(fmt.Sprintf("F%d", row), fmt.Sprintf("F%d", row), boldStyle)
		sw.style(fmt.Sprintf("G%d", row), fmt.Sprintf("G%d", row), moneyStyle)
	}
	if sw.err != nil {
		return nil, fmt.Errorf("fill workbook: %w", sw.err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFilename is the download name for an order workbook.
func ExportFilename(po erpapi.PurchaseOrder) string {
	name := po.PONumber
	if name == "" {
		name = po.ID
	}
	return name + ".xlsx"
}

// sheetWriter keeps the first error from a run of cell writes.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) value(cell string, v any) {
	if w.err == nil {
		w.err = w.f.SetCellValue(w.sheet, cell, v)
	}
}

func (w *sheetWriter) style(from, to string, styleID int) {
	if w.err == nil {
		w.err = w.f.SetCellStyle(w.sheet, from, to, styleID)
	}
}

func (w *sheetWriter) width(col string, width float64) {
	if w.err == nil {
		w.err = w.f.SetColWidth(w.sheet, col, col, width)
	}
}
