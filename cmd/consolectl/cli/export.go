package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/purchasing"
)

// OrderSource loads an order and the labels used in its workbook.
type OrderSource interface {
	LoadOrder(ctx context.Context, id string) (erpapi.PurchaseOrder, error)
	References(ctx context.Context) purchasing.References
}

// ExportOptions defines the flags for the po export command.
type ExportOptions struct {
	Orders   OrderSource
	Auth     Authenticator
	Email    string
	Password string
	ID       string
	Out      string
	Stdout   io.Writer
	Stderr   io.Writer
}

// ExportCommand writes one purchase order as an XLSX workbook. Out defaults
// to the console's download filename in the working directory.
func ExportCommand(ctx context.Context, opts ExportOptions) int {
	opts.Stdout, opts.Stderr = outputs(opts.Stdout, opts.Stderr)
	if opts.ID == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "po export: --id is required")
		return 2
	}
	ctx, ok := signIn(ctx, opts.Auth, opts.Email, opts.Password, opts.Stderr, "po export")
	if !ok {
		return 1
	}
	po, err := opts.Orders.LoadOrder(ctx, opts.ID)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "po export: %s\n", erpapi.ExtractMessage(err, "Not found"))
		return 1
	}
	workbook, err := purchasing.ExportWorkbook(po, opts.Orders.References(ctx))
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "po export: %v\n", err)
		return 1
	}
	out := opts.Out
	if out == "" {
		out = purchasing.ExportFilename(po)
	}
	if err := os.WriteFile(out, workbook, 0o644); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "po export: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "wrote %s (%s, %d lines)\n", out, po.PONumber, len(po.LineItems))
	return 0
}
