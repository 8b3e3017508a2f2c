// Command consolectl runs operational tasks against the console's queue and
// the ERP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/erp-console/cmd/consolectl/cli"
	"github.com/odyssey-erp/erp-console/internal/app"
	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/purchasing"
)

const usage = `usage: consolectl <command> [flags]

commands:
  jobs trigger [-task locations:warmup]   enqueue a background job
  jobs stats [-json]                      show default queue counters
  jobs scheduled [-size N]                list scheduled tasks
  locations list [-json]                  print the putaway location catalog
  po export -id ID [-out FILE]            write a purchase order workbook
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
	cfg, err := app.LoadOpsConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	group, action, rest := args[0], args[1], args[2:]
	switch group {
	case "jobs":
		return runJobs(ctx, cfg, action, rest, stdout, stderr)
	case "locations", "po":
		client, err := erpapi.NewClient(erpapi.Options{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout, Logger: logger})
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "api client: %v\n", err)
			return 1
		}
		if group == "locations" && action == "list" {
			return runLocations(ctx, cfg, client, rest, stdout, stderr)
		}
		if group == "po" && action == "export" {
			return runExport(ctx, cfg, client, logger, rest, stdout, stderr)
		}
	}
	_, _ = fmt.Fprint(stderr, usage)
	return 2
}

func runJobs(ctx context.Context, cfg *app.Config, action string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("jobs "+action, flag.ContinueOnError)
	fs.SetOutput(stderr)
	task := fs.String("task", "", "job type to enqueue")
	size := fs.Int("size", 10, "page size for scheduled tasks")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := asynq.NewClient(redisOpts)
	defer func() { _ = client.Close() }()
	inspector := asynq.NewInspector(redisOpts)
	defer func() { _ = inspector.Close() }()

	return cli.NewJobsCLI(client, inspector).JobsCommand(ctx, cli.JobsOptions{
		Action:     action,
		Task:       *task,
		Size:       *size,
		JSONOutput: *jsonOut,
		Stdout:     stdout,
		Stderr:     stderr,
	})
}

func runLocations(ctx context.Context, cfg *app.Config, client *erpapi.Client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("locations list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOut := fs.Bool("json", false, "print JSON")
	concurrency := fs.Int("concurrency", cfg.LocationFetchConcurrency, "parallel warehouse fetches")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return cli.LocationsCommand(ctx, cli.LocationsOptions{
		Source:      client,
		Auth:        client,
		Email:       cfg.APIServiceEmail,
		Password:    cfg.APIServicePassword,
		Concurrency: *concurrency,
		JSONOutput:  *jsonOut,
		Stdout:      stdout,
		Stderr:      stderr,
	})
}

func runExport(ctx context.Context, cfg *app.Config, client *erpapi.Client, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("po export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	id := fs.String("id", "", "purchase order id")
	out := fs.String("out", "", "output file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return cli.ExportCommand(ctx, cli.ExportOptions{
		Orders:   purchasing.NewService(client, logger, cfg.Location()),
		Auth:     client,
		Email:    cfg.APIServiceEmail,
		Password: cfg.APIServicePassword,
		ID:       *id,
		Out:      *out,
		Stdout:   stdout,
		Stderr:   stderr,
	})
}
