// Package main is the entrypoint for the storefront client (binary name "storefront").
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/purelygoods/storefront/internal/config"
	"github.com/purelygoods/storefront/internal/server"
	"github.com/purelygoods/storefront/pkg/db"
	"github.com/purelygoods/storefront/pkg/endpoints"
	"github.com/purelygoods/storefront/pkg/services"
)

const usage = `Usage: storefront [command]
       storefront serve              Start the storefront (payment component, HTTP health).
       storefront ping [service]     Dispatch SERVICE.PING once and log the outcome (default PAYMENT).
       storefront endpoints          Print the resolved endpoint table.
       storefront migrate up         Run database migrations.
       storefront migrate status     Show migration status.
       storefront seed               Write the active endpoint table (ENDPOINTS_FILE or built-in) to the database.
       storefront clear              Truncate the endpoints table; schema is preserved.

Commands:
  serve           (default) Start the storefront.
  ping [service]  Exit status 1 when the request fails.
  endpoints       List service, operation and URL for every endpoint.
  migrate up      Run database migrations only.
  migrate status  Show current migration status.
  seed            Replace the endpoints table with the active table.
  clear           Truncate endpoint data; schema preserved.

Environment: API_URL (default http://localhost:8080), ENDPOINTS_FILE, ENDPOINTS_FROM_DB,
DATABASE_URL (required for migrate, seed, clear), MIGRATION_PATH, COMMS_URL, HTTP_PORT, LOG_LEVEL. See README.
`

var errRequestFailed = errors.New("request failed")

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "ping":
		service := string(endpoints.ServicePayment)
		if len(args) > 1 && args[1] != "" {
			service = args[1]
		}
		if err := runPingCommand(service); err != nil {
			if errors.Is(err, errRequestFailed) {
				os.Exit(1)
			}
			log.Fatalf("storefront ping: %v", err)
		}
		return
	case "endpoints":
		if err := runEndpoints(); err != nil {
			log.Fatalf("storefront endpoints: %v", err)
		}
		return
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("storefront migrate: require subcommand (up, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("storefront migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("storefront migrate status: %v", err)
			}
		default:
			log.Fatalf("storefront migrate: unknown subcommand %q (use up, status)", sub)
		}
		return
	case "seed":
		if err := runSeed(); err != nil {
			log.Fatalf("storefront seed: %v", err)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("storefront clear: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("storefront: %v", err)
	}
}

func loadClientConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForClient(); err != nil {
		return nil, err
	}
	server.SetupLogging(cfg)
	return cfg, nil
}

func runPingCommand(service string) error {
	cfg, err := loadClientConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg, server.AppOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	return runPing(ctx, app, service, slog.Default())
}

// runPing dispatches SERVICE.PING and logs the outcome. The payment service
// goes through the payment component so the output matches serve.
func runPing(ctx context.Context, app *server.App, service string, logger *slog.Logger) error {
	svc := endpoints.Service(strings.ToUpper(strings.TrimSpace(service)))
	if svc == endpoints.ServicePayment {
		comp := services.NewPaymentComponent(app.Payment, logger)
		comp.Init(ctx)
		if out := comp.Wait(); !out.OK() {
			return errRequestFailed
		}
		return nil
	}

	key := endpoints.Key{Service: svc, Operation: endpoints.OperationPing}
	out, err := app.Client.Call(ctx, key)
	if err != nil {
		return err
	}
	services.LogOutcome(logger, "storefront:ping", key, out)
	if !out.OK() {
		return errRequestFailed
	}
	return nil
}

func runEndpoints() error {
	cfg, err := loadClientConfig()
	if err != nil {
		return err
	}
	table, err := server.LoadEndpointTable(context.Background(), cfg)
	if err != nil {
		return err
	}
	reg, err := endpoints.NewRegistry(cfg.APIURL, table)
	if err != nil {
		return err
	}
	return printEndpoints(os.Stdout, reg)
}

func printEndpoints(w io.Writer, reg *endpoints.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tOPERATION\tURL")
	for _, e := range reg.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Service, e.Operation, e.URL)
	}
	return tw.Flush()
}

func openDB(ctx context.Context) (*config.Config, *db.Repository, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, nil, nil, err
	}
	server.SetupLogging(cfg)
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db.NewRepository(pool), pool.Close, nil
}

func runMigrateUp() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	applied, files, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
	if err != nil {
		return err
	}
	fmt.Printf("migration files: %d\nendpoints table present: %t\n", files, applied)
	return nil
}

func runSeed() error {
	ctx := context.Background()
	cfg, repo, closeDB, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	table, err := endpoints.LoadTableFile(cfg.EndpointsFile)
	if err != nil {
		return err
	}
	if err := table.Validate(endpoints.RequiredKeys); err != nil {
		return err
	}
	return repo.ReplaceTable(ctx, table)
}

func runClear() error {
	ctx := context.Background()
	_, repo, closeDB, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	return repo.Clear(ctx)
}
