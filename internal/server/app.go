package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/purelygoods/storefront/internal/config"
	"github.com/purelygoods/storefront/pkg/commsutil"
	"github.com/purelygoods/storefront/pkg/db"
	"github.com/purelygoods/storefront/pkg/dispatcher"
	"github.com/purelygoods/storefront/pkg/endpoints"
	"github.com/purelygoods/storefront/pkg/events"
	"github.com/purelygoods/storefront/pkg/services"
)

const appLogPrefix = "server:app"

// App is the constructed application: registry, dispatcher, client and the
// feature services built on top of it. Construction is explicit; there is no
// container.
type App struct {
	Config   *config.Config
	Registry *endpoints.Registry
	Client   *services.Client
	Payment  *services.PaymentService
	Cart     *services.CartService

	nc *comms.Conn
}

// AppOptions overrides parts of the App built by NewApp. Zero values use the
// config-derived defaults (http.DefaultClient, NATS or no-op publisher).
type AppOptions struct {
	HTTPClient dispatcher.Doer
	Publisher  events.OutcomePublisher
}

// SetupLogging installs the default slog text handler at the configured level.
func SetupLogging(cfg *config.Config) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
}

// LoadEndpointTable returns the endpoint table from the configured source:
// ENDPOINTS_FROM_DB, then ENDPOINTS_FILE, then the built-in table.
func LoadEndpointTable(ctx context.Context, cfg *config.Config) (endpoints.Table, error) {
	if cfg.EndpointsFromDB {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to database: %w", appLogPrefix, err)
		}
		defer pool.Close()
		return LoadEndpointTableFromDB(ctx, pool)
	}
	if cfg.EndpointsFile != "" {
		slog.Info(fmt.Sprintf("%s - Loading endpoint table from %s", appLogPrefix, cfg.EndpointsFile))
	}
	return endpoints.LoadTableFile(cfg.EndpointsFile)
}

// LoadEndpointTableFromDB reads the endpoint table from the endpoints table.
func LoadEndpointTableFromDB(ctx context.Context, pool *pgxpool.Pool) (endpoints.Table, error) {
	table, err := db.NewRepository(pool).LoadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load endpoint table: %w", appLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Loaded endpoint table from database", appLogPrefix))
	return table, nil
}

// NewApp builds the App from cfg. When COMMS_URL is set and no publisher
// override is given, outcomes are published to NATS.
func NewApp(ctx context.Context, cfg *config.Config, opts AppOptions) (*App, error) {
	table, err := LoadEndpointTable(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg, err := endpoints.NewRegistry(cfg.APIURL, table)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to build endpoint registry: %w", appLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Endpoint registry ready at %s (%d endpoints)", appLogPrefix, reg.BaseURL(), len(reg.Keys())))

	app := &App{Config: cfg, Registry: reg}

	publisher := opts.Publisher
	if publisher == nil {
		publisher = &events.NoOpPublisher{}
		if cfg.COMMSURL != "" {
			nc, err := commsutil.Connect(cfg.COMMSURL, cfg.ServiceName)
			if err != nil {
				return nil, fmt.Errorf("%s - failed to connect to NATS: %w", appLogPrefix, err)
			}
			app.nc = nc
			publisher = events.NewCommsPublisher(nc, &events.CommsPublisherOpts{Subject: cfg.OutcomeEventSubject})
			slog.Info(fmt.Sprintf("%s - Publishing outcomes to %s", appLogPrefix, cfg.OutcomeEventSubject))
		}
	}

	disp := dispatcher.NewDispatcher(dispatcher.Options{
		Client:    opts.HTTPClient,
		UserAgent: cfg.ServiceName,
		Timeout:   cfg.RequestTimeout,
	})

	app.Client = services.NewClient(reg, disp, publisher)
	app.Payment = services.NewPaymentService(app.Client)
	app.Cart = services.NewCartService(app.Client)
	return app, nil
}

// Close releases the NATS connection, if any, after flushing pending events.
func (a *App) Close() {
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			slog.Warn(fmt.Sprintf("%s - NATS drain failed: %v", appLogPrefix, err))
		}
		a.nc = nil
	}
}
