// Package app builds the service graph from configuration. Both commands
// share it so the server and dbtool see the same stores and providers.
package app

import (
	"commute-eta-service/internal/adapters/cache"
	"commute-eta-service/internal/adapters/identity"
	"commute-eta-service/internal/adapters/notify"
	"commute-eta-service/internal/adapters/repositories"
	"commute-eta-service/internal/adapters/traveltime"
	"commute-eta-service/internal/config"
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/db"
	"commute-eta-service/internal/platform/log"
	"commute-eta-service/internal/ports"
	"commute-eta-service/internal/services"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// App holds every long-lived component. Close releases them.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	Dialect db.Dialect

	Routes   *repositories.SQLRouteRepository
	Users    *repositories.SQLUserRepository
	Identity *identity.Static

	// TravelCache is set only when TRAVEL_CACHE=sql.
	TravelCache *cache.SQLTravelCache
	// Provider is nil when estimates are synthetic.
	Provider ports.TravelTimeProvider

	Estimator    *services.Estimator
	Sink         ports.NotificationSink
	Orchestrator *services.Orchestrator
	RouteService *services.RouteService
	Policy       services.NotificationPolicy
	Location     *time.Location

	closers []func(context.Context) error
}

// OpenDB connects to the configured database and ensures the schema.
func OpenDB(cfg *config.Config) (*sql.DB, db.Dialect, error) {
	dialect, err := db.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, dialect, err
	}

	var conn *sql.DB
	switch dialect {
	case db.Postgres:
		conn, err = db.Open(cfg.DatabaseURL)
	default:
		conn, err = db.OpenSQLite(cfg.DBPath)
	}
	if err != nil {
		return nil, dialect, err
	}

	if err := repositories.InitSchema(conn, dialect); err != nil {
		conn.Close()
		return nil, dialect, err
	}
	return conn, dialect, nil
}

// New wires the full graph. The MQTT connection, when selected, is started
// with ctx.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	conn, dialect, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		DB:       conn,
		Dialect:  dialect,
		Routes:   repositories.NewSQLRouteRepository(conn, dialect),
		Users:    repositories.NewSQLUserRepository(conn, dialect),
		Location: loc,
		Policy: services.NotificationPolicy{
			Lead:      cfg.NotifyLeadTime,
			Tolerance: services.NotifyTolerance,
		},
	}
	a.closers = append(a.closers, func(context.Context) error { return conn.Close() })

	if err := a.build(ctx); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	ident, err := identity.Ensure(ctx, a.Users, cfg.UserEmail)
	if err != nil {
		return err
	}
	a.Identity = ident
	user, _ := ident.Current(ctx)

	provider, err := a.travelProvider()
	if err != nil {
		return err
	}
	a.Estimator = services.NewEstimator(provider, nil)
	a.Provider = provider

	sink, err := a.notificationSink(ctx, user)
	if err != nil {
		return err
	}
	a.Sink = sink

	a.Orchestrator = services.NewOrchestrator(a.Routes, a.Identity, a.Estimator, a.Sink, services.OrchestratorConfig{
		Interval:            cfg.RefreshInterval,
		NotifyCheckInterval: cfg.NotifyCheckInterval,
		Concurrency:         cfg.RefreshConcurrency,
		Policy:              a.Policy,
		Now:                 a.Now,
	})
	a.RouteService = services.NewRouteService(a.Routes, a.Identity, a.Sink, a.Orchestrator, provider)
	return nil
}

// Now is the wall clock in the configured location.
func (a *App) Now() time.Time { return time.Now().In(a.Location) }

// travelProvider returns the configured provider behind its cache, or nil
// when TRAVEL_PROVIDER=none or the provider's API key is blank so the
// estimator always falls back.
func (a *App) travelProvider() (ports.TravelTimeProvider, error) {
	cfg := a.Config

	var provider ports.TravelTimeProvider
	switch cfg.TravelProvider {
	case "google":
		if strings.TrimSpace(cfg.GoogleMapsAPIKey) == "" {
			return synthetic("GOOGLE_MAPS_API_KEY is not set")
		}
		p, err := traveltime.NewGoogleProvider(cfg.GoogleMapsAPIKey)
		if err != nil {
			return nil, err
		}
		provider = p
	case "ors":
		if strings.TrimSpace(cfg.ORSAPIKey) == "" {
			return synthetic("ORS_API_KEY is not set")
		}
		p, err := traveltime.NewORSProvider(cfg.ORSAPIKey, cache.NewSQLGeocodeCache(a.DB, a.Dialect))
		if err != nil {
			return nil, err
		}
		provider = p
	case "none":
		return synthetic("no travel time provider configured")
	default:
		return nil, fmt.Errorf("unknown travel provider %q", cfg.TravelProvider)
	}

	switch cfg.TravelCache {
	case "sql":
		a.TravelCache = cache.NewSQLTravelCache(a.DB, a.Dialect, cfg.TravelCacheTTL)
		return traveltime.NewCachedProvider(provider, a.TravelCache), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		return traveltime.NewCachedProvider(provider, cache.NewRedisTravelCache(client, cfg.TravelCacheTTL)), nil
	default:
		return provider, nil
	}
}

func synthetic(reason string) (ports.TravelTimeProvider, error) {
	log.Warn(reason + ", estimates will be synthetic")
	return nil, nil
}

func (a *App) notificationSink(ctx context.Context, user *domain.User) (ports.NotificationSink, error) {
	cfg := a.Config

	var transport notify.Transport
	switch cfg.NotifySink {
	case "mqtt":
		if user == nil {
			return nil, errors.New("mqtt sink needs a current user")
		}
		t, err := notify.NewMQTTTransport(ctx, notify.MQTTConfig{
			BrokerURL: cfg.MQTTBroker,
			ClientID:  cfg.MQTTClientID,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			TopicRoot: cfg.MQTTTopicRoot,
			UserID:    user.ID,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, t.Close)
		transport = t
	default:
		transport = notify.NewLogTransport(nil)
	}

	gate, err := notify.NewGate(
		transport,
		domain.PermissionState(cfg.NotifyPermission),
		domain.PermissionState(cfg.NotifyPermissionAnswer),
	)
	if err != nil {
		return nil, err
	}
	return gate, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
