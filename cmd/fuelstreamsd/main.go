// Command fuelstreamsd runs the streaming spine described by spec.md:
// the block executor, subscription engine, WebSocket gateway, and REST
// query API over a shared store and broker. Grounded on
// orbas1-Synnergy's cmd/synnergy cobra root-command shape.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fuelstreams/internal/auth"
	"fuelstreams/internal/broker"
	brokermem "fuelstreams/internal/broker/memory"
	brokernats "fuelstreams/internal/broker/nats"
	"fuelstreams/internal/executor"
	"fuelstreams/internal/metrics"
	"fuelstreams/internal/record"
	"fuelstreams/internal/restapi"
	"fuelstreams/internal/store"
	"fuelstreams/internal/subscription"
	"fuelstreams/internal/wsgateway"
	"fuelstreams/pkg/config"
)

func main() {
	root := &cobra.Command{Use: "fuelstreamsd"}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(keysCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

func serveCmd() *cobra.Command {
	var httpAddr string
	var wsAddr string
	var metricsAddr string
	var brokerKind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the executor, subscription engine, REST API, and WebSocket gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := newLogger(cfg.Logging.Level)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := store.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			b, err := newBroker(ctx, cfg, brokerKind)
			if err != nil {
				return fmt.Errorf("connect broker: %w", err)
			}
			defer b.Close()

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)

			authEngine, err := auth.New(apiKeyLookup(st), cfg.Auth.CacheCapacity, time.Duration(cfg.Auth.RateWindowMS)*time.Millisecond)
			if err != nil {
				return fmt.Errorf("build auth engine: %w", err)
			}

			ex := &executor.Executor{
				Broker:    b,
				Store:     st,
				Namespace: cfg.Namespace,
				Retry: executor.RetryConfig{
					MaxAttempts:    cfg.ExecutorRetry.MaxAttempts,
					InitialDelay:   time.Duration(cfg.ExecutorRetry.InitialDelayMS) * time.Millisecond,
					AttemptTimeout: time.Duration(cfg.ExecutorRetry.TimeoutMS) * time.Millisecond,
				},
				MaxWorkers:  cfg.WS.MaxWorkers,
				Compression: compressionFromString(cfg.Compression),
				Log:         log,
				OnStats:     m.ObserveExecutorStats,
			}

			execErrCh := make(chan error, 1)
			go func() { execErrCh <- ex.Run(ctx) }()

			headFn := func(ctx context.Context) (uint64, error) { return currentHead(ctx, st) }

			gw := &wsgateway.Gateway{
				Auth:    authEngine,
				Store:   st,
				Broker:  b,
				Log:     log,
				Head:    headFn,
				Metrics: m,
				Opts: wsgateway.Options{
					PingInterval:     time.Duration(cfg.WS.PingIntervalMS) * time.Millisecond,
					HeartbeatTimeout: time.Duration(cfg.WS.HeartbeatTimeoutMS) * time.Millisecond,
					Pacing: subscription.Pacing{
						ThrottleHistorical: time.Duration(cfg.Stream.ThrottleHistoricalMS) * time.Millisecond,
						ThrottleLive:       time.Duration(cfg.Stream.ThrottleLiveMS) * time.Millisecond,
					},
				},
			}

			api := &restapi.Server{Store: st, Auth: authEngine, Log: log, Metrics: m}

			wsMux := http.NewServeMux()
			wsMux.Handle("/ws", gw)
			wsServer := &http.Server{Addr: wsAddr, Handler: wsMux}

			restServer := &http.Server{Addr: httpAddr, Handler: api.Router()}

			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			metricsServer := &http.Server{Addr: metricsAddr, Handler: metricsMux}

			go func() {
				log.WithField("addr", httpAddr).Info("rest api listening")
				if err := restServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.WithError(err).Error("rest api stopped")
				}
			}()
			go func() {
				log.WithField("addr", wsAddr).Info("websocket gateway listening")
				if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.WithError(err).Error("websocket gateway stopped")
				}
			}()
			go func() {
				log.WithField("addr", metricsAddr).Info("metrics listening")
				if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.WithError(err).Error("metrics server stopped")
				}
			}()

			select {
			case <-ctx.Done():
				log.Info("shutdown signal received, draining in-flight work")
			case err := <-execErrCh:
				if err != nil && ctx.Err() == nil {
					log.WithError(err).Error("executor exited unexpectedly")
				}
			}

			grace, cancel := context.WithTimeout(context.Background(), 90*time.Second)
			defer cancel()
			_ = restServer.Shutdown(grace)
			_ = wsServer.Shutdown(grace)
			_ = metricsServer.Shutdown(grace)
			_ = b.Flush(grace)

			return nil
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "REST API listen address")
	cmd.Flags().StringVar(&wsAddr, "ws-addr", ":8081", "WebSocket gateway listen address")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus metrics listen address")
	cmd.Flags().StringVar(&brokerKind, "broker", "nats", "broker backend: nats or memory")
	return cmd
}

func compressionFromString(s string) record.CompressionMode {
	if s == "none" {
		return record.CompressionNone
	}
	return record.CompressionZstd
}

func newBroker(ctx context.Context, cfg *config.Config, kind string) (broker.Broker, error) {
	if kind == "memory" {
		return brokermem.New(broker.Namespace(cfg.Namespace), 1024), nil
	}
	return brokernats.Connect(ctx, brokernats.Options{
		URL:            cfg.Broker.URL,
		ClientName:     cfg.Broker.ClientName,
		ConnectTimeout: time.Duration(cfg.Broker.ConnectTimeoutMS) * time.Millisecond,
		MaxReconnects:  cfg.Broker.MaxReconnects,
		Namespace:      broker.Namespace(cfg.Namespace),
	})
}

// apiKeyLookup adapts the store's api_keys table to auth.Lookup. Table
// shape: api_keys(key, id, status, role_name, scopes, rate_limit_per_minute,
// subscription_limit, historical_limit) -- the one table in spec §6.2's
// schema not derived from the subject registry, since keys aren't records.
func apiKeyLookup(st *store.Store) auth.Lookup {
	return func(ctx context.Context, key string) (*auth.APIKey, bool, error) {
		row := st.Pool().QueryRow(ctx,
			`SELECT id, status, role_name, scopes, rate_limit_per_minute, subscription_limit, historical_limit
			 FROM api_keys WHERE key = $1`, key)

		var (
			id, status, roleName  string
			scopesRaw              []string
			rateLimit, subLimit    int
			historicalLimit        int64
		)
		if err := row.Scan(&id, &status, &roleName, &scopesRaw, &rateLimit, &subLimit, &historicalLimit); err != nil {
			return nil, false, nil
		}

		scopes := make([]auth.Scope, 0, len(scopesRaw))
		for _, s := range scopesRaw {
			scopes = append(scopes, scopeFromString(s))
		}

		return &auth.APIKey{
			ID:     id,
			Status: statusFromString(status),
			Role: auth.Role{
				Name:               roleName,
				Scopes:             scopes,
				RateLimitPerMinute: rateLimit,
				SubscriptionLimit:  subLimit,
				HistoricalLimit:    historicalLimit,
			},
		}, true, nil
	}
}

func statusFromString(s string) auth.Status {
	switch s {
	case "inactive":
		return auth.StatusInactive
	case "deleted":
		return auth.StatusDeleted
	default:
		return auth.StatusActive
	}
}

func scopeFromString(s string) auth.Scope {
	switch s {
	case "live_data":
		return auth.ScopeLiveData
	case "historical_data":
		return auth.ScopeHistoricalData
	case "rest_api":
		return auth.ScopeRestApi
	case "manage_api_keys":
		return auth.ScopeManageApiKeys
	default:
		return auth.ScopeFull
	}
}

// currentHead resolves the store's current chain head for the historical-
// reach check (auth.CheckHistoricalReach), reading max(block_height) from
// the blocks table.
func currentHead(ctx context.Context, st *store.Store) (uint64, error) {
	var height int64
	err := st.Pool().QueryRow(ctx, "SELECT COALESCE(MAX(block_height), 0) FROM blocks").Scan(&height)
	if err != nil {
		return 0, err
	}
	return uint64(height), nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply the relational schema (one table per entity family, spec §6.2)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx := context.Background()
			st, err := store.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			for _, stmt := range store.MigrationStatements() {
				if _, err := st.Pool().Exec(ctx, stmt); err != nil {
					return fmt.Errorf("apply migration: %w", err)
				}
			}
			fmt.Println("schema applied")
			return nil
		},
	}
}

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "keys", Short: "manage API keys"}

	var roleName string
	var rateLimit, subLimit int
	var historicalLimit int64
	var scopesFlag []string

	create := &cobra.Command{
		Use:   "create [key]",
		Short: "register a new API key with a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx := context.Background()
			st, err := store.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			_, err = st.Pool().Exec(ctx,
				`INSERT INTO api_keys (key, id, status, role_name, scopes, rate_limit_per_minute, subscription_limit, historical_limit)
				 VALUES ($1, $2, 'active', $3, $4, $5, $6, $7)
				 ON CONFLICT (key) DO UPDATE SET role_name = EXCLUDED.role_name, scopes = EXCLUDED.scopes,
					rate_limit_per_minute = EXCLUDED.rate_limit_per_minute, subscription_limit = EXCLUDED.subscription_limit,
					historical_limit = EXCLUDED.historical_limit`,
				args[0], args[0], roleName, scopesFlag, rateLimit, subLimit, historicalLimit)
			if err != nil {
				return fmt.Errorf("create key: %w", err)
			}
			fmt.Println("key created")
			return nil
		},
	}
	create.Flags().StringVar(&roleName, "role", "default", "role name")
	create.Flags().StringSliceVar(&scopesFlag, "scopes", []string{"live_data"}, "comma-separated scopes")
	create.Flags().IntVar(&rateLimit, "rate-limit", 60, "requests per minute (-1 for unlimited)")
	create.Flags().IntVar(&subLimit, "subscription-limit", 10, "max concurrent subscriptions (-1 for unlimited)")
	create.Flags().Int64Var(&historicalLimit, "historical-limit", -1, "max historical reach in blocks (-1 for unlimited)")

	cmd.AddCommand(create)
	return cmd
}
