// scaflowd es el proceso del engine de autorización SCA.
//
// Subcomandos:
//
//	serve    — expone /metrics y /healthz y deja el engine listo para la capa
//	           API del ASPSP (que se monta en otro proceso).
//	migrate  — aplica las migraciones embebidas sobre Postgres.
//	smoke    — corre el flujo embedded completo contra el connector de demo,
//	           con store en memoria. Sin red, sin base.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/scaflow/internal/cache"
	"github.com/dropDatabas3/scaflow/internal/config"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/metrics"
	"github.com/dropDatabas3/scaflow/internal/observability/logger"
	"github.com/dropDatabas3/scaflow/internal/profile"
	"github.com/dropDatabas3/scaflow/internal/sca"
	"github.com/dropDatabas3/scaflow/internal/sca/approach"
	"github.com/dropDatabas3/scaflow/internal/sca/chain"
	"github.com/dropDatabas3/scaflow/internal/sca/confirm"
	"github.com/dropDatabas3/scaflow/internal/sca/facade"
	"github.com/dropDatabas3/scaflow/internal/sca/stage"
	"github.com/dropDatabas3/scaflow/internal/spi"
	"github.com/dropDatabas3/scaflow/internal/store"
	"github.com/dropDatabas3/scaflow/internal/store/memory"
	migrations "github.com/dropDatabas3/scaflow/migrations/postgres"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:   "scaflowd",
		Short: "Engine de autorización SCA (PSD2)",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "ruta del YAML de configuración")

	root.AddCommand(serveCmd(&cfgPath), migrateCmd(&cfgPath), smokeCmd(&cfgPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Arranca el engine y expone /metrics y /healthz",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}

			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "scaflowd"})
			defer logger.Sync()
			log := logger.L()

			storeCfg := store.Config{Driver: cfg.Storage.Driver, DSN: cfg.Storage.DSN}
			storeCfg.Postgres.MaxOpenConns = cfg.Storage.Postgres.MaxOpenConns
			storeCfg.Postgres.MinIdleConns = cfg.Storage.Postgres.MinIdleConns
			storeCfg.Postgres.ConnMaxLifetime = cfg.Storage.Postgres.ConnMaxLifetime
			stores, err := store.Open(ctx, storeCfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			cacheClient, err := cache.New(cache.Config{
				Driver: cfg.Cache.Kind,
				Addr:   cfg.Cache.Redis.Addr,
				DB:     cfg.Cache.Redis.DB,
				Prefix: cfg.Cache.Redis.Prefix,
			})
			if err != nil {
				return err
			}
			defer cacheClient.Close()

			reg := prometheus.NewRegistry()
			if err := metrics.RegisterSCA(reg); err != nil {
				return err
			}

			// Wiring del engine. El connector real del ASPSP se registra acá;
			// hasta entonces queda el de demo para poder levantar el proceso.
			profiles := profile.NewFileSource(cfg.Profile.Path, cfg.Profile.ReloadTTL)
			connector := spi.NewCachedConnector(spi.DemoConnector(), cacheClient, 0)
			sink := memory.NewStatusRecorder()
			deps := stage.Deps{Connector: connector, Sink: sink}
			confirmer := confirm.NewService(stores.Repository, connector, sink, profiles)
			resolver := approach.NewResolver(
				approach.NewEmbedded(stores.Repository, chain.New(deps, chain.EmbeddedStages()), confirmer),
				approach.NewDecoupled(stores.Repository, chain.New(deps, chain.DecoupledStages()), confirmer),
				approach.NewRedirect(stores.Repository, confirmer, profiles, []byte(cfg.Redirect.TokenSecret)),
				approach.NewOAuth(),
			)
			facades := map[string]*facade.Facade{
				"payment":      facade.NewPayment(stores.Repository, resolver, profiles),
				"cancellation": facade.NewCancellation(stores.Repository, resolver, profiles),
				"consent":      facade.NewConsent(stores.Repository, resolver, profiles),
			}
			log.Info("engine wired", logger.Component("scaflowd"))

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				if err := cacheClient.Ping(r.Context()); err != nil {
					http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
					return
				}
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})
			// Endpoint de ops, no es la API PSD2 (esa la monta el ASPSP).
			mux.HandleFunc("/debug/authorisations/status", func(w http.ResponseWriter, r *http.Request) {
				id := r.URL.Query().Get("id")
				if id == "" {
					http.Error(w, "missing id", http.StatusBadRequest)
					return
				}
				f, ok := facades[r.URL.Query().Get("type")]
				if !ok {
					f = facades["payment"]
				}
				status, err := f.GetScaStatus(r.Context(), id)
				if err != nil {
					http.Error(w, "not found", http.StatusNotFound)
					return
				}
				fmt.Fprintf(w, "%s\n", status)
			})

			srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				log.Info("metrics listener up", logger.Component("scaflowd"))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("metrics listener failed", logger.Err(err))
					stop()
				}
			}()

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones embebidas sobre Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}

			pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
			if err != nil {
				return fmt.Errorf("pgxpool: %w", err)
			}
			defer pool.Close()

			entries, err := migrations.FS.ReadDir(".")
			if err != nil {
				return err
			}
			applied := 0
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
					continue
				}
				ddl, err := migrations.FS.ReadFile(entry.Name())
				if err != nil {
					return err
				}
				if _, err := pool.Exec(ctx, string(ddl)); err != nil {
					return fmt.Errorf("exec %s: %w", entry.Name(), err)
				}
				fmt.Printf("applied  %s\n", entry.Name())
				applied++
			}
			if applied == 0 {
				fmt.Println("no migrations found, nothing to do")
				return nil
			}
			fmt.Printf("migrations completed (%d applied)\n", applied)
			return nil
		},
	}
}

func smokeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "smoke",
		Short: "Corre el flujo embedded completo con el connector de demo",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			logger.Init(logger.Config{Env: "dev", Level: "info", ServiceName: "scaflowd-smoke"})
			defer logger.Sync()

			repo := memory.New()
			sink := memory.NewStatusRecorder()
			connector := spi.DemoConnector()
			profiles := profile.Static{P: profile.Profile{
				DefaultScaApproach:            types.ScaApproachEmbedded,
				ConfirmationCodeCheckByEngine: true,
				AuthorisationTTL:              time.Hour,
			}}

			deps := stage.Deps{Connector: connector, Sink: sink}
			confirmer := confirm.NewService(repo, connector, sink, profiles)
			resolver := approach.NewResolver(
				approach.NewEmbedded(repo, chain.New(deps, chain.EmbeddedStages()), confirmer),
				approach.NewDecoupled(repo, chain.New(deps, chain.DecoupledStages()), confirmer),
				approach.NewOAuth(),
			)
			payments := facade.NewPayment(repo, resolver, profiles)

			created, err := payments.CreateAuthorisation(ctx, "payment-1", types.PsuIdData{})
			if err != nil {
				return err
			}
			fmt.Printf("created  %s status=%s approach=%s\n", created.AuthorisationID, created.ScaStatus, created.ScaApproach)

			steps := []*sca.UpdateRequest{
				{AuthorisationID: created.AuthorisationID, PsuData: types.PsuIdData{PsuID: "psu1"}, UpdatePsuIdentification: true},
				{AuthorisationID: created.AuthorisationID, PsuData: types.PsuIdData{PsuID: "psu1"}, Password: "secret"},
				{AuthorisationID: created.AuthorisationID, ScaAuthenticationData: "123456"},
			}
			for _, req := range steps {
				resp := payments.UpdateAuthorisation(ctx, req)
				if resp.HasError() {
					return fmt.Errorf("smoke step failed: %s", resp.ErrorHolder.Error())
				}
				fmt.Printf("update   status=%s\n", resp.ScaStatus)
			}

			status, ok := sink.Status("payment-1")
			if !ok {
				return fmt.Errorf("smoke: parent status never notified")
			}
			fmt.Printf("parent   business_status=%s\n", status)
			return nil
		},
	}
}
