package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/internal/server"
	promexport "github.com/MrEthical07/adminauth/metrics/export/prometheus"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin authentication API server",
		Long: `Start the HTTP server exposing the admin login, refresh and logout
endpoints under /api/admin/auth, plus /healthz and /metrics.

The maintenance loop runs in the background for the lifetime of the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "HTTP listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func serverConfig() server.Config {
	cfg := server.DefaultConfig()
	if v := viper.GetString("server.addr"); v != "" {
		cfg.Addr = v
	}
	if v := viper.GetStringSlice("server.cors_origins"); len(v) > 0 {
		cfg.CORSOrigins = v
	}
	if v := viper.GetInt64("server.max_body_bytes"); v > 0 {
		cfg.MaxBodyBytes = v
	}
	if viper.IsSet("server.login_per_minute") {
		cfg.LoginPerMinute = viper.GetInt("server.login_per_minute")
	}
	if viper.IsSet("server.refresh_per_minute") {
		cfg.RefreshPerMinute = viper.GetInt("server.refresh_per_minute")
	}
	cfg.TrustProxy = viper.GetBool("server.trust_proxy")
	cfg.ShutdownTimeout = shutdownTimeout()
	return cfg
}

func runServe(ctx context.Context) error {
	log := newLogger()

	engine, backend, err := buildEngine(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		engine.Close()
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout())
		defer cancel()
		if err := backend.close(closeCtx); err != nil {
			log.Warn("backend close failed", "error", err)
		}
	}()

	go func() {
		if err := engine.StartMaintenance(ctx); err != nil && !errors.Is(err, adminauth.ErrMaintenanceActive) {
			log.Error("maintenance loop exited", "error", err)
		}
	}()

	var metrics http.Handler
	if viper.GetBool("metrics.enabled") {
		metrics = promexport.NewExporter(engine, viper.GetBool("metrics.runtime")).Handler()
	}

	log.Info("adminauthd starting",
		"store", viper.GetString("store.driver"),
		"blacklist", viper.GetString("blacklist.driver"),
	)
	return server.New(serverConfig(), engine, metrics, log).ListenAndServe(ctx)
}
