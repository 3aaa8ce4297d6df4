package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"shophand/logging"
	"shophand/routes"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API together with the automation loop and, when
dispatch.auto_interval is set, periodic driver dispatch.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Seed.Demo {
		res, err := a.seed(ctx)
		if err != nil {
			return err
		}
		logging.Info(nil, "seed.demo", map[string]any{"result": res})
	}

	if cfg.Automation.Enabled {
		go a.scheduler(time.Now()).Run(ctx, cfg.Automation.Resolution)
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           routes.NewRouter(a.handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logging.Info(nil, "server.start", map[string]any{"addr": cfg.Server.Addr, "storage": cfg.Storage.Driver})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logging.Warn(nil, "server.shutdown", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error(nil, "server.shutdown", err, nil)
		return err
	}
	logging.Info(nil, "server.stopped", nil)
	return nil
}
