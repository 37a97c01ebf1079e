package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/a2a"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/advisory"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/api"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/observability"
)

const version = "1.0.0"

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST and A2A endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "HTTP port (default from config or PORT)")
	return cmd
}

func serve(ctx context.Context) error {
	log := observability.Logger()

	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	gen, closer, err := newGenerator(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	var rec advisory.Recorder = advisory.NopRecorder{}
	if cfg.Redis.Enabled {
		client := newRedisClient()
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, exchanges will not be archived", "addr", cfg.Redis.Addr, "error", err)
		} else {
			rec = advisory.NewRedisRecorder(client, cfg.Redis.Prefix, cfg.Redis.TTL)
			log.Info("archiving exchanges in redis", "addr", cfg.Redis.Addr)
		}
	}

	advisor, err := newAdvisor(cat, gen, rec)
	if err != nil {
		return err
	}
	sessions := advisory.NewManager(advisor, cfg.Server.SessionTTL)
	go sessions.Run(ctx, time.Minute)

	router := api.NewRouter(api.NewHandler(sessions), api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Production:     cfg.IsProduction(),
	})
	baseURL := cfg.Server.PublicURL
	if baseURL == "" {
		baseURL = "http://localhost:" + cfg.Server.Port
	}
	a2a.NewA2AHandler(sessions, a2a.NewAgentCard(baseURL, version)).Register(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("franchise marketing advisor starting", "port", cfg.Server.Port,
			"provider", cfg.Model.Provider, "personas", cat.Len())
		log.Info("agent card available", "url", baseURL+"/.well-known/agent.json")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Protocol: 2,
	})
}
