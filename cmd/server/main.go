package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"collabchat/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg := server.NewConfigFromEnv()
	srv := server.New(cfg)
	httpServer := server.CreateServer(cfg.Addr, srv.Routes())

	go func() {
		slog.Info("listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				return httpServer.Shutdown(ctx)
			},
			"chat": func(ctx context.Context) error {
				return srv.Shutdown(shutdownTimeout)
			},
		},
	)

	exitCode := <-wait
	slog.Info("exited", "code", exitCode)
	os.Exit(exitCode)
}
