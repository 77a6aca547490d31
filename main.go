package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matheuscscp/integration-auth/internal/config"
	"github.com/matheuscscp/integration-auth/internal/logging"
	"github.com/matheuscscp/integration-auth/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := logging.LoadLevel(); err != nil {
		logrus.WithError(err).Warn("failed to load log level, using info")
	}

	conf, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	s, err := server.New(conf)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":         s.Addr,
			"platformMode": conf.Platform.Mode,
			"pairingStore": conf.Pairing.Store,
			"integrations": len(conf.Integrations),
		}).Info("server started")
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	case <-ctx.Done():
		logrus.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("failed to shut down server gracefully")
		}
	}
}
