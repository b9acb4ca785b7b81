package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/csvagent/csvagent/internal/config"
	"github.com/csvagent/csvagent/internal/dataset"
	"github.com/rs/zerolog/log"
)

type Server struct {
	cfg  *config.Config
	ds   *dataset.Dataset
	http *http.Server
}

// New builds a server around an already-loaded dataset. Loading happens in
// main so a bad dataset aborts startup before we ever listen.
func New(cfg *config.Config, ds *dataset.Dataset) (*Server, error) {
	s := &Server{cfg: cfg, ds: ds}

	router, err := s.setupRoutes()
	if err != nil {
		return nil, fmt.Errorf("setup routes: %w", err)
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.AgentTimeout+30) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
