package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/datasage/datasage/internal/analyst"
	"github.com/datasage/datasage/internal/config"
)

type Server struct {
	cfg     *config.Config
	http    *http.Server
	analyst *analyst.Analyst // held for graceful source close
}

func New(cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	router, a, err := s.setupRoutes()
	if err != nil {
		return nil, fmt.Errorf("setup routes: %w", err)
	}
	s.analyst = a

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
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

		err := s.http.Shutdown(shutdownCtx)

		if closeErr := s.analyst.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing data source")
		}

		return err
	case err := <-errCh:
		return err
	}
}
