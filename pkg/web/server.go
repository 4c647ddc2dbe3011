// Package web serves the chat and history pages and the JSON/SSE api behind them.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/liut/insightchat/pkg/chat"
	"github.com/liut/insightchat/pkg/history"
	"github.com/liut/insightchat/pkg/models/convo"
	"github.com/liut/insightchat/pkg/settings"
)

type Service interface {
	Serve(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Config struct {
	Addr  string
	Debug bool

	DocHandler http.Handler

	Analyzer chat.Analyzer
	History  history.Fetcher
	Store    chat.SnapshotStore
	Preset   convo.Preset
}

type server struct {
	Addr string
	cfg  Config

	ar *chi.Mux     // app router
	hs *http.Server // http server

	sess   *sessions
	viewer *history.Viewer
	now    func() time.Time
}

// New return new web server
func New(cfg Config) (Service, error) {
	return newServer(cfg)
}

func newServer(cfg Config) (*server, error) {
	if cfg.Analyzer == nil || cfg.History == nil {
		return nil, errors.New("web: analyzer and history source are required")
	}
	ar := chi.NewMux()
	if cfg.Debug {
		ar.Use(middleware.Logger)
	}
	ar.Use(middleware.Recoverer, middleware.RealIP)

	s := &server{
		Addr: cfg.Addr, ar: ar,
		cfg:    cfg,
		viewer: history.NewViewer(cfg.History),
		now:    time.Now,
	}
	an := meteredAnalyzer{next: cfg.Analyzer}
	s.sess = newSessions(func(key string, view chat.Renderer) (*chat.Controller, error) {
		return chat.New(chat.Config{
			Analyzer:   an,
			Store:      cfg.Store,
			View:       view,
			Key:        key,
			UserID:     settings.Current.UserID,
			SaveResult: settings.Current.SaveResult,
			Lifetime:   settings.Current.SnapshotLifetime,
			Timeout:    settings.Current.AnalyzeTimeout,
		})
	}, time.Duration(settings.Current.CookieMaxAge)*time.Second)

	logger().Infow("loaded preset", "examples", len(cfg.Preset.Examples))
	if err := s.strapRouter(); err != nil {
		return nil, err
	}

	s.hs = &http.Server{
		Addr:              s.Addr,
		Handler:           s.ar,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Debug {
		logger().Infow("routes:")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			route = strings.Replace(route, "/*/", "/", -1)
			fmt.Fprintf(os.Stderr, "DEBUG: %-6s %-24s --> %s (%d mw)\n", method, route, nameOfFunction(handler), len(middlewares))
			return nil
		}

		if err := chi.Walk(ar, walkFunc); err != nil {
			logger().Infow("router walk fail", "err", err)
		}
	}
	return s, nil
}

func (s *server) Serve(ctx context.Context) error {
	// Run HTTP server
	runErrChan := make(chan error)
	t := time.AfterFunc(time.Millisecond*200, func() {
		runErrChan <- s.hs.ListenAndServe()
	})

	defer t.Stop()
	logger().Infow("Listen on", "addr", s.hs.Addr, "analysis", settings.Current.AnalysisURL)

	// Wait
	for {
		select {
		case runErr := <-runErrChan:
			if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
				logger().Infow("run http server failed",
					"err", runErr,
				)
				return runErr
			}
			return nil
		case <-ctx.Done():
			logger().Info("http server has been stopped")
			return ctx.Err()
		}
	}
}

func (s *server) Stop(ctx context.Context) error {
	if err := s.hs.Shutdown(ctx); err != nil {
		logger().Infow("Server Shutdown", "err", err)
		return err
	}
	return nil
}
