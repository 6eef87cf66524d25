// Package api serves the analytics and drafting REST APIs over chi.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esg-insight/internal/auth"
	"github.com/sells-group/esg-insight/internal/cohort"
	"github.com/sells-group/esg-insight/internal/config"
	"github.com/sells-group/esg-insight/internal/screen"
	"github.com/sells-group/esg-insight/internal/store"
	"github.com/sells-group/esg-insight/pkg/market"
)

// MarketClient is the live-quote access the stock endpoint needs.
// pkg/market.Service is the production implementation.
type MarketClient interface {
	FetchQuote(ctx context.Context, company, ticker string) (*market.Quote, error)
	Performance(ctx context.Context, ticker string) ([]market.Return, error)
}

// TickerSource maps company names to exchange tickers.
type TickerSource interface {
	Ticker(company string) (string, bool)
}

// Server is the analytics HTTP API.
type Server struct {
	cfg      *config.Config
	store    store.Store
	engine   *cohort.Engine
	trend    *cohort.Trend
	screener *screen.Service
	market   MarketClient
	tickers  TickerSource
	auth     *auth.Service
	router   chi.Router
}

// NewServer wires the analytics server from its collaborators.
func NewServer(cfg *config.Config, st store.Store, tickers TickerSource, mkt MarketClient) (*Server, error) {
	authSvc, err := auth.NewService(st, cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTLMins)*time.Minute)
	if err != nil {
		return nil, err
	}

	tables := cohort.DefaultTables()
	s := &Server{
		cfg:      cfg,
		store:    st,
		engine:   cohort.NewEngine(st, tables),
		trend:    cohort.NewTrend(st, tables),
		screener: screen.NewService(st, tables),
		market:   mkt,
		tickers:  tickers,
		auth:     authSvc,
	}
	s.router = s.buildRouter()
	return s, nil
}

// Router exposes the chi router for tests and embedding.
func (s *Server) Router() chi.Router { return s.router }

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	return serve(ctx, fmt.Sprintf(":%d", s.cfg.Server.Port), s.router, s.cfg.Server.ShutdownSecs)
}

func serve(ctx context.Context, addr string, handler http.Handler, shutdownSecs int) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server", zap.String("addr", addr))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownSecs)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "api: server listen")
	}
	return nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(s.cfg.Server.TimeoutSecs) * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handleHealth)

	r.Route("/company/{name}", func(r chi.Router) {
		r.Get("/financials", s.handleFinancials)
		r.Get("/nonfinancials", s.handleNonfinancials)
		r.Get("/analysis", s.handleAnalysis)
		r.Get("/stock", s.handleStock)
		r.Get("/sharpe", s.handleSharpe)
	})

	r.Get("/average/{metric}", s.handleMarketAverage)
	r.Get("/average/{metric}/industry", s.handleIndustryAverage)
	r.Get("/percentile/{metric}/{name}", s.handlePercentile)
	r.Get("/percentile-summary/{category}/{name}", s.handlePercentileSummary)
	r.Get("/screen", s.handleScreen)

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware(func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, err)
		}))
		r.Get("/auth/me", s.handleMe)
		r.Get("/favorites", s.handleListFavorites)
		r.Post("/favorites", s.handleAddFavorite)
		r.Delete("/favorites/{name}", s.handleRemoveFavorite)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
