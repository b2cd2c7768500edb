package http

import (
	"net/http"

	"github.com/tkvist/courtkeeper/internal/config"
	"github.com/tkvist/courtkeeper/internal/entry"
	"github.com/tkvist/courtkeeper/internal/match"
	"github.com/tkvist/courtkeeper/internal/metrics"
)

func NewServer(entries entry.Store, orchestrator *match.Orchestrator, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config) *Server {
	server := &Server{
		Entries:        entries,
		Orchestrator:   orchestrator,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// This makes it easy to add more middlewares in the future.
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("POST /register", Chain(s.RegisterHandler(), paramsMiddleware))
	s.Router.Handle("POST /leave", Chain(s.LeaveHandler(), paramsMiddleware))
	s.Router.Handle("GET /players", Chain(s.ListPlayersHandler(), paramsMiddleware))
	s.Router.Handle("GET /leaderboard", Chain(s.LeaderboardHandler(), paramsMiddleware))
	s.Router.Handle("POST /match/start", Chain(s.StartMatchHandler(), paramsMiddleware))
	s.Router.Handle("POST /match/score", Chain(s.SubmitScoreHandler(), paramsMiddleware))
	s.Router.Handle("POST /match/finish", Chain(s.FinishMatchHandler(), paramsMiddleware))
	s.Router.Handle("GET /match/current", Chain(s.CurrentMatchHandler(), paramsMiddleware))
	s.Router.Handle("POST /admin/reset", Chain(s.ResetHandler(), paramsMiddleware, s.adminMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
