package http

import (
	"net/http"

	"github.com/tkvist/courtkeeper/internal/config"
	"github.com/tkvist/courtkeeper/internal/entry"
	"github.com/tkvist/courtkeeper/internal/match"
	"github.com/tkvist/courtkeeper/internal/metrics"
)

type Server struct {
	Entries        entry.Store
	Orchestrator   *match.Orchestrator
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
}

type registerRequest struct {
	UserID     string  `json:"user_id"`
	Name       string  `json:"name"`
	Gender     string  `json:"gender,omitempty"`
	SkillMu    float64 `json:"skill_mu,omitempty"`
	SkillSigma float64 `json:"skill_sigma,omitempty"`
}

type leaveRequest struct {
	UserID string `json:"user_id"`
}

type startRequest struct {
	MaxCourts int `json:"max_courts"`
}

type scoreRequest struct {
	MatchID     string `json:"match_id"`
	CourtNumber int    `json:"court_number"`
	ScoreA      int    `json:"score_a"`
	ScoreB      int    `json:"score_b"`
}

type leaderboardRow struct {
	Rank         int     `json:"rank"`
	UserID       string  `json:"user_id"`
	Name         string  `json:"name"`
	Skill        float64 `json:"skill"`
	SkillMu      float64 `json:"skill_mu"`
	SkillSigma   float64 `json:"skill_sigma"`
	MatchesTotal int     `json:"matches_played"`
	RestsTotal   int     `json:"rests_taken"`
}

type errorResponse struct {
	Error string `json:"error"`
}
