package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/tkvist/courtkeeper/internal/entry"
	"github.com/tkvist/courtkeeper/internal/match"
	"github.com/tkvist/courtkeeper/internal/pairing"
	"github.com/tkvist/courtkeeper/internal/rotation"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.UserID == "" || req.Name == "" {
			respondError(w, http.StatusBadRequest, "user_id and name are required")
			return
		}
		if req.SkillMu == 0 {
			req.SkillMu = s.Cfg.Rating.InitialMu
		}
		if req.SkillSigma == 0 {
			req.SkillSigma = s.Cfg.Rating.InitialSigma
		}

		e, err := s.Entries.Register(entry.RegisterParams{
			UserID:     req.UserID,
			Name:       req.Name,
			Gender:     req.Gender,
			SkillMu:    req.SkillMu,
			SkillSigma: req.SkillSigma,
		})
		if errors.Is(err, entry.ErrAlreadyRegistered) {
			// Re-registering is a no-op: hand back the existing entry so
			// clients can retry the call blindly.
			existing, getErr := s.Entries.GetByUserID(req.UserID)
			if getErr != nil {
				respondDomainError(w, getErr)
				return
			}
			respondJSON(w, http.StatusOK, existing)
			return
		}
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, e)
	}
}

func (s *Server) LeaveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req leaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.UserID == "" {
			respondError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		e, err := s.Entries.GetByUserID(req.UserID)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		if err := s.Entries.Remove(e.ID); err != nil {
			respondDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ListPlayersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			players []entry.Entry
			err     error
		)
		switch status := r.URL.Query().Get("status"); status {
		case "":
			players, err = s.Entries.ListAll()
		case string(entry.StatusPending), string(entry.StatusResting), string(entry.StatusPlaying):
			players, err = s.Entries.ListByStatus(entry.Status(status))
		default:
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
			return
		}
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, players)
	}
}

// LeaderboardHandler ranks everyone currently checked in by conservative
// skill, strongest first.
func (s *Server) LeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := s.Entries.ListAll()
		if err != nil {
			respondDomainError(w, err)
			return
		}
		sort.Slice(players, func(i, j int) bool {
			return players[i].ConservativeSkill() > players[j].ConservativeSkill()
		})

		rows := make([]leaderboardRow, len(players))
		for i, p := range players {
			rows[i] = leaderboardRow{
				Rank:         i + 1,
				UserID:       p.UserID,
				Name:         p.Name,
				Skill:        p.ConservativeSkill(),
				SkillMu:      p.SkillMu,
				SkillSigma:   p.SkillSigma,
				MatchesTotal: p.MatchCount,
				RestsTotal:   p.RestCount,
			}
		}
		respondJSON(w, http.StatusOK, rows)
	}
}

func (s *Server) StartMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.MaxCourts < 1 {
			respondError(w, http.StatusBadRequest, "max_courts must be at least 1")
			return
		}

		view, err := s.Orchestrator.Start(req.MaxCourts)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, view)
	}
}

func (s *Server) SubmitScoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.MatchID == "" {
			respondError(w, http.StatusBadRequest, "match_id is required")
			return
		}

		if err := s.Orchestrator.SubmitScore(req.MatchID, req.CourtNumber, req.ScoreA, req.ScoreB); err != nil {
			respondDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) FinishMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		updates, err := s.Orchestrator.Finish()
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, updates)
	}
}

func (s *Server) CurrentMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := s.Orchestrator.CurrentView()
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, view)
	}
}

func (s *Server) ResetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Warn("Force reset requested")
		if err := s.Orchestrator.ForceReset(); err != nil {
			respondDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "Session reset.")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondDomainError maps the domain sentinels onto HTTP statuses: conflicts
// come back 409 so clients know to re-read and retry, capacity and validation
// problems 400.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entry.ErrNotFound), errors.Is(err, match.ErrNoActiveMatch):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, entry.ErrPlaying),
		errors.Is(err, entry.ErrPreconditionFailed),
		errors.Is(err, match.ErrAlreadyPlaying),
		errors.Is(err, match.ErrIncompleteResults),
		errors.Is(err, match.ErrRosterMismatch),
		errors.Is(err, rotation.ErrVersionConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, pairing.ErrInsufficientPlayers),
		errors.Is(err, match.ErrTooManyCourts),
		errors.Is(err, match.ErrInvalidScore):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("Unhandled error in handler", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
