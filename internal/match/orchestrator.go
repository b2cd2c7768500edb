package match

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/tkvist/courtkeeper/internal/entry"
	"github.com/tkvist/courtkeeper/internal/metrics"
	"github.com/tkvist/courtkeeper/internal/pairing"
	"github.com/tkvist/courtkeeper/internal/pubsub"
	"github.com/tkvist/courtkeeper/internal/rating"
	"github.com/tkvist/courtkeeper/internal/rotation"
)

// Notifier defines the notification operations required by orchestration.
// This keeps the match package decoupled from the notification provider.
type Notifier interface {
	SendLineup(view *View) error
	SendResults(results []Result, updates map[string]rating.Rating) error
}

// rotationRetries bounds how often a version-conflicted rest selection is
// retried before giving up.
const rotationRetries = 3

// Orchestrator drives the idle -> playing -> idle state machine over the
// club-wide current-match slot.
type Orchestrator struct {
	entries      entry.Store
	queue        rotation.Queue
	policy       pairing.Policy
	engine       *rating.Engine
	store        Store
	notifier     Notifier
	pubsub       pubsub.Client
	metrics      metrics.Metrics
	maxTxRecords int
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	entries entry.Store,
	queue rotation.Queue,
	policy pairing.Policy,
	engine *rating.Engine,
	store Store,
	notifier Notifier,
	pubsubClient pubsub.Client,
	metricsSvc metrics.Metrics,
	maxTxRecords int,
) *Orchestrator {
	return &Orchestrator{
		entries:      entries,
		queue:        queue,
		policy:       policy,
		engine:       engine,
		store:        store,
		notifier:     notifier,
		pubsub:       pubsubClient,
		metrics:      metricsSvc,
		maxTxRecords: maxTxRecords,
	}
}

// Start selects resters, computes a pairing, and commits it atomically.
// Concurrent starts race on the match-meta conditional write; exactly one
// wins and the rest come back with ErrAlreadyPlaying.
func (o *Orchestrator) Start(maxCourts int) (*View, error) {
	startTime := time.Now()
	defer func() {
		o.metrics.ObservePairingDuration(time.Since(startTime).Seconds())
	}()

	meta, err := o.store.GetMeta()
	if err != nil {
		return nil, err
	}
	if meta.Status == MetaPlaying {
		return nil, ErrAlreadyPlaying
	}

	pending, err := o.entries.ListByStatus(entry.StatusPending)
	if err != nil {
		return nil, err
	}
	if len(pending) < 4 {
		return nil, pairing.ErrInsufficientPlayers
	}

	courtCount := len(pending) / 4
	if courtCount > maxCourts {
		courtCount = maxCourts
	}
	// The start transaction touches 1 meta row plus 4 entries per court.
	// Rather than splitting the transaction the caller reduces max_courts.
	if 1+courtCount*4 > o.maxTxRecords {
		return nil, fmt.Errorf("%w: %d courts need %d records, limit is %d",
			ErrTooManyCourts, courtCount, 1+courtCount*4, o.maxTxRecords)
	}
	waitingCount := len(pending) - courtCount*4

	strategy, err := o.policy.Next()
	if err != nil {
		return nil, err
	}

	// The rest selection is only a plan; it is consumed inside the start
	// transaction via queue.Commit, so a failed start leaves the rotation
	// untouched. A version conflict rolls the whole start back and the
	// selection is redone from scratch.
	var (
		matchID string
		result  *pairing.Result
		resters []entry.Entry
	)
	for attempt := 0; ; attempt++ {
		sel, err := o.queue.Select(pending, waitingCount)
		if err != nil {
			return nil, err
		}
		result, err = strategy.Pair(sel.Active, courtCount)
		if err != nil {
			return nil, err
		}

		// The strategy can push players beyond the court capacity back
		// out; they wait this round alongside the rotation's picks.
		resters = append(append([]entry.Entry{}, sel.Resting...), result.Waiters...)

		matchID = uuid.New().String()
		err = o.store.Start(matchID, result.Courts, resters, func(tx *sql.Tx) error {
			return o.queue.Commit(tx, sel)
		})
		if err == nil {
			break
		}
		if errors.Is(err, rotation.ErrVersionConflict) && attempt+1 < rotationRetries {
			o.metrics.IncPreconditionConflicts()
			log.Debug("Retrying start after rest queue version conflict", "attempt", attempt+1)
			continue
		}
		if errors.Is(err, ErrAlreadyPlaying) || errors.Is(err, entry.ErrPreconditionFailed) {
			o.metrics.IncPreconditionConflicts()
		}
		return nil, err
	}
	o.metrics.IncMatchesStarted()

	view := buildView(matchID, result, resters)
	if err := o.notifier.SendLineup(view); err != nil {
		log.Error("Failed to send line-up notification", "error", err, "matchID", matchID)
	}
	o.publishStarted(matchID, result, resters)

	log.Info("Pairing committed", "matchID", matchID, "mode", result.Mode, "courts", len(result.Courts), "resting", len(resters))
	return view, nil
}

// SubmitScore accepts one court's outcome. The submission must name the
// live match and an occupied court; anything else is stale or forged and
// is rejected outright.
func (o *Orchestrator) SubmitScore(matchID string, courtNumber, scoreA, scoreB int) error {
	if scoreA == scoreB {
		return fmt.Errorf("%w: %d-%d", ErrInvalidScore, scoreA, scoreB)
	}
	if scoreA < 0 || scoreB < 0 {
		return fmt.Errorf("%w: scores must be non-negative", ErrInvalidScore)
	}

	meta, err := o.store.GetMeta()
	if err != nil {
		return err
	}
	if meta.Status != MetaPlaying || meta.CurrentMatchID != matchID {
		return fmt.Errorf("%w: match %s is not in progress", ErrRosterMismatch, matchID)
	}
	if courtNumber < 1 || courtNumber > meta.CourtCount {
		return fmt.Errorf("%w: court %d not in play", ErrRosterMismatch, courtNumber)
	}

	teamA, teamB, err := o.courtRoster(matchID, courtNumber)
	if err != nil {
		return err
	}

	winner := entry.TeamA
	if scoreB > scoreA {
		winner = entry.TeamB
	}
	res := &Result{
		MatchID:     matchID,
		CourtNumber: courtNumber,
		TeamA:       teamA,
		TeamB:       teamB,
		ScoreA:      scoreA,
		ScoreB:      scoreB,
		Winner:      winner,
		SubmittedAt: time.Now().Unix(),
	}
	if err := o.store.SubmitResult(res); err != nil {
		return err
	}
	o.metrics.IncScoresSubmitted()
	return nil
}

// Finish applies rating updates and releases the match slot. Ratings are
// persisted before the state-release transaction so a new match can never
// start on stale ratings; the per-court marker makes a retried finish skip
// already-applied updates.
func (o *Orchestrator) Finish() (map[string]rating.Rating, error) {
	meta, err := o.store.GetMeta()
	if err != nil {
		return nil, err
	}
	if meta.Status != MetaPlaying {
		return nil, ErrNoActiveMatch
	}
	matchID := meta.CurrentMatchID

	done, err := o.store.AllSubmitted(matchID, meta.CourtCount)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, fmt.Errorf("%w: match %s has %d courts", ErrIncompleteResults, matchID, meta.CourtCount)
	}

	results, err := o.store.GetResults(matchID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]rating.Rating)
	for _, res := range results {
		courtUpdates, err := o.applyCourtRatings(res)
		if err != nil {
			return nil, err
		}
		for userID, r := range courtUpdates {
			updates[userID] = r
		}
	}

	if err := o.store.Finish(matchID); err != nil {
		if errors.Is(err, ErrNoActiveMatch) {
			o.metrics.IncPreconditionConflicts()
		}
		return nil, err
	}
	o.metrics.IncMatchesFinished()

	if err := o.notifier.SendResults(results, updates); err != nil {
		log.Error("Failed to send results notification", "error", err, "matchID", matchID)
	}
	if err := o.pubsub.SendMessage(pubsub.EventMatchFinished, pubsub.MatchFinishedEvent{
		MatchID:    matchID,
		CourtCount: meta.CourtCount,
	}); err != nil {
		log.Error("Failed to publish match-finished event", "error", err, "matchID", matchID)
	}

	log.Info("Match completed", "matchID", matchID, "ratingUpdates", len(updates))
	return updates, nil
}

// ForceReset unconditionally returns the session to idle. It bypasses the
// normal preconditions and must be restricted to privileged callers.
func (o *Orchestrator) ForceReset() error {
	if err := o.store.ForceReset(); err != nil {
		return err
	}
	return o.queue.Reset()
}

// CurrentView is the read-only projection of the active match: per-court
// rosters rebuilt from the entries marked playing.
func (o *Orchestrator) CurrentView() (*View, error) {
	meta, err := o.store.GetMeta()
	if err != nil {
		return nil, err
	}
	if meta.Status != MetaPlaying {
		return nil, ErrNoActiveMatch
	}

	playing, err := o.entries.ListByStatus(entry.StatusPlaying)
	if err != nil {
		return nil, err
	}
	resting, err := o.entries.ListByStatus(entry.StatusResting)
	if err != nil {
		return nil, err
	}

	byCourt := make(map[int]*CourtView)
	for _, e := range playing {
		if e.MatchID != meta.CurrentMatchID {
			continue
		}
		cv, ok := byCourt[e.CourtNumber]
		if !ok {
			cv = &CourtView{Number: e.CourtNumber}
			byCourt[e.CourtNumber] = cv
		}
		if e.Team == entry.TeamA {
			cv.TeamA = append(cv.TeamA, e)
		} else {
			cv.TeamB = append(cv.TeamB, e)
		}
	}

	view := &View{MatchID: meta.CurrentMatchID, Resting: resting}
	for _, cv := range byCourt {
		view.Courts = append(view.Courts, *cv)
	}
	sort.Slice(view.Courts, func(i, j int) bool {
		return view.Courts[i].Number < view.Courts[j].Number
	})
	return view, nil
}

// applyCourtRatings computes and persists the rating update for one court.
// The MarkRatingApplied insert is the idempotence guard: exactly one finish
// attempt wins it per court.
func (o *Orchestrator) applyCourtRatings(res Result) (map[string]rating.Rating, error) {
	winners, losers := res.TeamA, res.TeamB
	if res.Winner == entry.TeamB {
		winners, losers = res.TeamB, res.TeamA
	}

	toRatings := func(snaps []PlayerSnapshot) []rating.Rating {
		out := make([]rating.Rating, len(snaps))
		for i, s := range snaps {
			out[i] = rating.Rating{Mu: s.Mu, Sigma: s.Sigma}
		}
		return out
	}
	newWinners, newLosers := o.engine.Update(toRatings(winners), toRatings(losers))

	updates := make(map[string]rating.Rating, len(winners)+len(losers))
	for i, s := range winners {
		updates[s.UserID] = newWinners[i]
	}
	for i, s := range losers {
		updates[s.UserID] = newLosers[i]
	}

	updatesJSON, err := json.Marshal(updates)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rating updates: %w", err)
	}
	applied, err := o.store.MarkRatingApplied(res.MatchID, res.CourtNumber, updatesJSON)
	if err != nil {
		return nil, err
	}
	if !applied {
		log.Info("Rating update already applied, skipping", "matchID", res.MatchID, "court", res.CourtNumber)
		return nil, nil
	}

	for userID, r := range updates {
		if err := o.entries.UpdateRating(userID, r.Mu, r.Sigma); err != nil {
			return nil, err
		}
		if err := o.pubsub.SendMessage(pubsub.EventRatingUpdated, pubsub.RatingUpdatedEvent{
			MatchID: res.MatchID,
			UserID:  userID,
			Mu:      r.Mu,
			Sigma:   r.Sigma,
		}); err != nil {
			log.Error("Failed to publish rating update", "error", err, "userID", userID)
		}
	}
	return updates, nil
}

func (o *Orchestrator) courtRoster(matchID string, courtNumber int) (teamA, teamB []PlayerSnapshot, err error) {
	playing, err := o.entries.ListByStatus(entry.StatusPlaying)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range playing {
		if e.MatchID != matchID || e.CourtNumber != courtNumber {
			continue
		}
		snap := PlayerSnapshot{UserID: e.UserID, Name: e.Name, Mu: e.SkillMu, Sigma: e.SkillSigma}
		if e.Team == entry.TeamA {
			teamA = append(teamA, snap)
		} else {
			teamB = append(teamB, snap)
		}
	}
	if len(teamA) != 2 || len(teamB) != 2 {
		return nil, nil, fmt.Errorf("%w: court %d has %d+%d players recorded",
			ErrRosterMismatch, courtNumber, len(teamA), len(teamB))
	}
	return teamA, teamB, nil
}

func (o *Orchestrator) publishStarted(matchID string, result *pairing.Result, resters []entry.Entry) {
	event := pubsub.MatchStartedEvent{
		MatchID:    matchID,
		CourtCount: len(result.Courts),
	}
	for _, c := range result.Courts {
		for _, e := range append(append([]entry.Entry{}, c.TeamA...), c.TeamB...) {
			event.PlayerIDs = append(event.PlayerIDs, e.UserID)
		}
	}
	for _, e := range resters {
		event.RestingIDs = append(event.RestingIDs, e.UserID)
	}
	if err := o.pubsub.SendMessage(pubsub.EventMatchStarted, event); err != nil {
		log.Error("Failed to publish match-started event", "error", err, "matchID", matchID)
	}
}

func buildView(matchID string, result *pairing.Result, resters []entry.Entry) *View {
	view := &View{MatchID: matchID, Resting: resters, Mode: string(result.Mode)}
	for _, c := range result.Courts {
		view.Courts = append(view.Courts, CourtView{Number: c.Number, TeamA: c.TeamA, TeamB: c.TeamB})
	}
	return view
}
