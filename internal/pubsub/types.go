package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType names a topic this application publishes to.
type EventType string

const (
	EventMatchStarted  EventType = "match-started"
	EventMatchFinished EventType = "match-finished"
	EventRatingUpdated EventType = "rating-updated"
)

// MatchStartedEvent announces a committed pairing.
type MatchStartedEvent struct {
	MatchID    string   `msgpack:"match_id"`
	CourtCount int      `msgpack:"court_count"`
	PlayerIDs  []string `msgpack:"player_ids"`
	RestingIDs []string `msgpack:"resting_ids"`
}

// MatchFinishedEvent announces a released match.
type MatchFinishedEvent struct {
	MatchID    string `msgpack:"match_id"`
	CourtCount int    `msgpack:"court_count"`
}

// RatingUpdatedEvent carries a player's new authoritative rating; the
// user-profile store consumes it.
type RatingUpdatedEvent struct {
	MatchID string  `msgpack:"match_id"`
	UserID  string  `msgpack:"user_id"`
	Mu      float64 `msgpack:"mu"`
	Sigma   float64 `msgpack:"sigma"`
}
