package entry

// Store defines the interface for interacting with check-in entries.
type Store interface {
	Register(params RegisterParams) (*Entry, error)
	Get(entryID string) (*Entry, error)
	GetByUserID(userID string) (*Entry, error)
	ListByStatus(status Status) ([]Entry, error)
	// TransitionStatus conditionally moves an entry from one status to
	// another, optionally stamping (to PLAYING) or clearing (from PLAYING)
	// its court placement. It fails with ErrPreconditionFailed if the stored
	// status no longer equals from.
	TransitionStatus(entryID string, from, to Status, placement *Placement) error
	Remove(entryID string) error
	UpdateRating(userID string, mu, sigma float64) error
	ListAll() ([]Entry, error)
}
