package pubsub

// Client publishes session events for downstream collaborators (the
// authoritative user-profile store consumes rating updates from here).
type Client interface {
	SendMessage(topic EventType, data any) error
	ProcessMessage(data []byte, returnValue any) error
}
