package model

// Event is a message the store writes to the outbox together with the
// project document it belongs to.
type Event struct {
	RoutingKey string
	Payload    any
}
