package domain

// Change-notification actions delivered by the event hub.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Event describes one record mutation. Record is the record kind
// ("invitation", "visitor", "group", "attendance"); ID is the mutated
// record's id.
type Event struct {
	Action string
	Record string
	ID     string
}

// Subscription is one registered listener on the event hub. Events arrives
// on C until Unsubscribe is called, after which C is closed.
type Subscription struct {
	ID string
	C  <-chan Event
}

// EventHub is the change-notification facade. Publish is fire-and-forget:
// delivery to a subscriber never blocks the publisher, and a subscriber
// that cannot keep up loses events rather than stalling writes.
type EventHub interface {
	Subscribe() *Subscription
	Unsubscribe(sub *Subscription)
	Publish(e Event)
}
