package entity

// EventKind identifies what happened to an entity.
type EventKind int

const (
	EventCreate EventKind = iota + 1
	EventModify
	EventDestroy
)

// String returns the event name used in log output.
func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// Handler receives entity events emitted by a book.
type Handler func(e Entity, kind EventKind)

type handlerEntry struct {
	id int
	fn Handler
}

// RegisterHandler adds an event handler and returns an id for UnregisterHandler.
func (b *Book) RegisterHandler(fn Handler) int {
	b.nextHandlerID++
	b.handlers = append(b.handlers, handlerEntry{id: b.nextHandlerID, fn: fn})
	return b.nextHandlerID
}

// UnregisterHandler removes a handler previously added with RegisterHandler.
func (b *Book) UnregisterHandler(id int) {
	for i, h := range b.handlers {
		if h.id == id {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return
		}
	}
}

// SuspendEvents stops event delivery until a matching ResumeEvents.
// Calls nest. Bulk loads run with events suspended.
func (b *Book) SuspendEvents() {
	b.eventSuspend++
}

// ResumeEvents undoes one SuspendEvents.
func (b *Book) ResumeEvents() {
	if b.eventSuspend > 0 {
		b.eventSuspend--
	}
}

// Emit delivers an event to every registered handler.
func (b *Book) Emit(e Entity, kind EventKind) {
	if b.eventSuspend > 0 {
		return
	}
	// handlers may unregister themselves
	handlers := append([]handlerEntry(nil), b.handlers...)
	for _, h := range handlers {
		h.fn(e, kind)
	}
}
