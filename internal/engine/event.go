package engine

import "context"

// EventKind distinguishes the two events an operation produces.
type EventKind int

const (
	KindProgress EventKind = iota + 1
	KindLog
)

func (k EventKind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindLog:
		return "log"
	default:
		return "unknown"
	}
}

// Event is one progress update or log line from an operation. Status and
// Progress are set for KindProgress; Message for KindLog.
type Event struct {
	Kind     EventKind
	ID       string
	Status   string
	Progress float64 // [0, 1]
	Message  string
}

// emitter sends an operation's events in order. A nil channel discards
// them; a send never outlives ctx.
type emitter struct {
	ctx context.Context
	id  string
	ch  chan<- Event
}

func (e emitter) send(ev Event) {
	if e.ch == nil {
		return
	}
	ev.ID = e.id
	select {
	case e.ch <- ev:
	case <-e.ctx.Done():
	}
}

func (e emitter) progress(status string, fraction float64) {
	e.send(Event{Kind: KindProgress, Status: status, Progress: fraction})
}

func (e emitter) log(message string) {
	e.send(Event{Kind: KindLog, Message: message})
}
