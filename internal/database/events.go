package database

// EventKind is the kind of change published by the database.
type EventKind int

const (
	EventRename EventKind = iota
	EventFunction
	EventSegment
	EventXref
	EventImport
	EventFrame
)

func (k EventKind) String() string {
	switch k {
	case EventRename:
		return "rename"
	case EventFunction:
		return "function"
	case EventSegment:
		return "segment"
	case EventXref:
		return "xref"
	case EventImport:
		return "import"
	case EventFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Event describes a mutation. Address is zero for database-wide changes.
type Event struct {
	Kind    EventKind
	Address uint64
}

// Subscribe registers fn for every subsequent mutation. Handlers run
// synchronously on the mutating goroutine after the change is visible.
// The returned function unsubscribes.
func (db *DB) Subscribe(fn func(Event)) (cancel func()) {
	db.mu.Lock()
	id := db.nextID
	db.nextID++
	db.subs[id] = fn
	db.mu.Unlock()
	return func() {
		db.mu.Lock()
		delete(db.subs, id)
		db.mu.Unlock()
	}
}

func (db *DB) publish(ev Event) {
	db.mu.RLock()
	handlers := make([]func(Event), 0, len(db.subs))
	for _, fn := range db.subs {
		handlers = append(handlers, fn)
	}
	db.mu.RUnlock()
	for _, fn := range handlers {
		fn(ev)
	}
}
