package client

// Event is a state-change notification delivered to view listeners.
type Event struct {
	Kind    EventKind
	Message string // Human-readable status for Status events
	Data    any    // Kind-specific payload
}

// EventKind enumerates controller notifications.
//
// Payloads: LoggedIn carries *models.Session, MainDataLoaded/MainDataSaved carry models.MainData,
// ListLoaded carries []models.Subcategory, DetailLoaded carries models.Subcategory and
// SelectionChanged carries the new models.ID ("" when cleared).
type EventKind int

const (
	LoggedIn EventKind = iota
	LoggedOut
	SessionExpired
	MainDataLoaded
	MainDataSaved
	ListLoaded
	DetailLoaded
	DetailCleared
	SelectionChanged
	Status
)

func (k EventKind) String() string {
	switch k {
	case LoggedIn:
		return "logged_in"
	case LoggedOut:
		return "logged_out"
	case SessionExpired:
		return "session_expired"
	case MainDataLoaded:
		return "main_data_loaded"
	case MainDataSaved:
		return "main_data_saved"
	case ListLoaded:
		return "list_loaded"
	case DetailLoaded:
		return "detail_loaded"
	case DetailCleared:
		return "detail_cleared"
	case SelectionChanged:
		return "selection_changed"
	case Status:
		return "status"
	default:
		return ""
	}
}

// Listener receives events synchronously on the goroutine that caused them.
type Listener func(Event)

// ChannelListener forwards events to ch without blocking. Events are dropped while ch is full.
func ChannelListener(ch chan<- Event) Listener {
	return func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}
}

func statusEvent(msg string) Event {
	return Event{Kind: Status, Message: msg}
}
