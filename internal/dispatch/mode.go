package dispatch

// Mode selects how much of the pipeline runs around a handler.
type Mode int

const (
	// ModeIntermediate runs a mid-flow step: no state write, no chat
	// cleanup, no completion log or stats.
	ModeIntermediate Mode = iota
	// ModeFinal closes a flow: the completion log and stats fire, but the
	// chat is left untouched and state is not rewritten.
	ModeFinal
	// ModeMain opens a menu screen: state is set to the handler title and
	// the private chat is swept, without logging completion.
	ModeMain
	// ModeFull combines ModeMain and ModeFinal.
	ModeFull
)

// String returns the log-friendly mode name.
func (m Mode) String() string {
	switch m {
	case ModeIntermediate:
		return "intermediate"
	case ModeFinal:
		return "final"
	case ModeMain:
		return "main"
	case ModeFull:
		return "full"
	}
	return "unknown"
}

type behavior struct {
	writeState bool
	cleanChat  bool
	logTrack   bool
}

var behaviors = map[Mode]behavior{
	ModeIntermediate: {},
	ModeFinal:        {logTrack: true},
	ModeMain:         {writeState: true, cleanChat: true},
	ModeFull:         {writeState: true, cleanChat: true, logTrack: true},
}

func (m Mode) behavior() behavior {
	return behaviors[m]
}
