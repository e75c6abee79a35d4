// Package stage implements the named state tokens that drive multi-step
// conversational flows. A stage is identified purely by its namespaced name
// ("flow", "flow:back", "flow:sub") so user state can be persisted as a plain
// string and compared across restarts.
package stage

import (
	"sort"
	"strings"

	"github.com/japanlife/assistbot/internal/event"
)

// Stage is an immutable named state token with a match predicate.
type Stage struct {
	name string
}

// New constructs a stage with the given namespaced name.
func New(name string) Stage {
	return Stage{name: name}
}

// Name returns the stage token persisted into User.State.
func (s Stage) Name() string { return s.name }

// String implements fmt.Stringer.
func (s Stage) String() string { return s.name }

// Zero reports whether the stage was never registered.
func (s Stage) Zero() bool { return s.name == "" }

// Match reports whether the event belongs to this stage. Callback presses
// match by action key equality; messages match when the user's persisted
// state equals the stage name, and only inside private chats.
func (s Stage) Match(ev event.Event, state string) bool {
	if s.name == "" {
		return false
	}
	switch ev.Kind() {
	case event.KindCallback:
		return ev.CallbackKey() == s.name
	case event.KindMessage:
		return event.IsPrivate(ev) && state == s.name
	}
	return false
}

// Flow groups the stages of one named conversational flow.
type Flow struct {
	// Name is the flow identifier and the name of the MAIN stage.
	Name string
	// Main is the entry stage, named after the flow itself.
	Main Stage
	// Back is the canonical "<flow>:back" stage.
	Back Stage
	// All lists every stage of the flow: main, back, then sub-stages in
	// registration order.
	All []Stage

	subs map[string]Stage
}

// NewFlow derives the canonical stage set for a flow: MAIN ("<name>"),
// BACK ("<name>:back") and one stage per sub-stage identifier
// ("<name>:<lowercase(sub)>"). Duplicate sub names collapse to one stage.
func NewFlow(name string, subs ...string) *Flow {
	f := &Flow{
		Name: name,
		Main: New(name),
		Back: New(name + ":back"),
		subs: make(map[string]Stage, len(subs)),
	}
	f.All = append(f.All, f.Main, f.Back)
	for _, sub := range subs {
		key := strings.ToLower(strings.TrimSpace(sub))
		if key == "" {
			continue
		}
		if _, exists := f.subs[key]; exists {
			continue
		}
		st := New(name + ":" + key)
		f.subs[key] = st
		f.All = append(f.All, st)
	}
	return f
}

// Stage returns the sub-stage registered under the given identifier
// (case-insensitive). The zero Stage is returned for unknown identifiers.
func (f *Flow) Stage(sub string) Stage {
	return f.subs[strings.ToLower(strings.TrimSpace(sub))]
}

// Names returns the sorted stage token set, mainly for diagnostics.
func (f *Flow) Names() []string {
	names := make([]string, 0, len(f.All))
	for _, st := range f.All {
		names = append(names, st.Name())
	}
	sort.Strings(names)
	return names
}
