// Package command implements typed argument parsing for slash commands. A
// Rule validates an incoming message against declared argument specs and, on
// success, stashes the parsed values in a short-lived store keyed by the
// originating (chat, message) pair; the dispatch wrapper consumes them
// exactly once before the handler body runs.
package command

import (
	"strconv"
	"strings"

	"github.com/japanlife/assistbot/internal/domain"
)

// Type is one acceptable argument shape: a display name for usage messages
// plus a parser. Parsers are tried in declaration order; the first success
// wins.
type Type struct {
	Name  string
	Parse func(raw string) (any, bool)
}

// Int accepts whole decimal numbers.
var Int = Type{
	Name: "число",
	Parse: func(raw string) (any, bool) {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		return v, true
	},
}

// Decimal accepts fractional numbers, with a comma accepted as the decimal
// separator.
var Decimal = Type{
	Name: "дробь",
	Parse: func(raw string) (any, bool) {
		normalized := strings.ReplaceAll(raw, ",", ".")
		v, err := strconv.ParseFloat(normalized, 64)
		if err != nil {
			return nil, false
		}
		return v, true
	},
}

// String accepts any token as-is.
var String = Type{
	Name: "строка",
	Parse: func(raw string) (any, bool) {
		return raw, true
	},
}

// Custom wraps an arbitrary predicate as an argument type.
func Custom(name string, parse func(raw string) (any, bool)) Type {
	return Type{Name: name, Parse: parse}
}

// Argument declares one command argument.
type Argument struct {
	Name     string
	Types    []Type
	Optional bool
	// FromReply sources the value from the replied-to message's sender,
	// resolved as a domain user, instead of a positional token.
	FromReply bool
}

// Args is the parsed argument set handed to the handler body.
type Args map[string]any

// Int returns a whole-number argument.
func (a Args) Int(name string) (int64, bool) {
	switch v := a[name].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// Float returns a fractional argument; whole numbers coerce.
func (a Args) Float(name string) (float64, bool) {
	switch v := a[name].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// String returns a string argument.
func (a Args) String(name string) (string, bool) {
	v, ok := a[name].(string)
	return v, ok
}

// User returns a reply-sourced user argument.
func (a Args) User(name string) (*domain.User, bool) {
	v, ok := a[name].(*domain.User)
	return v, ok && v != nil
}

// Present reports whether the argument was supplied (optional arguments
// resolve to a nil marker when absent).
func (a Args) Present(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}
