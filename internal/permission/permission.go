// Package permission gates command execution on user roles. Administrators
// bypass every gate; everyone else must pass both the checker-wide gate and
// the per-command gate.
package permission

import (
	"github.com/japanlife/assistbot/internal/domain"
)

// Gate decides whether a user may proceed.
type Gate func(u *domain.User) bool

// Any admits every user.
func Any() Gate {
	return func(*domain.User) bool { return true }
}

// None admits nobody except administrators, who bypass gates entirely.
func None() Gate {
	return func(*domain.User) bool { return false }
}

// Roles admits users holding one of the listed roles.
func Roles(roles ...domain.Role) Gate {
	return func(u *domain.User) bool {
		if u == nil {
			return false
		}
		for _, r := range roles {
			if u.Role == r {
				return true
			}
		}
		return false
	}
}

// Checker evaluates access for the whole bot. The Global gate applies to
// every command on top of whatever local gate the command declares.
type Checker struct {
	Global Gate
}

// NewChecker builds a checker with the given bot-wide gate. A nil gate
// admits everyone.
func NewChecker(global Gate) *Checker {
	if global == nil {
		global = Any()
	}
	return &Checker{Global: global}
}

// Check reports whether the user may run a command guarded by the local
// gate. Administrators always pass. A nil local gate is treated as open.
func (c *Checker) Check(u *domain.User, local Gate) bool {
	if u == nil {
		return false
	}
	if u.IsAdmin() {
		return true
	}
	if !c.Global(u) {
		return false
	}
	if local == nil {
		return true
	}
	return local(u)
}
