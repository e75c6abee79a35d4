package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/japanlife/assistbot/internal/domain"
)

func TestAdminBypassesEveryGate(t *testing.T) {
	admin := &domain.User{Role: domain.RoleAdmin}
	c := NewChecker(None())

	assert.True(t, c.Check(admin, None()))
	assert.True(t, c.Check(admin, Any()))
	assert.True(t, c.Check(admin, nil))
}

func TestGlobalAndLocalGatesBothApply(t *testing.T) {
	user := &domain.User{Role: domain.RoleDefault}

	cases := []struct {
		name   string
		global Gate
		local  Gate
		want   bool
	}{
		{"open/open", Any(), Any(), true},
		{"open/nil", Any(), nil, true},
		{"open/closed", Any(), None(), false},
		{"closed/open", None(), Any(), false},
		{"closed/closed", None(), None(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChecker(tc.global)
			assert.Equal(t, tc.want, c.Check(user, tc.local))
		})
	}
}

func TestRolesGate(t *testing.T) {
	gate := Roles(domain.RoleAdmin)

	assert.True(t, gate(&domain.User{Role: domain.RoleAdmin}))
	assert.False(t, gate(&domain.User{Role: domain.RoleDefault}))
	assert.False(t, gate(nil))
}

func TestNilUserIsDenied(t *testing.T) {
	c := NewChecker(Any())
	assert.False(t, c.Check(nil, Any()))
}
