package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUserNotFound is returned by repositories when no user row matches.
var ErrUserNotFound = errors.New("user not found")

// Role defines the access level of a user.
type Role string

const (
	// RoleAdmin grants access to every handler regardless of requirements.
	RoleAdmin Role = "admin"
	// RoleDefault is the unrestricted baseline role assigned on first contact.
	RoleDefault Role = "default"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleDefault
}

// Menu tracks the main menu message and transient messages of a private chat.
// Stored as a JSON column on the users table.
type Menu struct {
	MenuMessageID int   `json:"menu_message_id"`
	MessageIDs    []int `json:"messages_ids"`
}

// Value implements driver.Valuer for the menu JSON column.
func (m Menu) Value() (driver.Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal menu: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner for the menu JSON column.
func (m *Menu) Scan(src any) error {
	if src == nil {
		*m = Menu{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported menu column type %T", src)
	}
	if len(data) == 0 {
		*m = Menu{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// User is the persisted per-user record. State carries the current stage
// token; an empty state means the user is not inside any flow.
type User struct {
	ID           int64     `db:"id"`
	TelegramID   int64     `db:"telegram_id"`
	Username     string    `db:"username"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Role         Role      `db:"role"`
	State        string    `db:"state"`
	Menu         Menu      `db:"menu"`
	CreatedAt    time.Time `db:"created_at"`
	LastActivity time.Time `db:"last_activity"`
}

// DisplayName returns the human readable name used in logs and reports.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("%d", u.TelegramID)
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile is the platform-side identity used to resolve or create a User.
type Profile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}
