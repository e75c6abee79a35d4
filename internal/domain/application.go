package domain

import (
	"database/sql"
	"fmt"
	"time"
)

// ApplicationStatus is the lifecycle state of a purchase application.
type ApplicationStatus string

const (
	StatusNew        ApplicationStatus = "new"
	StatusProcessing ApplicationStatus = "processing"
	StatusApproved   ApplicationStatus = "approved"
	StatusDelivery   ApplicationStatus = "delivery"
	StatusCompleted  ApplicationStatus = "completed"
	StatusRejected   ApplicationStatus = "rejected"
)

type statusMeta struct {
	Text string
	Icon string
}

var statusMetadata = map[ApplicationStatus]statusMeta{
	StatusNew:        {Text: "Новая", Icon: "⏳"},
	StatusProcessing: {Text: "В работе", Icon: "⚙️"},
	StatusApproved:   {Text: "Куплен", Icon: "🟢"},
	StatusDelivery:   {Text: "В пути", Icon: "🚛"},
	StatusCompleted:  {Text: "Доставлен", Icon: "✅"},
	StatusRejected:   {Text: "Отклонена", Icon: "❌"},
}

// Valid reports whether the status is one of the known lifecycle values.
func (s ApplicationStatus) Valid() bool {
	_, ok := statusMetadata[s]
	return ok
}

// Display returns the localized status label.
func (s ApplicationStatus) Display() string {
	if meta, ok := statusMetadata[s]; ok {
		return meta.Text
	}
	return "Неизвестно"
}

// Icon returns the emoji marker for the status.
func (s ApplicationStatus) Icon() string {
	if meta, ok := statusMetadata[s]; ok {
		return meta.Icon
	}
	return "⚪"
}

// Application is a purchase request submitted by a user through the
// application flow. BitrixLeadID is set after the CRM lead is created.
type Application struct {
	ID           int64             `db:"id"`
	UserID       int64             `db:"user_id"`
	Status       ApplicationStatus `db:"status"`
	CarModel     string            `db:"car_model"`
	Phone        string            `db:"phone"`
	Comments     string            `db:"comments"`
	BitrixLeadID sql.NullInt64     `db:"bitrix_lead_id"`
	CreatedAt    time.Time         `db:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at"`
}

// ChangeStatus validates and applies a lifecycle transition.
func (a *Application) ChangeStatus(status ApplicationStatus, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("invalid application status %q", status)
	}
	a.Status = status
	a.UpdatedAt = now
	return nil
}
