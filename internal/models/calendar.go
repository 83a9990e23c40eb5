package models

import "time"

// Calendar is a namespace of appointments. TimeZone is informational; computations use UTC.
type Calendar struct {
	ID        string    `db:"id" json:"id" gorm:"primaryKey;type:varchar(36)"`
	AgentID   string    `db:"agent_id" json:"agent_id" gorm:"type:varchar(128);not null;index"`
	Name      string    `db:"name" json:"name" gorm:"type:varchar(255);not null"`
	TimeZone  string    `db:"time_zone" json:"time_zone" gorm:"type:varchar(64);not null;default:UTC"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TableName pins the gorm table name.
func (Calendar) TableName() string {
	return "calendars"
}

// Pagination carries list metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// CalendarFilter narrows calendar listings.
type CalendarFilter struct {
	AgentID  string
	Page     int
	PageSize int
}
