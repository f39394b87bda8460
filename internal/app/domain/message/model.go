// Package message holds inbound support messages and canned reply templates.
package message

import "time"

// Message statuses.
const (
	StatusNew      = "new"
	StatusOpen     = "open"
	StatusReplied  = "replied"
	StatusArchived = "archived"
)

// Message is an inbound contact message with back-office handling state.
type Message struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id,omitempty"`
	Name          string     `json:"name,omitempty"`
	Email         string     `json:"email"`
	Subject       string     `json:"subject,omitempty"`
	Content       string     `json:"content"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority,omitempty"`
	Category      string     `json:"category,omitempty"`
	AssignedTo    string     `json:"assigned_to,omitempty"`
	AssignedAt    *time.Time `json:"assigned_at,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	InternalNotes string     `json:"internal_notes,omitempty"`
	SLADueAt      *time.Time `json:"sla_due_at,omitempty"`
	RepliedAt     *time.Time `json:"replied_at,omitempty"`
	RepliedBy     string     `json:"replied_by,omitempty"`
	ReplyContent  string     `json:"reply_content,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Template is a canned support reply.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidStatus reports whether s is a recognised message status.
func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusOpen, StatusReplied, StatusArchived:
		return true
	}
	return false
}
