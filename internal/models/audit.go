package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog traces a sensitive action (checkout, order deletion, catalog writes, logins).
type AuditLog struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"user_id"`
	UserEmail  string    `json:"user_email"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	Success    bool      `json:"success"`
	Status     int       `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}
