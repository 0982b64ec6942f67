// Package session persists conversation state in PostgreSQL: message
// history, diver profile, and expiry.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Role values for history entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one message in a session's history.
type Entry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DiverProfile captures what the assistant knows about the diver.
// Pointer and slice fields distinguish "not provided" from zero values
// so partial updates merge cleanly.
type DiverProfile struct {
	CertificationLevel string   `json:"certificationLevel,omitempty"`
	DiveCount          *int     `json:"diveCount,omitempty"`
	Interests          []string `json:"interests,omitempty"`
	Fears              []string `json:"fears,omitempty"`
}

// merge overlays non-zero fields of update onto p.
func (p DiverProfile) merge(update DiverProfile) DiverProfile {
	out := p
	if update.CertificationLevel != "" {
		out.CertificationLevel = update.CertificationLevel
	}
	if update.DiveCount != nil {
		out.DiveCount = update.DiveCount
	}
	if update.Interests != nil {
		out.Interests = update.Interests
	}
	if update.Fears != nil {
		out.Fears = update.Fears
	}
	return out
}

// Data is a full session snapshot.
type Data struct {
	ID        uuid.UUID    `json:"id"`
	History   []Entry      `json:"history"`
	Profile   DiverProfile `json:"diverProfile"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// IsExpired reports whether the session's expiry has passed at now.
// The comparison is strict: a session expiring exactly at now is
// still live.
func IsExpired(s *Data, now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
