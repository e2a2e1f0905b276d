package model

import (
	"time"
)

// Role identifies what kind of principal a user is.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
)

// CanReview reports whether the role receives report-lifecycle broadcasts
// and may act on reports and conversation triage.
func (r Role) CanReview() bool {
	return r == RoleAgent || r == RoleAdmin
}

// Tone is the preferred response tone.
type Tone string

const (
	ToneFormal Tone = "formal"
	ToneCasual Tone = "casual"
)

// ResponseLength is the preferred response verbosity.
type ResponseLength string

const (
	LengthDetailed ResponseLength = "detailed"
	LengthConcise  ResponseLength = "concise"
)

// ChatPreferences are per-user style preferences applied to generated
// responses. CustomInstructions is user-controlled free text and is
// sanitized before prompt inclusion.
type ChatPreferences struct {
	Tone               Tone           `json:"tone"`
	ResponseLength     ResponseLength `json:"response_length"`
	CustomInstructions string         `json:"custom_instructions,omitempty"`
}

// User is an authenticated principal: customer, agent, or admin.
type User struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Role        Role            `json:"role"`
	Preferences ChatPreferences `json:"preferences"`
	IsOnline    bool            `json:"is_online"`
	LastSeen    *time.Time      `json:"last_seen,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
