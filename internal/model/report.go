package model

import (
	"time"
)

// IssueType classifies what a report is about.
type IssueType string

const (
	IssueInappropriateResponse IssueType = "inappropriate_response"
	IssueIncorrectInformation  IssueType = "incorrect_information"
	IssueTechnical             IssueType = "technical_issue"
	IssueNeedHumanAgent        IssueType = "need_human_agent"
	IssueOther                 IssueType = "other"
)

// Valid reports whether t is a known issue type.
func (t IssueType) Valid() bool {
	switch t {
	case IssueInappropriateResponse, IssueIncorrectInformation, IssueTechnical, IssueNeedHumanAgent, IssueOther:
		return true
	}
	return false
}

// ReportStatus is the review state of a report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportInReview  ReportStatus = "in_review"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Priority is the triage priority of a report.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Resolution records how a report was closed.
type Resolution struct {
	Notes      string     `json:"notes,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Report is a customer-filed issue against a conversation. Creating one
// escalates the conversation.
type Report struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	ReportedBy     string       `json:"reported_by"`
	IssueType      IssueType    `json:"issue_type"`
	Description    string       `json:"description"`
	Status         ReportStatus `json:"status"`
	Priority       Priority     `json:"priority"`
	AssignedTo     string       `json:"assigned_to,omitempty"`
	Resolution     Resolution   `json:"resolution"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// CreateReportRequest is the request to file a report.
type CreateReportRequest struct {
	ConversationID string    `json:"conversation_id"`
	IssueType      IssueType `json:"issue_type"`
	Description    string    `json:"description"`
	Priority       Priority  `json:"priority,omitempty"`
}

// UpdateReportRequest is the request to triage or resolve a report.
type UpdateReportRequest struct {
	Status     ReportStatus `json:"status,omitempty"`
	Priority   Priority     `json:"priority,omitempty"`
	AssignedTo string       `json:"assigned_to,omitempty"`
	Notes      string       `json:"notes,omitempty"`
}
