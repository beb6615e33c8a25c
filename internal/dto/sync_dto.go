package dto

import "time"

type StartRefreshResponse struct {
	Status string `json:"status"`
	Total  int    `json:"total"`
}

type RefreshStatusResponse struct {
	Status     string     `json:"status"`
	Message    string     `json:"message,omitempty"`
	Total      int64      `json:"total"`
	Indexed    int64      `json:"indexed"`
	Skipped    int64      `json:"skipped"`
	Deleted    int64      `json:"deleted"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// WebhookPayload is the document change notification pushed by the wiki.
type WebhookPayload struct {
	Event    string `json:"event" validate:"required"`
	Document struct {
		Id        string `json:"id" validate:"required"`
		Title     string `json:"title"`
		UpdatedAt string `json:"updatedAt"`
	} `json:"document"`
}

const (
	WebhookEventDocumentUpdated = "documents.update"
	WebhookEventDocumentCreated = "documents.create"
	WebhookEventDocumentDeleted = "documents.delete"
)
