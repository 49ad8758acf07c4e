package dto

import "github.com/6ixplatform/6ix-sub001/internal/model"

// UploadResponse returns the state of each file after ingest.
type UploadResponse struct {
	Attachments []*model.AttachmentRef `json:"attachments"`
}

// PreanalysisRequest offers the composer's draft text while the user
// is still typing.
type PreanalysisRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Text      string `json:"text"`
}

// HintsResponse is the de-duplicated follow-up list for the composer.
type HintsResponse struct {
	Hints []string `json:"hints"`
}
