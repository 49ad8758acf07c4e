package model

import (
	"path/filepath"
	"strings"
	"time"
)

type AttachmentStatus string

const (
	AttachmentPending   AttachmentStatus = "pending"
	AttachmentUploading AttachmentStatus = "uploading"
	AttachmentReady     AttachmentStatus = "ready"
	AttachmentError     AttachmentStatus = "error"
)

type AnalysisStatus string

const (
	AnalysisIdle    AnalysisStatus = "idle"
	AnalysisPending AnalysisStatus = "pending"
	AnalysisDone    AnalysisStatus = "done"
	AnalysisError   AnalysisStatus = "error"
)

type AttachmentKind string

const (
	AttachmentKindImage    AttachmentKind = "image"
	AttachmentKindDocument AttachmentKind = "document"
	AttachmentKindAudio    AttachmentKind = "audio"
	AttachmentKindVideo    AttachmentKind = "video"
	AttachmentKindOther    AttachmentKind = "other"
)

// AnalysisResult is the per-file outcome of the background content
// analysis call.
type AnalysisResult struct {
	Summary   string   `json:"summary"`
	FollowUps []string `json:"followups,omitempty"`
}

// AttachmentRef is a file attached to a user turn.
//
// Invariant: RemoteURL is set if and only if Status is ready.
type AttachmentRef struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Mime           string           `json:"mime"`
	Size           int64            `json:"size"`
	Kind           AttachmentKind   `json:"kind"`
	PreviewURL     *string          `json:"preview_url,omitempty"` // local, revoked once uploaded
	RemoteURL      *string          `json:"remote_url,omitempty"`
	Status         AttachmentStatus `json:"status"`
	AnalysisStatus AnalysisStatus   `json:"analysis_status"`
	Analysis       *AnalysisResult  `json:"analysis,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

func NewAttachment(id int64, name, mime string, size int64) *AttachmentRef {
	return &AttachmentRef{
		ID:             id,
		Name:           name,
		Mime:           mime,
		Size:           size,
		Kind:           AttachmentKindFor(mime, name),
		Status:         AttachmentPending,
		AnalysisStatus: AnalysisIdle,
		CreatedAt:      time.Now().UTC(),
	}
}

// AttachmentKindFor derives the coarse kind from the mime type, falling
// back to the file extension when the mime is generic or missing.
func AttachmentKindFor(mime, name string) AttachmentKind {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return AttachmentKindImage
	case strings.HasPrefix(mime, "audio/"):
		return AttachmentKindAudio
	case strings.HasPrefix(mime, "video/"):
		return AttachmentKindVideo
	case strings.HasPrefix(mime, "text/"),
		mime == "application/pdf",
		strings.Contains(mime, "document"),
		strings.Contains(mime, "spreadsheet"),
		mime == "application/json":
		return AttachmentKindDocument
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".heic":
		return AttachmentKindImage
	case ".mp3", ".wav", ".m4a", ".ogg":
		return AttachmentKindAudio
	case ".mp4", ".mov", ".webm":
		return AttachmentKindVideo
	case ".pdf", ".txt", ".md", ".csv", ".doc", ".docx", ".json":
		return AttachmentKindDocument
	}
	return AttachmentKindOther
}
