package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindImage MessageKind = "image"
)

type Feedback string

const (
	FeedbackLike    Feedback = "like"
	FeedbackDislike Feedback = "dislike"
	FeedbackNone    Feedback = "none"
)

// Progress is the rotating step readout shown while an image job is
// outstanding. It lives on the placeholder message and is cleared once
// the job finishes on any path.
type Progress struct {
	Label string   `json:"label"`
	Index int      `json:"index"`
	Steps []string `json:"steps"`
}

// Message is one entry in the ordered, append-only conversation.
// Messages are created as placeholders with empty content, mutated in
// place by the producing operation (stream sink or image progress
// callback), and frozen once that operation completes or is canceled.
type Message struct {
	ID          int64           `json:"id"`
	Role        Role            `json:"role"`
	Kind        MessageKind     `json:"kind"`
	Content     string          `json:"content"`
	URL         *string         `json:"url,omitempty"`    // image result, set only once generation finishes
	Prompt      *string         `json:"prompt,omitempty"` // echo of the image request that produced this message
	Attachments []AttachmentRef `json:"attachments,omitempty"`
	Feedback    Feedback        `json:"feedback"`
	Progress    *Progress       `json:"progress,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewUserMessage(id int64, text string, attachments []AttachmentRef) *Message {
	return &Message{
		ID:          id,
		Role:        RoleUser,
		Kind:        MessageKindText,
		Content:     text,
		Attachments: attachments,
		Feedback:    FeedbackNone,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewGhostMessage creates the assistant placeholder a turn mutates in
// place while output arrives.
func NewGhostMessage(id int64) *Message {
	return &Message{
		ID:        id,
		Role:      RoleAssistant,
		Kind:      MessageKindText,
		Feedback:  FeedbackNone,
		CreatedAt: time.Now().UTC(),
	}
}

// NewImagePlaceholder creates the placeholder for an image job. The
// prompt is echoed so the final message can be re-run by the user.
func NewImagePlaceholder(id int64, prompt string, steps []string) *Message {
	initial := &Progress{Steps: steps}
	if len(steps) > 0 {
		initial.Label = steps[0]
	}
	return &Message{
		ID:        id,
		Role:      RoleAssistant,
		Kind:      MessageKindImage,
		Prompt:    &prompt,
		Feedback:  FeedbackNone,
		Progress:  initial,
		CreatedAt: time.Now().UTC(),
	}
}

// Incomplete reports whether the message is still owned by an
// outstanding operation: a streaming ghost with no frozen content or
// an image placeholder without a URL.
func (m *Message) Incomplete() bool {
	if m.Role != RoleAssistant {
		return false
	}
	if m.Kind == MessageKindImage {
		return m.URL == nil
	}
	return m.Progress != nil || m.Content == ""
}
