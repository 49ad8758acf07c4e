package model

import "time"

// Conversation is the ordered, append-only message sequence for one
// chat session. Insertion order is the conversation order; messages
// are never deleted except by a full reset.
type Conversation struct {
	SessionID string     `json:"session_id"`
	UserID    int64      `json:"user_id"`
	Messages  []*Message `json:"messages"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// LastIncomplete returns the most recent assistant message still owned
// by an outstanding operation, or nil.
func (c *Conversation) LastIncomplete() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Incomplete() {
			return c.Messages[i]
		}
	}
	return nil
}

// LastVisual walks the conversation backward for the most recent image:
// either an assistant-generated image message or a user turn carrying
// an image attachment.
func (c *Conversation) LastVisual() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		m := c.Messages[i]
		if m.Kind == MessageKindImage && m.URL != nil {
			return m
		}
		for _, a := range m.Attachments {
			if a.Kind == AttachmentKindImage && a.Status == AttachmentReady {
				return m
			}
		}
	}
	return nil
}

func (c *Conversation) Find(messageID int64) *Message {
	for _, m := range c.Messages {
		if m.ID == messageID {
			return m
		}
	}
	return nil
}
