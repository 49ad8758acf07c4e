package turn

import (
	"fmt"
	"strings"

	"github.com/6ixplatform/6ix-sub001/internal/model"
	"github.com/6ixplatform/6ix-sub001/internal/stream"
	"github.com/6ixplatform/6ix-sub001/internal/toolcall"
)

// BuildContext assembles the upstream message context: one composed
// system message, then the trimmed history window, then the new user
// turn.
func BuildContext(conv *model.Conversation, prefs *model.Preferences, plan model.Plan, lang, manifest, userText string, window int) []stream.Message {
	msgs := []stream.Message{{Role: "system", Content: systemContext(prefs, plan, lang, manifest)}}
	msgs = append(msgs, historyWindow(conv, window)...)
	msgs = append(msgs, stream.Message{Role: "user", Content: userText})
	return msgs
}

func systemContext(prefs *model.Preferences, plan model.Plan, lang, manifest string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are 6IX, a helpful assistant. The user is on the %s plan.\n", plan)
	fmt.Fprintf(&b, "Respond in the conversation language (%s).\n", lang)

	if prefs != nil && len(prefs.Directives) > 0 {
		b.WriteString("Standing user instructions:\n")
		for _, d := range prefs.Directives {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	if manifest != "" {
		b.WriteString("\n")
		b.WriteString(manifest)
	}
	return strings.TrimSpace(b.String())
}

// historyWindow returns the last N non-system turns with internal
// directive echoes filtered out. Placeholders still owned by an
// operation and image messages carry no usable text and are skipped.
func historyWindow(conv *model.Conversation, window int) []stream.Message {
	if window <= 0 || conv == nil {
		return nil
	}

	var out []stream.Message
	for i := len(conv.Messages) - 1; i >= 0 && len(out) < window; i-- {
		m := conv.Messages[i]
		if m.Role == model.RoleSystem || m.Incomplete() || m.Kind == model.MessageKindImage {
			continue
		}
		content := toolcall.StripDirectives(m.Content)
		if content == "" {
			continue
		}
		out = append(out, stream.Message{Role: string(m.Role), Content: content})
	}

	// Walked backward; restore conversation order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
