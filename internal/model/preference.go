package model

import (
	"strings"
	"time"
)

// Preferences is the persistent record of standing user directives
// ("from now on, answer in bullet points" style statements) merged
// across turns, plus the most recently detected conversation language.
type Preferences struct {
	UserID     int64     `json:"user_id"`
	Directives []string  `json:"directives"`
	Language   string    `json:"language"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Merge appends directives not already present, case-insensitively
// deduplicated, newest last.
func (p *Preferences) Merge(directives []string) bool {
	changed := false
	for _, d := range directives {
		if d == "" || p.contains(d) {
			continue
		}
		p.Directives = append(p.Directives, d)
		changed = true
	}
	return changed
}

func (p *Preferences) contains(d string) bool {
	for _, have := range p.Directives {
		if strings.EqualFold(have, d) {
			return true
		}
	}
	return false
}
