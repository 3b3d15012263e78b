package ui

import (
	"time"
)

// StatusKind colors the status line
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusError
)

// PageState contains common state that all pages need.
// Embed this in your page model to avoid duplicating these fields.
type PageState struct {
	Layout       Layout
	StatusMsg    string
	StatusKind   StatusKind
	StatusExpiry time.Time
	Quitting     bool
	now          func() time.Time
}

// NewPageState creates a new PageState with the given layout.
func NewPageState(layout Layout) PageState {
	return PageState{Layout: layout, now: time.Now}
}

func (p *PageState) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

// SetStatus sets a status message that will expire after the given duration.
// If duration is 0, the status message will not expire.
func (p *PageState) SetStatus(msg string, kind StatusKind, duration time.Duration) {
	p.StatusMsg = msg
	p.StatusKind = kind
	if duration > 0 {
		p.StatusExpiry = p.clock().Add(duration)
	} else {
		p.StatusExpiry = time.Time{}
	}
}

// ClearExpiredStatus clears the status message if it has expired.
func (p *PageState) ClearExpiredStatus() {
	if !p.StatusExpiry.IsZero() && p.clock().After(p.StatusExpiry) {
		p.StatusMsg = ""
		p.StatusExpiry = time.Time{}
	}
}

// HasStatus returns true if there is a non-empty status message.
func (p *PageState) HasStatus() bool {
	return p.StatusMsg != ""
}

// RenderStatus renders the status line in its kind's color
func (p *PageState) RenderStatus() string {
	switch p.StatusKind {
	case StatusSuccess:
		return SuccessStyle.Render(p.StatusMsg)
	case StatusError:
		return ErrorStyle.Render(p.StatusMsg)
	}
	return AccentStyle.Render(p.StatusMsg)
}

// UpdateLayout updates the layout and returns true if it changed.
func (p *PageState) UpdateLayout(width, height int) bool {
	newLayout := NewLayout(width, height)
	if newLayout != p.Layout {
		p.Layout = newLayout
		return true
	}
	return false
}
