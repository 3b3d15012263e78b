package coordinator

import "time"

// NoticeKind classifies a user-facing notice
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is a one-shot message for the user
type Notice struct {
	Kind    NoticeKind
	Message string
	At      time.Time
}

const maxNotices = 50

func (c *Coordinator) notifyLocked(kind NoticeKind, msg string) {
	if msg == "" {
		return
	}
	c.notices = append(c.notices, Notice{Kind: kind, Message: msg, At: c.opts.Now()})
	if over := len(c.notices) - maxNotices; over > 0 {
		c.notices = append(c.notices[:0:0], c.notices[over:]...)
	}
}

// DrainNotices returns queued notices oldest first and empties the queue
func (c *Coordinator) DrainNotices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	return out
}
