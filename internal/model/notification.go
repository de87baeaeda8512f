package model

import (
	"time"
)

// NotificationType says what a webhook or bot message is about.
type NotificationType string

const (
	NotifyRevisionDue NotificationType = "revision_due"
	NotifyOverdue     NotificationType = "overdue"
	NotifyDigest      NotificationType = "digest"
	NotifyTest        NotificationType = "test"
)

// Embed colors, as 0xRRGGBB.
const (
	ColorWarning = 0xFEE75C
	ColorError   = 0xED4245
	ColorInfo    = 0x5865F2
	ColorTest    = 0x3498DB
)

var typeColors = map[NotificationType]int{
	NotifyRevisionDue: ColorWarning,
	NotifyOverdue:     ColorError,
	NotifyDigest:      ColorInfo,
	NotifyTest:        ColorTest,
}

// Notification is one message delivered to every enabled webhook and to
// Telegram. Fields render as name/value pairs where the target supports it.
type Notification struct {
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Color     int               `json:"color,omitempty"`
}

// NewNotification creates a notification stamped with the current time.
func NewNotification(t NotificationType, title, message string) *Notification {
	return &Notification{
		Type:      t,
		Title:     title,
		Message:   message,
		Fields:    map[string]string{},
		Timestamp: time.Now(),
	}
}

// WithField sets a field and returns n for chaining.
func (n *Notification) WithField(key, value string) *Notification {
	if n.Fields == nil {
		n.Fields = map[string]string{}
	}
	n.Fields[key] = value
	return n
}

// WithColor overrides the color chosen by type.
func (n *Notification) WithColor(color int) *Notification {
	n.Color = color
	return n
}

// DisplayColor returns the explicit color, or the one for the type.
func (n *Notification) DisplayColor() int {
	if n.Color != 0 {
		return n.Color
	}
	if c, ok := typeColors[n.Type]; ok {
		return c
	}
	return ColorInfo
}
