package notify

import (
	"bytes"
	"encoding/json"
	"text/template"
	"time"

	"github.com/manav03panchal/revise/internal/model"
)

// GenericFormatter formats notifications for generic JSON webhooks.
type GenericFormatter struct {
	// Template is an optional text/template producing the request body.
	Template string
}

type genericPayload struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp string            `json:"timestamp"`
	Color     int               `json:"color,omitempty"`
}

// Format renders the template when set, otherwise a fixed JSON document.
func (f *GenericFormatter) Format(n *model.Notification) ([]byte, error) {
	if f.Template != "" {
		return f.formatWithTemplate(n)
	}

	return json.Marshal(genericPayload{
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Fields:    n.Fields,
		Timestamp: n.Timestamp.UTC().Format(time.RFC3339),
		Color:     n.DisplayColor(),
	})
}

func (f *GenericFormatter) formatWithTemplate(n *model.Notification) ([]byte, error) {
	tmpl, err := template.New("webhook").Parse(f.Template)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"Type":      string(n.Type),
		"Title":     n.Title,
		"Message":   n.Message,
		"Fields":    n.Fields,
		"Timestamp": n.Timestamp,
		"Color":     n.DisplayColor(),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ContentType returns the content type for generic webhooks.
func (f *GenericFormatter) ContentType() string {
	return "application/json"
}

// NewGenericFormatter creates a generic formatter with an optional template.
func NewGenericFormatter(template string) *GenericFormatter {
	return &GenericFormatter{Template: template}
}
