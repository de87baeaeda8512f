package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/manav03panchal/revise/internal/model"
)

// SlackFormatter formats notifications for Slack webhooks.
type SlackFormatter struct{}

type slackPayload struct {
	Text        string        `json:"text,omitempty"`
	Blocks      []slackBlock  `json:"blocks,omitempty"`
	Attachments []slackAttach `json:"attachments,omitempty"`
}

type slackBlock struct {
	Type   string           `json:"type"`
	Text   *slackBlockText  `json:"text,omitempty"`
	Fields []slackBlockText `json:"fields,omitempty"`
}

type slackBlockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// slackAttach carries the color bar.
type slackAttach struct {
	Color    string `json:"color,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// Format converts a notification to Slack block kit.
func (f *SlackFormatter) Format(n *model.Notification) ([]byte, error) {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackBlockText{Type: "plain_text", Text: n.Title},
		},
		{
			Type: "section",
			Text: &slackBlockText{Type: "mrkdwn", Text: slackEscape(n.Message)},
		},
	}

	if len(n.Fields) > 0 {
		var fields []slackBlockText
		for _, key := range sortedKeys(n.Fields) {
			fields = append(fields, slackBlockText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*%s*\n%s", slackEscape(key), slackEscape(n.Fields[key])),
			})
		}
		blocks = append(blocks, slackBlock{Type: "section", Fields: fields})
	}

	blocks = append(blocks, slackBlock{
		Type: "context",
		Text: &slackBlockText{
			Type: "mrkdwn",
			Text: fmt.Sprintf("%s | %s", footer, n.Timestamp.Format("Jan 2, 3:04 PM")),
		},
	})

	return json.Marshal(slackPayload{
		Text:        fmt.Sprintf("*%s*", slackEscape(n.Title)),
		Blocks:      blocks,
		Attachments: []slackAttach{{Color: colorToHex(n.DisplayColor()), Fallback: n.Title}},
	})
}

// ContentType returns the content type for Slack webhooks.
func (f *SlackFormatter) ContentType() string {
	return "application/json"
}

func colorToHex(color int) string {
	return fmt.Sprintf("#%06X", color)
}

// slackEscape escapes the characters Slack mrkdwn treats as control.
func slackEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
