package output

import (
	"time"

	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/timetable"
)

// JSONFormatter provides JSON-specific formatting.
type JSONFormatter struct {
	*Formatter
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(f *Formatter) *JSONFormatter {
	return &JSONFormatter{Formatter: f}
}

// TopicOutput is a topic with its derived progress.
type TopicOutput struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	StrategyID       string   `json:"strategyId"`
	CreatedAt        string   `json:"createdAt"`
	RevisionDates    []string `json:"revisionDates"`
	LastRevisedDate  *string  `json:"lastRevisedDate"`
	NextRevisionDate *string  `json:"nextRevisionDate"`
	IsLearned        bool     `json:"isLearned"`
	Status           string   `json:"status"`
	DaysUntilNext    *int     `json:"daysUntilNext,omitempty"`
	Completed        int      `json:"completed"`
}

// NewTopicOutput creates a TopicOutput. Dates are calendar days.
func NewTopicOutput(t *model.Topic, p timetable.Progress, today time.Time) *TopicOutput {
	out := &TopicOutput{
		ID:            t.ID,
		Name:          t.Name,
		StrategyID:    t.StrategyID,
		CreatedAt:     FormatDay(t.CreatedAt),
		RevisionDates: make([]string, len(t.RevisionDates)),
		IsLearned:     p.Learned,
		Status:        string(p.Status),
		Completed:     t.CompletedCount(),
	}
	for i, d := range t.RevisionDates {
		out.RevisionDates[i] = FormatDay(d)
	}
	if t.LastRevisedDate != nil {
		s := FormatDay(*t.LastRevisedDate)
		out.LastRevisedDate = &s
	}
	if p.NextDue != nil {
		s := FormatDay(*p.NextDue)
		out.NextRevisionDate = &s
		days := p.DaysUntil(today)
		out.DaysUntilNext = &days
	}
	return out
}

// InstanceOutput is a revision instance.
type InstanceOutput struct {
	ID            string  `json:"id"`
	TopicID       string  `json:"topicId"`
	TopicName     string  `json:"topicName"`
	ScheduledDate string  `json:"scheduledDate"`
	IsCompleted   bool    `json:"isCompleted"`
	CompletedAt   *string `json:"completedAt"`
}

// NewInstanceOutput creates an InstanceOutput.
func NewInstanceOutput(r *model.RevisionInstance) *InstanceOutput {
	out := &InstanceOutput{
		ID:            r.ID,
		TopicID:       r.TopicID,
		TopicName:     r.TopicName,
		ScheduledDate: r.ScheduledDate,
		IsCompleted:   r.IsCompleted,
	}
	if r.CompletedAt != nil {
		s := r.CompletedAt.Format(time.RFC3339)
		out.CompletedAt = &s
	}
	return out
}

// NewInstanceOutputs converts a slice of instances.
func NewInstanceOutputs(rs []*model.RevisionInstance) []*InstanceOutput {
	out := make([]*InstanceOutput, len(rs))
	for i, r := range rs {
		out[i] = NewInstanceOutput(r)
	}
	return out
}

// StrategyOutput is a strategy.
type StrategyOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Intervals []int  `json:"intervals"`
}

// NewStrategyOutput creates a StrategyOutput.
func NewStrategyOutput(s *model.Strategy) *StrategyOutput {
	intervals := s.Intervals
	if intervals == nil {
		intervals = []int{}
	}
	return &StrategyOutput{ID: s.ID, Name: s.Name, Intervals: intervals}
}

// TopicResponse is the output of commands acting on one topic.
type TopicResponse struct {
	Status string       `json:"status"`
	Topic  *TopicOutput `json:"topic"`
}

// TopicsResponse is the topic list output.
type TopicsResponse struct {
	Topics []*TopicOutput `json:"topics"`
	Count  int            `json:"count"`
}

// DueResponse lists what is due on a day.
type DueResponse struct {
	Day     string            `json:"day"`
	Due     []*InstanceOutput `json:"due"`
	Overdue []*TopicOutput    `json:"overdue"`
}

// CalendarResponse lists instances over a range.
type CalendarResponse struct {
	From      string            `json:"from"`
	To        string            `json:"to"`
	Instances []*InstanceOutput `json:"instances"`
}

// StrategiesResponse is the strategy list output.
type StrategiesResponse struct {
	Strategies []*StrategyOutput `json:"strategies"`
}

// ErrorResponse represents an error in JSON.
type ErrorResponse struct {
	Status     string `json:"status"`
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
}

// PrintError writes an error response.
func (j *JSONFormatter) PrintError(err error, suggestion string) error {
	return j.JSON(ErrorResponse{Status: "error", Error: err.Error(), Suggestion: suggestion})
}

// PrintTopic writes a single topic response.
func (j *JSONFormatter) PrintTopic(status string, t *model.Topic, p timetable.Progress, today time.Time) error {
	return j.JSON(TopicResponse{Status: status, Topic: NewTopicOutput(t, p, today)})
}

// PrintTopics writes the topic list.
func (j *JSONFormatter) PrintTopics(topics []*model.Topic, progress func(*model.Topic) timetable.Progress, today time.Time) error {
	resp := TopicsResponse{Topics: make([]*TopicOutput, 0, len(topics)), Count: len(topics)}
	for _, t := range topics {
		resp.Topics = append(resp.Topics, NewTopicOutput(t, progress(t), today))
	}
	return j.JSON(resp)
}

// PrintDue writes due and overdue lists.
func (j *JSONFormatter) PrintDue(day time.Time, due []*model.RevisionInstance, overdue []*model.Topic, progress func(*model.Topic) timetable.Progress, today time.Time) error {
	resp := DueResponse{
		Day:     FormatDay(day),
		Due:     NewInstanceOutputs(due),
		Overdue: make([]*TopicOutput, 0, len(overdue)),
	}
	for _, t := range overdue {
		resp.Overdue = append(resp.Overdue, NewTopicOutput(t, progress(t), today))
	}
	return j.JSON(resp)
}

// PrintCalendar writes instances over a range.
func (j *JSONFormatter) PrintCalendar(from, to time.Time, instances []*model.RevisionInstance) error {
	return j.JSON(CalendarResponse{
		From:      FormatDay(from),
		To:        FormatDay(to),
		Instances: NewInstanceOutputs(instances),
	})
}

// PrintStrategies writes the strategy list.
func (j *JSONFormatter) PrintStrategies(strategies []*model.Strategy) error {
	resp := StrategiesResponse{Strategies: make([]*StrategyOutput, len(strategies))}
	for i, s := range strategies {
		resp.Strategies[i] = NewStrategyOutput(s)
	}
	return j.JSON(resp)
}

// WebhookOutput is a webhook with its target masked.
type WebhookOutput struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Target    string     `json:"target"`
	ChatID    int64      `json:"chatId,omitempty"`
	Enabled   bool       `json:"enabled"`
	CreatedAt time.Time  `json:"createdAt"`
	LastUsed  *time.Time `json:"lastUsed,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

// NewWebhookOutput creates a WebhookOutput.
func NewWebhookOutput(w *model.Webhook) *WebhookOutput {
	out := &WebhookOutput{
		Name:      w.Name,
		Type:      w.Type,
		Target:    w.MaskedURL(),
		ChatID:    w.ChatID,
		Enabled:   w.Enabled,
		CreatedAt: w.CreatedAt,
		LastError: w.LastError,
	}
	if !w.LastUsed.IsZero() {
		used := w.LastUsed
		out.LastUsed = &used
	}
	return out
}

// WebhooksResponse is the webhook list.
type WebhooksResponse struct {
	Webhooks []*WebhookOutput `json:"webhooks"`
	Count    int              `json:"count"`
}

// PrintWebhooks writes the webhook list.
func (j *JSONFormatter) PrintWebhooks(webhooks []*model.Webhook) error {
	resp := WebhooksResponse{Webhooks: make([]*WebhookOutput, len(webhooks)), Count: len(webhooks)}
	for i, w := range webhooks {
		resp.Webhooks[i] = NewWebhookOutput(w)
	}
	return j.JSON(resp)
}
