package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/manav03panchal/revise/internal/engine"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/output"
	"github.com/manav03panchal/revise/internal/parser"
)

type createTopicRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	StrategyID string `json:"strategyId"`
	// CreatedAt is a day expression such as "2024-06-01" or "3 days ago".
	CreatedAt string `json:"createdAt"`
}

type renameTopicRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type changeStrategyRequest struct {
	StrategyID string `json:"strategyId" validate:"required"`
}

type createStrategyRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Intervals string `json:"intervals" validate:"required"`
}

// HistoryResponse lists a topic's revision instances.
type HistoryResponse struct {
	Topic     *output.TopicOutput      `json:"topic"`
	Instances []*output.InstanceOutput `json:"instances"`
}

func (s *Server) topicResponse(status string, t *model.Topic) output.TopicResponse {
	today := s.engine.Today()
	return output.TopicResponse{Status: status, Topic: output.NewTopicOutput(t, s.engine.Progress(t), today)}
}

func (s *Server) findTopic(w http.ResponseWriter, r *http.Request) (*model.Topic, bool) {
	t, err := s.engine.FindTopic(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	return t, true
}

func (s *Server) listTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.engine.QueryAll(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	today := s.engine.Today()
	resp := output.TopicsResponse{Topics: make([]*output.TopicOutput, 0, len(topics)), Count: len(topics)}
	for _, t := range topics {
		resp.Topics = append(resp.Topics, output.NewTopicOutput(t, s.engine.Progress(t), today))
	}
	respondJSON(w, r, http.StatusOK, resp)
}

func (s *Server) createTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	var opts engine.CreateOptions
	if req.CreatedAt != "" {
		day, err := parser.ParseDay(req.CreatedAt, s.engine.Now(), parser.PreferPast)
		if err != nil {
			respondError(w, r, err)
			return
		}
		opts.CreatedAt = day
	}

	var t *model.Topic
	var err error
	if req.StrategyID == "" {
		t, err = s.engine.CreateTopicWithDefault(r.Context(), req.Name, opts)
	} else {
		strategy, serr := s.engine.GetStrategy(r.Context(), req.StrategyID)
		if serr != nil {
			respondError(w, r, serr)
			return
		}
		t, err = s.engine.CreateTopic(r.Context(), req.Name, strategy.ID, opts)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, s.topicResponse("created", t))
}

func (s *Server) getTopic(w http.ResponseWriter, r *http.Request) {
	if t, ok := s.findTopic(w, r); ok {
		respondJSON(w, r, http.StatusOK, s.topicResponse("ok", t))
	}
}

func (s *Server) renameTopic(w http.ResponseWriter, r *http.Request) {
	t, ok := s.findTopic(w, r)
	if !ok {
		return
	}
	var req renameTopicRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	t, err := s.engine.RenameTopic(r.Context(), t.ID, req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, s.topicResponse("renamed", t))
}

func (s *Server) deleteTopic(w http.ResponseWriter, r *http.Request) {
	t, ok := s.findTopic(w, r)
	if !ok {
		return
	}
	if err := s.engine.DeleteTopic(r.Context(), t.ID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) markRevised(w http.ResponseWriter, r *http.Request) {
	t, ok := s.findTopic(w, r)
	if !ok {
		return
	}
	t, err := s.engine.MarkRevised(r.Context(), t.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, s.topicResponse("revised", t))
}

func (s *Server) changeStrategy(w http.ResponseWriter, r *http.Request) {
	t, ok := s.findTopic(w, r)
	if !ok {
		return
	}
	var req changeStrategyRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	strategy, err := s.engine.GetStrategy(r.Context(), req.StrategyID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	t, err = s.engine.ChangeStrategy(r.Context(), t.ID, strategy.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, s.topicResponse("updated", t))
}

func (s *Server) topicHistory(w http.ResponseWriter, r *http.Request) {
	t, ok := s.findTopic(w, r)
	if !ok {
		return
	}
	instances, err := s.engine.Instances(r.Context(), t.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, HistoryResponse{
		Topic:     output.NewTopicOutput(t, s.engine.Progress(t), s.engine.Today()),
		Instances: output.NewInstanceOutputs(instances),
	})
}

// due handles GET /api/due?day=<expr>. The day defaults to today; overdue
// topics are listed alongside.
func (s *Server) due(w http.ResponseWriter, r *http.Request) {
	day, err := parser.ParseDay(r.URL.Query().Get("day"), s.engine.Now(), parser.PreferFuture)
	if err != nil {
		respondError(w, r, err)
		return
	}
	due, err := s.engine.QueryDueOn(r.Context(), day)
	if err != nil {
		respondError(w, r, err)
		return
	}
	overdue, err := s.engine.QueryOverdue(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	today := s.engine.Today()
	resp := output.DueResponse{
		Day:     output.FormatDay(day),
		Due:     output.NewInstanceOutputs(due),
		Overdue: make([]*output.TopicOutput, 0, len(overdue)),
	}
	for _, t := range overdue {
		resp.Overdue = append(resp.Overdue, output.NewTopicOutput(t, s.engine.Progress(t), today))
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// calendar handles GET /api/calendar?range=<expr>.
func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	rng, err := parser.ParseRange(r.URL.Query().Get("range"), s.engine.Now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	instances, err := s.engine.QueryRange(r.Context(), rng.From, rng.To)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, output.CalendarResponse{
		From:      output.FormatDay(rng.From),
		To:        output.FormatDay(rng.To),
		Instances: output.NewInstanceOutputs(instances),
	})
}

func (s *Server) listStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := s.engine.ListStrategies(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp := output.StrategiesResponse{Strategies: make([]*output.StrategyOutput, len(strategies))}
	for i, st := range strategies {
		resp.Strategies[i] = output.NewStrategyOutput(st)
	}
	respondJSON(w, r, http.StatusOK, resp)
}

func (s *Server) createStrategy(w http.ResponseWriter, r *http.Request) {
	var req createStrategyRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	st, err := s.engine.CreateStrategy(r.Context(), req.Name, req.Intervals)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, output.NewStrategyOutput(st))
}

// deleteStrategy handles DELETE /api/strategies/{ref}?force=true.
func (s *Server) deleteStrategy(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.GetStrategy(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	if err := s.engine.DeleteStrategy(r.Context(), st.ID, force); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
