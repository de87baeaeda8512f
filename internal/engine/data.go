package engine

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/model"
)

// Snapshot is the full contents of the schedule.
type Snapshot struct {
	Strategies []*model.Strategy         `json:"strategies"`
	Topics     []*model.Topic            `json:"topics"`
	Revisions  []*model.RevisionInstance `json:"revisions"`
}

// RestoreResult counts what Restore wrote.
type RestoreResult struct {
	Strategies int `json:"strategies"`
	Topics     int `json:"topics"`
	Revisions  int `json:"revisions"`
	Skipped    int `json:"skipped"`
}

// ResetResult counts what Reset removed.
type ResetResult struct {
	Strategies int `json:"strategies"`
	Topics     int `json:"topics"`
	Revisions  int `json:"revisions"`
}

// Snapshot reads every strategy, topic and revision instance in one
// transaction.
func (e *Engine) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	err := e.store.View(func(tx Tx) error {
		var err error
		if snap.Strategies, err = tx.ListStrategies(); err != nil {
			return err
		}
		if snap.Topics, err = tx.ListTopics(); err != nil {
			return err
		}
		for _, t := range snap.Topics {
			rs, err := tx.RevisionsByTopic(t.ID)
			if err != nil {
				return err
			}
			snap.Revisions = append(snap.Revisions, rs...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortStrategies(snap.Strategies)
	sortTopics(snap.Topics)
	sortInstances(snap.Revisions)
	return snap, nil
}

// Restore writes snap into the store. Existing records are kept unless
// overwrite is set; a strategy whose name is already taken is merged into
// the stored one. Only completed instances are restored; each restored
// topic is then recomputed for today and gets a fresh open instance and
// reminder. Topics whose strategy is missing are skipped.
func (e *Engine) Restore(ctx context.Context, snap *Snapshot, overwrite bool) (RestoreResult, error) {
	var res RestoreResult
	if snap == nil {
		return res, nil
	}
	today := e.Today()
	fx := &sideEffects{}

	err := e.store.Update(func(tx Tx) error {
		existing, err := tx.ListStrategies()
		if err != nil {
			return err
		}
		byName := make(map[string]*model.Strategy, len(existing))
		for _, s := range existing {
			byName[strings.ToLower(s.Name)] = s
		}

		remap := make(map[string]string)
		replaced := make(map[string]bool)
		for _, s := range snap.Strategies {
			exists, err := hasStrategy(tx, s.ID)
			if err != nil {
				return err
			}
			if !exists {
				if match, ok := byName[strings.ToLower(s.Name)]; ok {
					remap[s.ID] = match.ID
					s.ID = match.ID
					s.CreatedAt = match.CreatedAt
					exists = true
				}
			}
			if exists && !overwrite {
				res.Skipped++
				continue
			}
			if err := tx.PutStrategy(s); err != nil {
				return err
			}
			replaced[s.ID] = exists
			byName[strings.ToLower(s.Name)] = s
			res.Strategies++
		}

		restored := make(map[string]*model.Topic, len(snap.Topics))
		for _, t := range snap.Topics {
			if id, ok := remap[t.StrategyID]; ok {
				t.StrategyID = id
			}
			if _, err := loadStrategy(tx, t.StrategyID); err != nil {
				if errors.Is(err, apperrors.ErrStrategyNotFound) {
					res.Skipped++
					continue
				}
				return err
			}
			old, err := tx.RevisionsByTopic(t.ID)
			if err != nil {
				return err
			}
			if _, err := tx.GetTopic(t.ID); err == nil {
				if !overwrite {
					res.Skipped++
					continue
				}
			} else if !errors.Is(err, ErrNoRecord) {
				return err
			}
			for _, r := range old {
				if err := tx.DeleteRevision(r.ID); err != nil {
					return err
				}
				fx.cancel = append(fx.cancel, r.NotificationID)
			}
			restored[t.ID] = t
			res.Topics++
		}

		for _, r := range snap.Revisions {
			t, ok := restored[r.TopicID]
			if !ok || r.IsOpen() {
				continue
			}
			r.TopicName = t.Name
			r.NotificationID = ""
			if err := tx.PutRevision(r); err != nil {
				return err
			}
			res.Revisions++
		}

		// Topics left on a replaced strategy need their timetable redone too.
		stored, err := tx.ListTopics()
		if err != nil {
			return err
		}
		for _, t := range stored {
			if replaced[t.StrategyID] && restored[t.ID] == nil {
				restored[t.ID] = t
			}
		}

		for _, t := range restored {
			s, err := loadStrategy(tx, t.StrategyID)
			if err != nil {
				return err
			}
			applyProgress(t, s, today)
			if err := tx.PutTopic(t); err != nil {
				return err
			}
			if err := e.reconcile(ctx, tx, t, fx); err != nil {
				return err
			}
		}
		return nil
	})
	e.finish(ctx, fx, err)
	if err != nil {
		return RestoreResult{}, err
	}

	logging.FromContext(ctx).Info("schedule restored",
		"strategies", res.Strategies,
		"topics", res.Topics,
		"revisions", res.Revisions,
		"skipped", res.Skipped)
	return res, nil
}

// Reset deletes every strategy, topic and revision instance and cancels
// their reminders.
func (e *Engine) Reset(ctx context.Context) (ResetResult, error) {
	var res ResetResult
	fx := &sideEffects{}
	err := e.store.Update(func(tx Tx) error {
		topics, err := tx.ListTopics()
		if err != nil {
			return err
		}
		for _, t := range topics {
			rs, err := tx.RevisionsByTopic(t.ID)
			if err != nil {
				return err
			}
			for _, r := range rs {
				if err := tx.DeleteRevision(r.ID); err != nil {
					return err
				}
				fx.cancel = append(fx.cancel, r.NotificationID)
				res.Revisions++
			}
			if err := tx.DeleteTopic(t.ID); err != nil {
				return err
			}
			res.Topics++
		}
		strategies, err := tx.ListStrategies()
		if err != nil {
			return err
		}
		for _, s := range strategies {
			if err := tx.DeleteStrategy(s.ID); err != nil {
				return err
			}
			res.Strategies++
		}
		return nil
	})
	e.finish(ctx, fx, err)
	if err != nil {
		return ResetResult{}, err
	}

	logging.FromContext(ctx).Warn("schedule reset",
		"strategies", res.Strategies,
		"topics", res.Topics,
		"revisions", res.Revisions)
	return res, nil
}

func hasStrategy(tx Tx, id string) (bool, error) {
	_, err := tx.GetStrategy(id)
	if errors.Is(err, ErrNoRecord) {
		return false, nil
	}
	return err == nil, err
}
