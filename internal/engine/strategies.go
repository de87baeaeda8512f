package engine

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/validate"
)

// ListStrategies returns strategies in creation order.
func (e *Engine) ListStrategies(ctx context.Context) ([]*model.Strategy, error) {
	var out []*model.Strategy
	err := e.store.View(func(tx Tx) error {
		var err error
		out, err = tx.ListStrategies()
		return err
	})
	if err != nil {
		return nil, err
	}
	sortStrategies(out)
	return out, nil
}

func sortStrategies(out []*model.Strategy) {
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
}

// GetStrategy resolves a strategy by id, unique id prefix or
// case-insensitive name.
func (e *Engine) GetStrategy(ctx context.Context, ref string) (*model.Strategy, error) {
	ref = strings.TrimSpace(ref)
	var found *model.Strategy
	err := e.store.View(func(tx Tx) error {
		if ref == "" {
			return apperrors.NewStrategyNotFoundError(ref)
		}
		if s, err := tx.GetStrategy(ref); err == nil {
			found = s
			return nil
		} else if !errors.Is(err, ErrNoRecord) {
			return err
		}
		all, err := tx.ListStrategies()
		if err != nil {
			return err
		}
		var matches []*model.Strategy
		for _, s := range all {
			if strings.EqualFold(s.Name, ref) {
				found = s
				return nil
			}
			if strings.HasPrefix(s.ID, ref) {
				matches = append(matches, s)
			}
		}
		if len(matches) == 1 {
			found = matches[0]
			return nil
		}
		return apperrors.NewStrategyNotFoundError(ref)
	})
	return found, err
}

// CreateStrategy parses intervalsText and stores a new strategy. Malformed
// entries are skipped; a name clash or no usable interval is rejected.
func (e *Engine) CreateStrategy(ctx context.Context, name, intervalsText string) (*model.Strategy, error) {
	name, err := validate.StrategyName(name)
	if err != nil {
		return nil, err
	}
	intervals := model.ParseIntervals(intervalsText)
	if len(intervals) == 0 {
		verr := apperrors.NewValidationError("intervals", intervalsText,
			"no valid intervals", "")
		verr.Cause = apperrors.ErrInvalidIntervals
		return nil, verr
	}

	s := model.NewStrategy(name, intervals)
	err = e.store.Update(func(tx Tx) error {
		all, err := tx.ListStrategies()
		if err != nil {
			return err
		}
		for _, other := range all {
			if strings.EqualFold(other.Name, name) {
				return apperrors.NewValidationError("name", name,
					"a strategy with this name already exists", "Pick another name or delete the existing strategy.")
			}
		}
		return tx.PutStrategy(s)
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("strategy created",
		logging.KeyStrategyID, s.ID, "intervals", s.IntervalsText())
	return s, nil
}

// DeleteStrategy removes a strategy. A strategy still used by topics is
// only removed with force; those topics keep their schedule but cannot be
// revised until moved to another strategy.
func (e *Engine) DeleteStrategy(ctx context.Context, id string, force bool) error {
	return e.store.Update(func(tx Tx) error {
		if _, err := loadStrategy(tx, id); err != nil {
			return err
		}
		topics, err := tx.ListTopics()
		if err != nil {
			return err
		}
		inUse := 0
		for _, t := range topics {
			if t.StrategyID == id {
				inUse++
			}
		}
		if inUse > 0 && !force {
			verr := apperrors.NewValidationError("strategy", id,
				"strategy is used by existing topics", "")
			verr.Cause = apperrors.ErrStrategyInUse
			return verr
		}
		if inUse > 0 {
			logging.FromContext(ctx).Warn("deleting strategy in use",
				logging.KeyStrategyID, id, logging.KeyCount, inUse)
		}
		return tx.DeleteStrategy(id)
	})
}

// SeedDefaults stores the default strategies when none exist. It reports
// whether anything was written.
func (e *Engine) SeedDefaults(ctx context.Context) (bool, error) {
	seeded := false
	err := e.store.Update(func(tx Tx) error {
		existing, err := tx.ListStrategies()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		now := e.clock.Now()
		for i, s := range model.DefaultStrategies() {
			s.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
			if err := tx.PutStrategy(s); err != nil {
				return err
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if seeded {
		logging.FromContext(ctx).Debug("default strategies seeded")
	}
	return seeded, nil
}
