package storage

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/manav03panchal/revise/internal/model"
)

// AlarmRepo provides operations for Alarm entities.
type AlarmRepo struct {
	db *DB
}

// NewAlarmRepo creates a new alarm repository.
func NewAlarmRepo(db *DB) *AlarmRepo {
	return &AlarmRepo{db: db}
}

// Create stores a new alarm, assigning an id if needed.
func (r *AlarmRepo) Create(alarm *model.Alarm) error {
	if alarm.ID == "" {
		alarm.ID = uuid.New().String()
	}
	if alarm.CreatedAt.IsZero() {
		alarm.CreatedAt = time.Now()
	}
	return r.db.Set(alarm)
}

// Get retrieves an alarm by id.
func (r *AlarmRepo) Get(id string) (*model.Alarm, error) {
	alarm := &model.Alarm{}
	if err := r.db.Get(model.PrefixAlarm+":"+id, alarm); err != nil {
		return nil, err
	}
	return alarm, nil
}

// List retrieves all alarms ordered by fire time.
func (r *AlarmRepo) List() ([]*model.Alarm, error) {
	alarms, err := GetAllByPrefix(r.db, model.PrefixAlarm+":", func() *model.Alarm {
		return &model.Alarm{}
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(alarms, func(i, j int) bool {
		return alarms[i].FireAt.Before(alarms[j].FireAt)
	})
	return alarms, nil
}

// ListPending retrieves alarms that have not fired.
func (r *AlarmRepo) ListPending() ([]*model.Alarm, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	var pending []*model.Alarm
	for _, a := range all {
		if a.IsPending() {
			pending = append(pending, a)
		}
	}
	return pending, nil
}

// ListDue retrieves pending alarms whose fire time is at or before now.
func (r *AlarmRepo) ListDue(now time.Time) ([]*model.Alarm, error) {
	pending, err := r.ListPending()
	if err != nil {
		return nil, err
	}

	var due []*model.Alarm
	for _, a := range pending {
		if a.IsDue(now) {
			due = append(due, a)
		}
	}
	return due, nil
}

// ListByTopic retrieves all alarms for a topic.
func (r *AlarmRepo) ListByTopic(topicID string) ([]*model.Alarm, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	var result []*model.Alarm
	for _, a := range all {
		if a.TopicID == topicID {
			result = append(result, a)
		}
	}
	return result, nil
}

// MarkFired records that an alarm was delivered.
func (r *AlarmRepo) MarkFired(id string, at time.Time) error {
	alarm, err := r.Get(id)
	if err != nil {
		return err
	}
	alarm.Fired = true
	alarm.FiredAt = at
	return r.db.Set(alarm)
}

// Delete removes an alarm by id. Deleting a missing alarm is not an error.
func (r *AlarmRepo) Delete(id string) error {
	return r.db.Delete(model.PrefixAlarm + ":" + id)
}

// PruneFired removes fired alarms older than the cutoff and returns how
// many were removed.
func (r *AlarmRepo) PruneFired(before time.Time) (int, error) {
	all, err := r.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range all {
		if a.Fired && a.FiredAt.Before(before) {
			if err := r.Delete(a.ID); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
