package storage

import (
	"errors"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/engine"
	"github.com/manav03panchal/revise/internal/model"
)

// Secondary index prefixes. Index entries carry no value; the revision id
// is the last key segment.
const (
	indexRevisionByTopic = "idx:revision:topic:"
	indexRevisionByDate  = "idx:revision:date:"
)

// Store is the transactional engine.Store over a badger database.
type Store struct {
	db *DB
}

// NewStore creates a Store over db.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

var _ engine.Store = (*Store)(nil)

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(engine.Tx) error) error {
	return s.db.db.View(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn})
	})
}

// Update runs fn in a read-write transaction and commits when fn returns
// nil. Errors returned by fn pass through unchanged; commit failures,
// including badger.ErrConflict, come back as a PersistenceError.
func (s *Store) Update(fn func(engine.Tx) error) error {
	txn := s.db.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(&tx{txn: txn}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return apperrors.NewPersistenceError("commit", err)
	}
	return nil
}

// tx implements engine.Tx over a badger transaction.
type tx struct {
	txn *badger.Txn
}

func (t *tx) get(key string, v model.Model) error {
	err := readJSON(t.txn, key, v)
	if errors.Is(err, ErrKeyNotFound) {
		return engine.ErrNoRecord
	}
	if err != nil {
		return apperrors.NewPersistenceError("read "+key, err)
	}
	return nil
}

func (t *tx) put(v model.Model) error {
	if err := writeJSON(t.txn, v); err != nil {
		return apperrors.NewPersistenceError("write "+v.GetKey(), err)
	}
	return nil
}

func (t *tx) setIndex(key string) error {
	if err := t.txn.Set([]byte(key), nil); err != nil {
		return apperrors.NewPersistenceError("write index", err)
	}
	return nil
}

func (t *tx) delete(key string) error {
	if err := t.txn.Delete([]byte(key)); err != nil {
		return apperrors.NewPersistenceError("delete "+key, err)
	}
	return nil
}

func scan[T model.Model](t *tx, prefix string, newFunc func() T) ([]T, error) {
	results, err := scanJSON(t.txn, prefix, newFunc)
	if err != nil {
		return nil, apperrors.NewPersistenceError("scan "+prefix, err)
	}
	return results, nil
}

// indexIDs returns the trailing id segment of every index key under prefix.
func (t *tx) indexIDs(prefix string) []string {
	keys := scanKeys(t.txn, prefix)
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, key[strings.LastIndex(key, ":")+1:])
	}
	return ids
}

func (t *tx) revisionsByIDs(ids []string) ([]*model.RevisionInstance, error) {
	out := make([]*model.RevisionInstance, 0, len(ids))
	for _, id := range ids {
		r, err := t.GetRevision(id)
		if errors.Is(err, engine.ErrNoRecord) {
			// Dangling index entry; the integrity check reports these.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Strategies

func (t *tx) GetStrategy(id string) (*model.Strategy, error) {
	s := &model.Strategy{}
	if err := t.get(model.PrefixStrategy+":"+id, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (t *tx) ListStrategies() ([]*model.Strategy, error) {
	return scan(t, model.PrefixStrategy+":", func() *model.Strategy { return &model.Strategy{} })
}

func (t *tx) PutStrategy(s *model.Strategy) error {
	return t.put(s)
}

func (t *tx) DeleteStrategy(id string) error {
	return t.delete(model.PrefixStrategy + ":" + id)
}

// Topics

func (t *tx) GetTopic(id string) (*model.Topic, error) {
	topic := &model.Topic{}
	if err := t.get(model.PrefixTopic+":"+id, topic); err != nil {
		return nil, err
	}
	return topic, nil
}

func (t *tx) ListTopics() ([]*model.Topic, error) {
	return scan(t, model.PrefixTopic+":", func() *model.Topic { return &model.Topic{} })
}

func (t *tx) PutTopic(topic *model.Topic) error {
	return t.put(topic)
}

func (t *tx) DeleteTopic(id string) error {
	return t.delete(model.PrefixTopic + ":" + id)
}

// Revision instances

func (t *tx) GetRevision(id string) (*model.RevisionInstance, error) {
	r := &model.RevisionInstance{}
	if err := t.get(model.PrefixRevision+":"+id, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (t *tx) PutRevision(r *model.RevisionInstance) error {
	if err := t.put(r); err != nil {
		return err
	}
	if err := t.setIndex(topicIndexKey(r.TopicID, r.ID)); err != nil {
		return err
	}
	return t.setIndex(dateIndexKey(r.ScheduledDate, r.ID))
}

func (t *tx) DeleteRevision(id string) error {
	r, err := t.GetRevision(id)
	if err != nil {
		return err
	}
	if err := t.delete(topicIndexKey(r.TopicID, r.ID)); err != nil {
		return err
	}
	if err := t.delete(dateIndexKey(r.ScheduledDate, r.ID)); err != nil {
		return err
	}
	return t.delete(r.GetKey())
}

func (t *tx) RevisionsByTopic(topicID string) ([]*model.RevisionInstance, error) {
	out, err := t.revisionsByIDs(t.indexIDs(indexRevisionByTopic + topicID + ":"))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledDate < out[j].ScheduledDate
	})
	return out, nil
}

func (t *tx) RevisionsByDate(day string) ([]*model.RevisionInstance, error) {
	return t.revisionsByIDs(t.indexIDs(indexRevisionByDate + day + ":"))
}

func (t *tx) RevisionsBetween(from, to string) ([]*model.RevisionInstance, error) {
	var ids []string
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(indexRevisionByDate)
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek([]byte(indexRevisionByDate + from)); it.Valid(); it.Next() {
		key := string(it.Item().Key())
		rest := strings.TrimPrefix(key, indexRevisionByDate)
		day, id, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		if day > to {
			break
		}
		ids = append(ids, id)
	}
	return t.revisionsByIDs(ids)
}

func topicIndexKey(topicID, revisionID string) string {
	return indexRevisionByTopic + topicID + ":" + revisionID
}

func dateIndexKey(day, revisionID string) string {
	return indexRevisionByDate + day + ":" + revisionID
}
