package storage

import (
	"encoding/json"
	"errors"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/revise/internal/model"
)

// ErrKeyNotFound is returned by the DB helpers when a key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// IsErrKeyNotFound reports whether err means a missing key.
func IsErrKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound) || errors.Is(err, badger.ErrKeyNotFound)
}

// Records are stored as JSON under their model key. The helpers below work
// on a transaction so Store can compose them; the DB methods further down
// wrap each in a transaction of its own for the repos.

func readJSON(txn *badger.Txn, key string, v model.Model) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrKeyNotFound
	}
	if err != nil {
		return err
	}
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, v) }); err != nil {
		return err
	}
	v.SetKey(key)
	return nil
}

func writeJSON(txn *badger.Txn, v model.Model) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(v.GetKey()), data)
}

// scanJSON decodes every record under prefix in key order. The result is
// never nil.
func scanJSON[T model.Model](txn *badger.Txn, prefix string, newFunc func() T) ([]T, error) {
	results := []T{}
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchSize = 100
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key := string(item.KeyCopy(nil))
		v := newFunc()
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, v) }); err != nil {
			return nil, &decodeError{key: key, err: err}
		}
		v.SetKey(key)
		results = append(results, v)
	}
	return results, nil
}

// scanKeys lists the keys under prefix without loading values.
func scanKeys(txn *badger.Txn, prefix string) []string {
	var keys []string
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	return keys
}

type decodeError struct {
	key string
	err error
}

func (e *decodeError) Error() string { return "decode " + e.key + ": " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// Get loads the record at key into v.
func (d *DB) Get(key string, v model.Model) error {
	return d.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, key, v)
	})
}

// Set stores v under its key.
func (d *DB) Set(v model.Model) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return writeJSON(txn, v)
	})
}

// GetBytes loads a raw value, used for small bookkeeping entries such as
// the last digest day.
func (d *DB) GetBytes(key string) ([]byte, error) {
	var result []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	return result, err
}

// SetBytes stores a raw value.
func (d *DB) SetBytes(key string, data []byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (d *DB) Delete(key string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Exists reports whether key is present.
func (d *DB) Exists(key string) (bool, error) {
	err := d.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ListByPrefix returns every key under prefix.
func (d *DB) ListByPrefix(prefix string) ([]string, error) {
	var keys []string
	err := d.db.View(func(txn *badger.Txn) error {
		keys = scanKeys(txn, prefix)
		return nil
	})
	return keys, err
}

// GetAllByPrefix loads every record under prefix.
func GetAllByPrefix[T model.Model](d *DB, prefix string, newFunc func() T) ([]T, error) {
	var results []T
	err := d.db.View(func(txn *badger.Txn) error {
		var err error
		results, err = scanJSON(txn, prefix, newFunc)
		return err
	})
	return results, err
}
