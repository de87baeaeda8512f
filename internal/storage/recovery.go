package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/model"
)

// RecoveryStatus represents the result of a database health check.
type RecoveryStatus struct {
	Healthy     bool      `json:"healthy"`
	Corrupted   bool      `json:"corrupted"`
	LastCheck   time.Time `json:"last_check"`
	ErrorCount  int       `json:"error_count"`
	Errors      []string  `json:"errors,omitempty"`
	Warnings    []string  `json:"warnings,omitempty"`
	Recoverable bool      `json:"recoverable"`
	BackupPath  string    `json:"backup_path,omitempty"`
}

func (s *RecoveryStatus) fail(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
	s.ErrorCount++
}

func (s *RecoveryStatus) warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// CheckDatabaseIntegrity reads every record and cross-checks the revision
// indexes. Undecodable values and index entries without a record are
// errors; topics pointing at a missing strategy and topics with more than
// one open revision are warnings.
func CheckDatabaseIntegrity(db *DB) *RecoveryStatus {
	status := &RecoveryStatus{
		LastCheck: time.Now(),
		Healthy:   true,
	}

	if db == nil || db.db == nil {
		status.Healthy = false
		status.Corrupted = true
		status.fail("database not initialized")
		return status
	}

	strategies := map[string]bool{}
	revisions := map[string]*model.RevisionInstance{}
	var topics []*model.Topic
	var indexKeys []string

	err := db.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))

			if strings.HasPrefix(key, "idx:") {
				indexKeys = append(indexKeys, key)
				continue
			}

			err := item.Value(func(val []byte) error {
				prefix, _, _ := strings.Cut(key, ":")
				switch prefix {
				case model.PrefixStrategy:
					var s model.Strategy
					if err := json.Unmarshal(val, &s); err != nil {
						return err
					}
					strategies[s.ID] = true
				case model.PrefixTopic:
					var t model.Topic
					if err := json.Unmarshal(val, &t); err != nil {
						return err
					}
					topics = append(topics, &t)
				case model.PrefixRevision:
					var r model.RevisionInstance
					if err := json.Unmarshal(val, &r); err != nil {
						return err
					}
					revisions[r.ID] = &r
				default:
					if !json.Valid(val) {
						return fmt.Errorf("invalid JSON")
					}
				}
				return nil
			})
			if err != nil {
				status.fail("corrupted value at key %s: %v", key, err)
			}
		}
		return nil
	})
	if err != nil {
		status.fail("iteration error: %v", err)
	}

	for _, key := range indexKeys {
		id := key[strings.LastIndex(key, ":")+1:]
		if _, ok := revisions[id]; !ok {
			status.fail("dangling index entry %s", key)
		}
	}

	open := map[string]int{}
	for _, r := range revisions {
		if r.IsOpen() {
			open[r.TopicID]++
		}
	}
	for _, t := range topics {
		if !strategies[t.StrategyID] {
			status.warn("topic %q uses missing strategy %s", t.Name, t.StrategyID)
		}
		if open[t.ID] > 1 {
			status.warn("topic %q has %d open revisions", t.Name, open[t.ID])
		}
	}

	if status.ErrorCount > 0 {
		status.Healthy = false
		status.Corrupted = true
		status.Recoverable = status.ErrorCount < 10
	}

	return status
}

// CreateBackup creates a backup of the database directory.
// Returns the path to the backup or an error.
func CreateBackup(dbPath string) (string, error) {
	if dbPath == "" {
		return "", fmt.Errorf("database path is empty")
	}

	backupDir := filepath.Join(filepath.Dir(dbPath), "backups")
	if err := os.MkdirAll(backupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	backupPath := filepath.Join(backupDir, fmt.Sprintf("db-backup-%s", timestamp))

	if err := copyDir(dbPath, backupPath); err != nil {
		return "", fmt.Errorf("failed to copy database: %w", err)
	}

	logging.Info("database backup created", logging.KeyOperation, "backup", "path", backupPath)
	return backupPath, nil
}

func copyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			err = copyDir(srcPath, dstPath)
		} else {
			err = copyFile(srcPath, dstPath)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, srcInfo.Mode())
}

// AttemptRecovery backs up the database, reopens it keeping only the latest
// versions and runs value log GC.
func AttemptRecovery(dbPath string) error {
	backupPath, err := CreateBackup(dbPath)
	if err != nil {
		logging.Warn("failed to create backup before recovery", logging.KeyError, err)
	}

	opts := badger.DefaultOptions(dbPath).
		WithLoggingLevel(badger.ERROR).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return errors.NewSystemError("failed to open database for recovery", err)
	}
	defer db.Close()

	for db.RunValueLogGC(0.5) == nil {
	}

	logging.Info("database recovery attempted",
		"backup_path", backupPath,
		logging.KeyStatus, "completed")

	return nil
}

// IsDatabaseCorrupted checks if the given error indicates database corruption.
func IsDatabaseCorrupted(err error) bool {
	if err == nil {
		return false
	}

	if stderrors.Is(err, errors.ErrDatabaseCorrupted) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"checksum mismatch", "corrupt", "unexpected eof", "bad magic", "truncated"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
