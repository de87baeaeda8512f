// Package sheet moves schedules in and out of the database: full JSON
// backups, spreadsheet exports and topic imports from xlsx or csv files.
package sheet

import (
	"encoding/json"
	"io"
	"time"

	"github.com/manav03panchal/revise/internal/engine"
	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/model"
)

// BackupVersion is written into every backup and checked on restore.
const BackupVersion = "1"

// Backup is the JSON document written by "revise export".
type Backup struct {
	Version    string                    `json:"version"`
	ExportedAt time.Time                 `json:"exported_at"`
	Strategies []*model.Strategy         `json:"strategies"`
	Topics     []*model.Topic            `json:"topics"`
	Revisions  []*model.RevisionInstance `json:"revisions"`
}

// NewBackup wraps a snapshot taken at now.
func NewBackup(snap *engine.Snapshot, now time.Time) *Backup {
	return &Backup{
		Version:    BackupVersion,
		ExportedAt: now,
		Strategies: snap.Strategies,
		Topics:     snap.Topics,
		Revisions:  snap.Revisions,
	}
}

// Snapshot returns the backup contents for engine.Restore.
func (b *Backup) Snapshot() *engine.Snapshot {
	return &engine.Snapshot{
		Strategies: b.Strategies,
		Topics:     b.Topics,
		Revisions:  b.Revisions,
	}
}

// MarshalBackup renders b as indented JSON.
func MarshalBackup(b *Backup) ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteBackup writes b to w as indented JSON.
func WriteBackup(w io.Writer, b *Backup) error {
	data, err := MarshalBackup(b)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadBackup decodes a backup and checks its version.
func ReadBackup(r io.Reader) (*Backup, error) {
	var b Backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, apperrors.NewValidationError("backup", "",
			"invalid backup file: "+err.Error(),
			"Create one with 'revise export --backup -o backup.json'")
	}
	if b.Version != BackupVersion {
		return nil, apperrors.NewValidationError("version", b.Version,
			"unsupported backup version", "")
	}
	return &b, nil
}
