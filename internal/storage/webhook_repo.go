package storage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/model"
)

// WebhookRepo stores reminder delivery targets, keyed by name.
type WebhookRepo struct {
	db *DB
}

// NewWebhookRepo creates a new webhook repository.
func NewWebhookRepo(db *DB) *WebhookRepo {
	return &WebhookRepo{db: db}
}

// Create stores a new webhook. Names are unique.
func (r *WebhookRepo) Create(webhook *model.Webhook) error {
	webhook.Key = model.GenerateWebhookKey(webhook.Name)
	if webhook.CreatedAt.IsZero() {
		webhook.CreatedAt = time.Now()
	}
	return r.db.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(webhook.Key)); err == nil {
			return apperrors.NewValidationError("name", webhook.Name, "webhook already exists",
				fmt.Sprintf("Remove it first with 'revise webhook remove %s'.", webhook.Name))
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return writeJSON(txn, webhook)
	})
}

// Get retrieves a webhook by name.
func (r *WebhookRepo) Get(name string) (*model.Webhook, error) {
	webhook := &model.Webhook{}
	if err := r.db.Get(model.GenerateWebhookKey(name), webhook); err != nil {
		if IsErrKeyNotFound(err) {
			return nil, apperrors.NewNotFoundError("webhook", name)
		}
		return nil, err
	}
	return webhook, nil
}

// List retrieves all webhooks ordered by name.
func (r *WebhookRepo) List() ([]*model.Webhook, error) {
	webhooks, err := GetAllByPrefix(r.db, model.PrefixWebhook+":", func() *model.Webhook {
		return &model.Webhook{}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(webhooks, func(i, j int) bool { return webhooks[i].Name < webhooks[j].Name })
	return webhooks, nil
}

// ListEnabled retrieves the webhooks reminders are delivered to.
func (r *WebhookRepo) ListEnabled() ([]*model.Webhook, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	enabled := all[:0]
	for _, wh := range all {
		if wh.IsEnabled() {
			enabled = append(enabled, wh)
		}
	}
	return enabled, nil
}

// modify applies fn to the stored webhook in one transaction, so delivery
// bookkeeping from the daemon never overwrites a concurrent enable/disable.
func (r *WebhookRepo) modify(name string, fn func(*model.Webhook)) error {
	key := model.GenerateWebhookKey(name)
	return r.db.db.Update(func(txn *badger.Txn) error {
		webhook := &model.Webhook{}
		if err := readJSON(txn, key, webhook); err != nil {
			if IsErrKeyNotFound(err) {
				return apperrors.NewNotFoundError("webhook", name)
			}
			return err
		}
		fn(webhook)
		return writeJSON(txn, webhook)
	})
}

// Delete removes a webhook by name.
func (r *WebhookRepo) Delete(name string) error {
	key := []byte(model.GenerateWebhookKey(name))
	return r.db.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return apperrors.NewNotFoundError("webhook", name)
			}
			return err
		}
		return txn.Delete(key)
	})
}

func (r *WebhookRepo) Enable(name string) error {
	return r.modify(name, func(w *model.Webhook) { w.Enabled = true })
}

func (r *WebhookRepo) Disable(name string) error {
	return r.modify(name, func(w *model.Webhook) { w.Enabled = false })
}

// UpdateLastUsed records a delivery attempt and its error, if any.
func (r *WebhookRepo) UpdateLastUsed(name string, lastErr error) error {
	return r.modify(name, func(w *model.Webhook) {
		w.LastUsed = time.Now()
		w.LastError = ""
		if lastErr != nil {
			w.LastError = lastErr.Error()
		}
	})
}

// Exists checks if a webhook with the given name exists.
func (r *WebhookRepo) Exists(name string) (bool, error) {
	return r.db.Exists(model.GenerateWebhookKey(name))
}
