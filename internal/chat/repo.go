package chat

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrModelExists = errors.New("model already registered")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateSession(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) GetSession(ctx context.Context, id uint64) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns a user's sessions newest-first.
func (r *Repo) ListSessions(ctx context.Context, userID uint64) ([]Session, error) {
	var ss []Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&ss).Error; err != nil {
		return nil, err
	}
	return ss, nil
}

// SwitchSession deactivates every active session of the user and inserts a
// fresh active one, all inside a single transaction.
func (r *Repo) SwitchSession(ctx context.Context, userID uint64, name string) (*Session, error) {
	s := &Session{
		UserID: userID,
		Name:   name,
		Active: true,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Session{}).
			Where("user_id = ? AND active = ?", userID, true).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Create(s).Error
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DeleteSession removes a session and every message attached to it. The
// message delete is explicit so the cascade holds on drivers where the FK
// constraint is not enforced.
func (r *Repo) DeleteSession(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s Session
		if err := tx.First(&s, id).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&s).Error
	})
}

// SaveTurn persists a user/assistant message pair atomically.
func (r *Repo) SaveTurn(ctx context.Context, userMsg, assistantMsg *Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		return tx.Create(assistantMsg).Error
	})
}

// ListMessages returns a session's messages in DESC id order (newest -> oldest).
func (r *Repo) ListMessages(ctx context.Context, sessionID uint64, limit int, beforeID uint64) ([]Message, error) {
	q := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit)

	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var msgs []Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// FirstUserMessage returns the oldest user-role message of a session.
func (r *Repo) FirstUserMessage(ctx context.Context, sessionID uint64) (*Message, error) {
	var m Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND role = ?", sessionID, "user").
		Order("id ASC").
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// RenameSessionIfDefault sets a session name only when it still carries the
// placeholder the orchestrator assigned at creation.
func (r *Repo) RenameSessionIfDefault(ctx context.Context, sessionID uint64, name string) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("id = ? AND name = ?", sessionID, DefaultSessionName).
		Update("name", name).Error
}

func (r *Repo) CreateModelConfig(ctx context.Context, m *ModelConfig) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := tx.Model(&ModelConfig{}).
			Where("model = ?", m.Model).
			Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			return ErrModelExists
		}
		return tx.Create(m).Error
	})
}

// ListModelConfigs returns all registered models in insertion order.
func (r *Repo) ListModelConfigs(ctx context.Context) ([]ModelConfig, error) {
	var ms []ModelConfig
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return ms, nil
}

// ToggleModelActive deactivates every model config and activates the target,
// in one transaction so at most one row ever commits active.
func (r *Repo) ToggleModelActive(ctx context.Context, id uint64) (*ModelConfig, error) {
	var m ModelConfig
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&ModelConfig{}).
			Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return err
		}
		m.Active = true
		return tx.Model(&m).Update("active", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}
