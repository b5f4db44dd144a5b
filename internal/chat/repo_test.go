package chat

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestCreateModelConfig_RejectsDuplicate(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	m1 := &ModelConfig{Name: "GPT Test", Model: "gpt-test", SupportsHistory: true}
	if err := repo.CreateModelConfig(ctx, m1); err != nil {
		t.Fatalf("create model: %v", err)
	}

	dup := &ModelConfig{Name: "GPT Test Again", Model: "gpt-test"}
	if err := repo.CreateModelConfig(ctx, dup); !errors.Is(err, ErrModelExists) {
		t.Fatalf("expected ErrModelExists, got %v", err)
	}

	ms, err := repo.ListModelConfigs(ctx)
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if len(ms) != 1 {
		t.Fatalf("duplicate inserted: %d rows", len(ms))
	}
}

func TestToggleModelActive(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	m1 := &ModelConfig{Name: "One", Model: "model-one", Active: true}
	m2 := &ModelConfig{Name: "Two", Model: "model-two"}
	if err := repo.CreateModelConfig(ctx, m1); err != nil {
		t.Fatalf("create m1: %v", err)
	}
	if err := repo.CreateModelConfig(ctx, m2); err != nil {
		t.Fatalf("create m2: %v", err)
	}

	toggled, err := repo.ToggleModelActive(ctx, m2.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.Active || toggled.ID != m2.ID {
		t.Fatalf("unexpected toggled record: %+v", toggled)
	}

	var active []ModelConfig
	if err := db.Where("active = ?", true).Find(&active).Error; err != nil {
		t.Fatalf("query active models: %v", err)
	}
	if len(active) != 1 || active[0].ID != m2.ID {
		t.Fatalf("expected only m2 active, got %+v", active)
	}

	// toggling a missing id reports not-found and mutates nothing
	if _, err := repo.ToggleModelActive(ctx, 9999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := db.Where("active = ?", true).Find(&active).Error; err != nil {
		t.Fatalf("query active models: %v", err)
	}
	if len(active) != 1 || active[0].ID != m2.ID {
		t.Fatalf("registry state changed after failed toggle: %+v", active)
	}
}

func TestDeleteSession_CascadesToMessages(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	keep := &Session{UserID: 1, Name: "keep", Active: false}
	gone := &Session{UserID: 1, Name: "gone", Active: true}
	for _, s := range []*Session{keep, gone} {
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	for _, sid := range []uint64{keep.ID, gone.ID} {
		err := repo.SaveTurn(ctx,
			&Message{SessionID: sid, UserID: 1, Model: "m", Role: "user", Content: "q"},
			&Message{SessionID: sid, UserID: 1, Model: "m", Role: "assistant", Content: "a"},
		)
		if err != nil {
			t.Fatalf("save turn: %v", err)
		}
	}

	if err := repo.DeleteSession(ctx, gone.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	var count int64
	if err := db.Model(&Message{}).Where("session_id = ?", gone.ID).Count(&count).Error; err != nil {
		t.Fatalf("count deleted messages: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cascade delete, %d messages left", count)
	}
	if err := db.Model(&Message{}).Where("session_id = ?", keep.ID).Count(&count).Error; err != nil {
		t.Fatalf("count kept messages: %v", err)
	}
	if count != 2 {
		t.Fatalf("unrelated messages deleted, %d left", count)
	}

	// deleting an absent session reports not-found and mutates nothing
	if err := repo.DeleteSession(ctx, gone.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListSessions_NewestFirst(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.CreateSession(ctx, &Session{UserID: 2, Name: "s"}); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	ss, err := repo.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(ss) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(ss))
	}
	for i := 1; i < len(ss); i++ {
		if ss[i-1].ID < ss[i].ID {
			t.Fatalf("sessions not newest-first: %+v", ss)
		}
	}
}

func TestRenameSessionIfDefault(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	s := &Session{UserID: 6, Name: DefaultSessionName, Active: true}
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := repo.RenameSessionIfDefault(ctx, s.ID, "what is go"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	got, err := repo.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Name != "what is go" {
		t.Fatalf("rename did not apply: %q", got.Name)
	}

	// a second rename must not clobber the user-visible title
	if err := repo.RenameSessionIfDefault(ctx, s.ID, "other"); err != nil {
		t.Fatalf("second rename: %v", err)
	}
	got, err = repo.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Name != "what is go" {
		t.Fatalf("non-default name overwritten: %q", got.Name)
	}
}
