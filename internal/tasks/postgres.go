package tasks

import (
	"context"
	"database/sql"
	"time"

	"rh360.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`insert into tasks(id, owner_id, title, status, due_at, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.OwnerID, t.Title, t.Status, t.DueAt, t.CreatedAt, t.UpdatedAt)
	return err
}

func (s *PGStore) ListByOwner(ctx context.Context, ownerID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, owner_id, title, status, due_at, created_at, updated_at
		 from tasks where owner_id=$1 order by created_at desc`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Status, &t.DueAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
