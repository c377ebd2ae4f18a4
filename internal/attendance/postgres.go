package attendance

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

func (s *PGStore) Create(ctx context.Context, p *Punch) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.PunchedAt.IsZero() {
		p.PunchedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into time_clocks(id, owner_id, source, note, punched_at)
		 values($1,$2,$3,$4,$5)`,
		p.ID, p.OwnerID, p.Source, p.Note, p.PunchedAt)
	return err
}

func (s *PGStore) ListByOwner(ctx context.Context, ownerID string, since time.Time) ([]Punch, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, owner_id, source, note, punched_at
		 from time_clocks where owner_id=$1 and punched_at >= $2 order by punched_at desc`,
		ownerID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var punches []Punch
	for rows.Next() {
		var p Punch
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Source, &p.Note, &p.PunchedAt); err != nil {
			return nil, err
		}
		punches = append(punches, p)
	}
	return punches, rows.Err()
}
