package permission

import (
	"context"
	"database/sql"
	"encoding/json"
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

func (s *PGStore) FindLive(ctx context.Context, ownerID, function string) (*Grant, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, owner_id, function, is_permitted, created_at, updated_at, deleted_at
		 from permissions where owner_id=$1 and function=$2 and deleted_at is null`,
		ownerID, function)
	return scanGrant(row)
}

func (s *PGStore) ListByOwner(ctx context.Context, ownerID string) ([]Grant, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, owner_id, function, is_permitted, created_at, updated_at, deleted_at
		 from permissions where owner_id=$1 and deleted_at is null order by function`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Function, &g.IsPermitted, &g.CreatedAt, &g.UpdatedAt, &g.DeletedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, grant *Grant) error {
	if grant.ID == "" {
		grant.ID = ids.New()
	}
	now := time.Now().UTC()
	grant.CreatedAt = now
	grant.UpdatedAt = now
	// The partial unique index on (owner_id, function) where deleted_at is
	// null enforces the one-live-grant invariant; a conflict means the grant
	// already exists.
	res, err := s.db.ExecContext(ctx,
		`insert into permissions(id, owner_id, function, is_permitted, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6)
		 on conflict (owner_id, function) where deleted_at is null do nothing`,
		grant.ID, grant.OwnerID, grant.Function, grant.IsPermitted, grant.CreatedAt, grant.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *PGStore) Update(ctx context.Context, id string, upd GrantUpdate) (*Grant, error) {
	row := s.db.QueryRowContext(ctx,
		`update permissions
		 set function = coalesce($2, function),
		     is_permitted = coalesce($3, is_permitted),
		     updated_at = $4
		 where id=$1 and deleted_at is null
		 returning id, owner_id, function, is_permitted, created_at, updated_at, deleted_at`,
		id, upd.Function, upd.IsPermitted, time.Now().UTC())
	return scanGrant(row)
}

func (s *PGStore) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`update permissions set deleted_at=$2, updated_at=$2 where id=$1 and deleted_at is null`,
		id, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) CreateTemplate(ctx context.Context, tpl *Template) error {
	if tpl.ID == "" {
		tpl.ID = ids.New()
	}
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	functions, err := json.Marshal(tpl.Functions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into permission_templates(id, name, functions, created_at, updated_at)
		 values($1,$2,$3,$4,$5)`,
		tpl.ID, tpl.Name, functions, tpl.CreatedAt, tpl.UpdatedAt)
	return err
}

func (s *PGStore) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, functions, created_at, updated_at from permission_templates order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var (
			tpl       Template
			functions []byte
		)
		if err := rows.Scan(&tpl.ID, &tpl.Name, &functions, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(functions, &tpl.Functions)
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrant(row rowScanner) (*Grant, error) {
	var g Grant
	if err := row.Scan(&g.ID, &g.OwnerID, &g.Function, &g.IsPermitted, &g.CreatedAt, &g.UpdatedAt, &g.DeletedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}
