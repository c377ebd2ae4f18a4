package session

import (
	"context"
	"database/sql"
	"time"

	"rh360.org/internal/ids"
)

var _ Ledger = (*PGLedger)(nil)

// PGLedger implements Ledger on PostgreSQL.
type PGLedger struct {
	db *sql.DB
}

func NewPGLedger(db *sql.DB) *PGLedger {
	return &PGLedger{db: db}
}

func (l *PGLedger) Insert(ctx context.Context, rec *TokenRecord) error {
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	// on conflict do nothing keeps the uniqueness check and the insert in one
	// statement; zero rows affected means the token string already exists.
	res, err := l.db.ExecContext(ctx,
		`insert into tokens(id, token, owner_id, kind, active, issued_at, expires_at)
		 values($1,$2,$3,$4,$5,$6,$7)
		 on conflict (token) do nothing`,
		rec.ID, rec.Token, rec.OwnerID, rec.Kind, rec.Active, rec.IssuedAt, rec.ExpiresAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenExists
	}
	return nil
}

func (l *PGLedger) FindActiveByToken(ctx context.Context, token string) (*TokenRecord, error) {
	row := l.db.QueryRowContext(ctx,
		`select id, token, owner_id, kind, active, issued_at, expires_at
		 from tokens where token=$1 and active = true`, token)
	var rec TokenRecord
	if err := row.Scan(&rec.ID, &rec.Token, &rec.OwnerID, &rec.Kind, &rec.Active, &rec.IssuedAt, &rec.ExpiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (l *PGLedger) Deactivate(ctx context.Context, token string) error {
	_, err := l.db.ExecContext(ctx,
		`update tokens set active = false where token=$1`, token)
	return err
}

func (l *PGLedger) DeactivateSessionsBefore(ctx context.Context, ownerID string, issuedBefore time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`update tokens set active = false
		 where owner_id=$1 and kind=$2 and active = true and issued_at < $3`,
		ownerID, KindSession, issuedBefore)
	return err
}

func (l *PGLedger) DeactivateAllForOwner(ctx context.Context, ownerID string) error {
	_, err := l.db.ExecContext(ctx,
		`update tokens set active = false where owner_id=$1 and active = true`, ownerID)
	return err
}

func (l *PGLedger) PurgeExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`delete from tokens where expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
