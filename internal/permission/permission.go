// Package permission stores per-user capability grants: a boolean flag keyed
// by a function code such as VIEW_TASKS. The authorization gate reads these;
// administrative endpoints write them.
package permission

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("permission: not found")
	ErrAlreadyExists = errors.New("permission: grant already exists for this user and function")
)

// Grant is a per-user permission flag. Soft-deleted rows (DeletedAt set) are
// dead: at most one live grant exists per (owner, function) pair.
type Grant struct {
	ID          string
	OwnerID     string
	Function    string
	IsPermitted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// GrantUpdate carries optional field changes for an existing grant.
type GrantUpdate struct {
	Function    *string
	IsPermitted *bool
}

// Template is a named bundle of function codes used to seed a new user's
// grants from the admin UI.
type Template struct {
	ID        string
	Name      string
	Functions []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store describes grant persistence. FindLive must exclude soft-deleted rows
// in the query itself, not by post-filtering, so a concurrent delete cannot
// slip a dead grant past the gate.
type Store interface {
	FindLive(ctx context.Context, ownerID, function string) (*Grant, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Grant, error)
	Create(ctx context.Context, grant *Grant) error
	Update(ctx context.Context, id string, upd GrantUpdate) (*Grant, error)
	SoftDelete(ctx context.Context, id string) error

	CreateTemplate(ctx context.Context, tpl *Template) error
	ListTemplates(ctx context.Context) ([]Template, error)
}
