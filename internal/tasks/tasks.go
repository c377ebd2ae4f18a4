// Package tasks exposes the task listings the authorization pipeline guards.
// Task workflow rules live with the project-management surface, outside this
// core; this package only reads and creates assignment rows.
package tasks

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("tasks: not found")

// Task statuses.
const (
	StatusOpen = "open"
	StatusDone = "done"
)

// Task is a work item assigned to a user.
type Task struct {
	ID        string
	OwnerID   string
	Title     string
	Status    string
	DueAt     *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists tasks.
type Store interface {
	Create(ctx context.Context, t *Task) error
	ListByOwner(ctx context.Context, ownerID string) ([]Task, error)
}
