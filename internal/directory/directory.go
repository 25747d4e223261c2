// Package directory exposes the read-only user directory the dispatcher uses
// to resolve assignee ids to deliverable addresses. The directory itself
// (identity provider) is an external system.
package directory

import (
	"context"
	"sync"
)

// User is a directory entry.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Directory lists the known users.
type Directory interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// StaticDirectory serves a fixed user list. It backs tests and single-process
// deployments where the user set is provisioned out of band.
type StaticDirectory struct {
	mu    sync.RWMutex
	users []User
}

// NewStaticDirectory creates a directory over the given users.
func NewStaticDirectory(users ...User) *StaticDirectory {
	return &StaticDirectory{users: append([]User(nil), users...)}
}

func (d *StaticDirectory) ListUsers(ctx context.Context) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]User(nil), d.users...), nil
}

// AddUser registers another user.
func (d *StaticDirectory) AddUser(user User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = append(d.users, user)
}
