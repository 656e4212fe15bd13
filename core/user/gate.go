package user

import (
	"context"

	"github.com/kelasku/kelasku/core"
)

var (
	ErrIDRequired       = core.NewBadRequestError("user ID is required")
	ErrPermissionDenied = core.NewForbiddenError("permission denied")
)

// Gate resolves a requester identifier and enforces the role an operation requires.
// Error precedence is fixed and relied upon by the API contract:
// missing identifier, then unknown identifier, then role mismatch.
type Gate struct {
	repo Repository
}

func NewGate(repo Repository) Gate {
	return Gate{repo: repo}
}

// Require resolves id to a User, failing when it is absent or unknown.
func (g Gate) Require(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrIDRequired
	}
	return g.repo.GetUserByID(ctx, id)
}

// RequireRole resolves id and additionally checks its role.
func (g Gate) RequireRole(ctx context.Context, id, role string) (User, error) {
	usr, err := g.Require(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.Role != role {
		return User{}, ErrPermissionDenied
	}
	return usr, nil
}

// RequireAdmin is shorthand for RequireRole(ctx, id, RoleAdmin).
func (g Gate) RequireAdmin(ctx context.Context, id string) (User, error) {
	return g.RequireRole(ctx, id, RoleAdmin)
}
