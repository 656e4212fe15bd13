package user

import (
	"context"
	"time"

	"github.com/kelasku/kelasku/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrUsernameExists     = core.NewConflictError("a user with this username already exists")
	ErrEmailExists        = core.NewConflictError("a user with this email already exists")
	ErrInvalidCredentials = core.NewBadRequestError("invalid username or password")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		SetUserPassword(ctx context.Context, id string, hash []byte) error
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, username, email string) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, username, password string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		QueryAll(ctx context.Context, requesterID string) ([]User, error)
		SetPassword(ctx context.Context, usr User, password string) error
	}

	service struct {
		repo Repository
		gate Gate
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, gate Gate) *service {
	return &service{repo: repo, gate: gate}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string) error {
	return svc.repo.CheckUsernameUniqueness(ctx, uname, email)
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.Role == "" {
		usr.Role = RoleUser
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) QueryAll(ctx context.Context, requesterID string) ([]User, error) {
	if _, err := svc.gate.RequireAdmin(ctx, requesterID); err != nil {
		return nil, err
	}
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *service) SetPassword(ctx context.Context, usr User, password string) error {
	if err := usr.SetPassword(password); err != nil {
		return err
	}
	return svc.repo.SetUserPassword(ctx, usr.ID, usr.PasswordHash)
}
