package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kelasku/kelasku/core"
	"github.com/kelasku/kelasku/core/assignment"
	"github.com/kelasku/kelasku/core/user"
)

func NewConfig() *core.Config {
	return &core.Config{
		AppName:  "Kelasku",
		Env:      "TEST",
		Debug:    true,
		TestMode: true,
		Upload: core.UploadConfig{
			MaxFiles:    5,
			MaxFileSize: 10 << 20,
			TempDir:     os.TempDir(),
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd, role string,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateAssignment(
	t *testing.T,
	repo assignment.Repository,
	title, createdBy string,
	deadline time.Time,
	assignedTo ...string,
) assignment.Assignment {
	t.Helper()

	a := assignment.Assignment{
		Title:      title,
		Subject:    "Mathematics",
		Day:        "Monday",
		StartTime:  "08:00",
		EndTime:    "09:30",
		Deadline:   deadline.UTC(),
		CreatedBy:  createdBy,
		AssignedTo: assignedTo,
		CreatedAt:  time.Now().UTC(),
	}
	a, err := repo.CreateAssignment(context.Background(), a)
	if err != nil {
		t.Fatalf("CreateAssignment(): %v", err)
	}
	return a
}
