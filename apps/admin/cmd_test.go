package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/kelasku/kelasku/core/user"
	inmemdb "github.com/kelasku/kelasku/storage/database/inmem"
	testutil "github.com/kelasku/kelasku/tests"
)

var usrRepo user.Repository

func setup() *commandLine {
	db := inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)
	return &commandLine{usrRepo: usrRepo}
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
	extra   interface{}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup()

	testutil.CreateUser(t, usrRepo, "taken", "taken@test.cd", "", user.RoleUser)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing email", args: []string{"adduser", "-username", "chief"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"adduser", "-username", "chief", "-email", "chief@test.cd"}, wantErr: errHelp},
		{name: "duplicate email", args: []string{"adduser", "-username", "chief", "-email", "taken@test.cd"}, extra: extra{pwd: "lol"}, wantErr: user.ErrEmailExists},
		{name: "duplicate username", args: []string{"adduser", "-username", "taken", "-email", "chief@test.cd"}, extra: extra{pwd: "lol"}, wantErr: user.ErrUsernameExists},
		{name: "ok", args: []string{"adduser", "-username", "chief", "-email", "chief@test.cd"}, extra: extra{pwd: "secret1"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != tt.wantErr {
				t.Fatalf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				usr, err := usrRepo.GetUserByUsername(context.Background(), "chief")
				if err != nil {
					t.Fatalf("GetUserByUsername(): %v", err)
				}
				if usr.Role != user.RoleAdmin {
					t.Errorf("role = %q; want %q", usr.Role, user.RoleAdmin)
				}
				if usr.CheckPassword("secret1") != nil {
					t.Error("password not set")
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup()

	usr := testutil.CreateUser(t, usrRepo, "awe", "awe@test.cd", "mdr", user.RoleUser)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "ok", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID(): %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
