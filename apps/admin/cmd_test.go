package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"

	"github.com/trezcool/kinga/core/user"
	inmemdb "github.com/trezcool/kinga/storage/database/inmem"
	testutil "github.com/trezcool/kinga/tests"
)

const password = "T3leph0ne-b00th"

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	usrRepo = inmemdb.NewUserRepository(db)

	return &commandLine{
		usrSvc: user.NewService(usrRepo, testutil.NewLogger()),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string   // prompted password, if any
	wantErr    error
	wantErrStr string
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"adduser", "-name", "Dan Dan"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Dan Dan", "-email", "dan@school.test"}, wantErr: errHelp},
		{name: "ok default direction role", args: []string{"adduser", "-name", "Dan Dan", "-email", "dan@school.test"}, pwd: password},
		{name: "ok explicit role", args: []string{"adduser", "-name", "Bob Bob", "-email", "bob@school.test", "-role", "staff"}, pwd: password},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if tt.wantErr != nil {
				t.Fatalf("cli.run() error = nil, wantErr %v", tt.wantErr)
			}
		})
	}

	usr, err := usrRepo.GetUserByEmail(context.Background(), "dan@school.test")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed: %v", err)
	}
	if usr.Role != user.RoleDirection {
		t.Errorf("role = %v, want %v", usr.Role, user.RoleDirection)
	}
	if err = usr.CheckPassword(password); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Alice Alice", "alice@school.test", password, user.RoleStudent, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "alice@school.test"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "nobody@school.test"}, pwd: "Wh1stler-mounta1n!", wantErr: user.ErrNotFound},
		{name: "ok", args: []string{"resetpassword", "-email", "alice@school.test"}, pwd: "Wh1stler-mounta1n!"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed: %v", err)
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

func Test_commandLine_banUnban(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Alice Alice", "alice@school.test", password, user.RoleStudent, true)

	tests := []cliTest{
		{name: "ban: no args", args: []string{"ban"}, wantErr: errHelp},
		{name: "ban: user not found", args: []string{"ban", "-email", "nobody@school.test"}, wantErr: user.ErrNotFound},
		{name: "ban", args: []string{"ban", "-email", "alice@school.test"}},
		{name: "unban", args: []string{"unban", "-email", "alice@school.test"}},
	}
	wantActive := map[string]bool{"ban": false, "unban": true}

	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed: %v", err)
				}
				if refreshedUsr.Active() != wantActive[tt.name] {
					t.Errorf("Active() = %v, want %v", refreshedUsr.Active(), wantActive[tt.name])
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)
	cli.db = new(sql.DB) // gooseRunFunc is mocked and never touches it

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				if tt.wantErr != nil || tt.wantErrStr != "" {
					t.Fatalf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
				}
				return
			}
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			} else if err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error = %q, wantErrStr %q", err, tt.wantErrStr)
			}
		})
	}

	t.Run("no sql store", func(t *testing.T) {
		cli.db = nil
		if err := cli.run([]string{"admin", "migrate", "up"}); err != errMigrateNeedsSQL {
			t.Errorf("cli.run() error = %v, want %v", err, errMigrateNeedsSQL)
		}
	})
}
