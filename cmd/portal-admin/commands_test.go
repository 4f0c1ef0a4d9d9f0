package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "7f0c5a8e-3a51-4c1f-9a55-6c1b7bd0e2a1"

func newTestApp(t *testing.T) (*adminApp, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	app := &adminApp{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		open: func(context.Context, *slog.Logger) (*sql.DB, error) {
			return db, nil
		},
	}
	return app, mock
}

func execute(app *adminApp, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(app)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSetRole(t *testing.T) {
	app, mock := newTestApp(t)
	mock.ExpectExec(`UPDATE users SET role = \$1 WHERE id = \$2`).
		WithArgs("admin", userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	out, err := execute(app, "set-role", "--user", userID, "--role", "Admin")
	require.NoError(t, err)
	assert.Equal(t, "user "+userID+" is now admin\n", out)
}

func TestSetRole_UnknownUser(t *testing.T) {
	app, mock := newTestApp(t)
	mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	_, err := execute(app, "set-role", "--user", userID, "--role", "student")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no profile for user")
}

func TestSetRole_RejectsUnknownRole(t *testing.T) {
	app := &adminApp{open: func(context.Context, *slog.Logger) (*sql.DB, error) {
		return nil, errors.New("must not connect")
	}}
	_, err := execute(app, "set-role", "--user", userID, "--role", "warden")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported role "warden"`)

	_, err = execute(app, "set-role", "--role", "admin")
	require.Error(t, err, "--user is required")
}

func TestWhois(t *testing.T) {
	app, mock := newTestApp(t)
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "full_name", "role", "school", "phone_number", "home_county", "age", "gender",
			"parent_name", "parent_contact", "guardian_name", "guardian_contact", "created_at",
		}).AddRow(userID, "amina@hostel.test", "Amina Otieno", "student", "Moi Girls", "", "Kisumu",
			19, "female", "", "", "", "", created))
	mock.ExpectClose()

	out, err := execute(app, "whois", userID)
	require.NoError(t, err)
	assert.Contains(t, out, "Amina Otieno")
	assert.Contains(t, out, "student")
	assert.Contains(t, out, "Age:")
	assert.Contains(t, out, "2024-03-01T08:00:00Z")
}

func TestWhois_RequiresOneArg(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := execute(app, "whois")
	require.Error(t, err)
}

func TestMigrate_ConnectFailure(t *testing.T) {
	app := &adminApp{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		open: func(context.Context, *slog.Logger) (*sql.DB, error) {
			return nil, errors.New("connection refused")
		},
	}
	_, err := execute(app, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect db: connection refused")
}
