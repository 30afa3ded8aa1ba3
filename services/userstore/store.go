// Package userstore persists enrolled bot users and their portal
// credentials.
package userstore

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when the requested user is not enrolled.
var ErrNotFound = errors.New("user not found")

// ScheduleMode says which periodic digest a user receives.
type ScheduleMode string

const (
	ScheduleNone   ScheduleMode = "none"
	ScheduleDaily  ScheduleMode = "daily"
	ScheduleWeekly ScheduleMode = "weekly"
)

// User is one enrolled chat. ID is the messaging platform's chat id.
type User struct {
	ID       int64
	Username string
	Password string
	// 0 means the portal's default academic year
	ActiveYear   int
	ScheduleMode ScheduleMode
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) GetUser(ctx context.Context, id int64) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		select chat_id, username, password, active_year, schedule_mode
		from user where chat_id = ?`, id)

	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Password, &user.ActiveYear, &user.ScheduleMode)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// UpsertUser enrolls a chat or replaces its credentials. The schedule
// mode and year override of an existing user are preserved.
func (s Store) UpsertUser(ctx context.Context, user User) error {
	if user.ScheduleMode == "" {
		user.ScheduleMode = ScheduleNone
	}
	_, err := s.db.ExecContext(ctx, `
		insert into user (chat_id, username, password, active_year, schedule_mode)
		values (?, ?, ?, ?, ?)
		on conflict (chat_id) do update set
			username = excluded.username,
			password = excluded.password`,
		user.ID, user.Username, user.Password, user.ActiveYear, user.ScheduleMode)
	return err
}

func (s Store) UpdateScheduleMode(ctx context.Context, id int64, mode ScheduleMode) error {
	res, err := s.db.ExecContext(ctx,
		`update user set schedule_mode = ? where chat_id = ?`, mode, id)
	if err != nil {
		return err
	}
	return oneRow(res)
}

func (s Store) UpdateActiveYear(ctx context.Context, id int64, year int) error {
	res, err := s.db.ExecContext(ctx,
		`update user set active_year = ? where chat_id = ?`, year, id)
	if err != nil {
		return err
	}
	return oneRow(res)
}

func (s Store) UpdatePassword(ctx context.Context, id int64, password string) error {
	res, err := s.db.ExecContext(ctx,
		`update user set password = ? where chat_id = ?`, password, id)
	if err != nil {
		return err
	}
	return oneRow(res)
}

func (s Store) ListUsersByScheduleMode(ctx context.Context, mode ScheduleMode) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		select chat_id, username, password, active_year, schedule_mode
		from user where schedule_mode = ? order by chat_id`, mode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.ActiveYear, &user.ScheduleMode)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from user where chat_id = ?`, id)
	if err != nil {
		return err
	}
	return oneRow(res)
}

func oneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
