package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"calibri-dashboard/internal/model"
	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

var (
	ErrEmailExists  = errors.New("email already exists")
	ErrUserNotFound = errors.New("user not found")
)

// Store is the backend's SQLite persistence: users, EMG samples and revoked
// tokens. The connection is opened lazily on first use.
type Store struct {
	dbPath string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	closeOnce sync.Once
	closeErr  error
}

func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func (s *Store) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"))
		if err != nil {
			s.dbErr = fmt.Errorf("opening database: %w", err)
			return
		}
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)

		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}
		s.db = db
	})

	return s.db, s.dbErr
}

// Init opens the database and applies the schema.
func (s *Store) Init() error {
	_, err := s.getDB()
	return err
}

func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.db != nil {
			s.closeErr = s.db.Close()
		}
	})
	return s.closeErr
}

func (s *Store) Ping(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// EnsureAdmin creates the administrator account unless the email is taken.
func (s *Store) EnsureAdmin(ctx context.Context, email, passwordHash, name string) (created bool, err error) {
	db, err := s.getDB()
	if err != nil {
		return false, err
	}

	result, err := db.ExecContext(ctx, insertAdminSQL, email, passwordHash, name)
	if err != nil {
		return false, fmt.Errorf("seeding admin: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seeding admin: %w", err)
	}
	return n > 0, nil
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, name string) (user model.User, err error) {
	db, err := s.getDB()
	if err != nil {
		return model.User{}, err
	}

	stmt, err := db.PrepareContext(ctx, insertUserSQL)
	if err != nil {
		return model.User{}, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, email, passwordHash, name, 0)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, fmt.Errorf("inserting user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("getting user ID: %w", err)
	}
	return s.UserByID(ctx, id)
}

// UserByEmail returns the user and its password hash.
func (s *Store) UserByEmail(ctx context.Context, email string) (model.User, string, error) {
	db, err := s.getDB()
	if err != nil {
		return model.User{}, "", err
	}

	var (
		user    model.User
		isAdmin int64
		hash    string
	)
	err = db.QueryRowContext(ctx, selectUserByEmailSQL, email).
		Scan(&user.ID, &user.Email, &user.Name, &isAdmin, &user.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, "", ErrUserNotFound
	}
	if err != nil {
		return model.User{}, "", fmt.Errorf("scanning user: %w", err)
	}
	user.IsAdmin = isAdmin != 0
	return user, hash, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (model.User, error) {
	db, err := s.getDB()
	if err != nil {
		return model.User{}, err
	}

	var (
		user    model.User
		isAdmin int64
	)
	err = db.QueryRowContext(ctx, selectUserByIDSQL, id).
		Scan(&user.ID, &user.Email, &user.Name, &isAdmin, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("scanning user: %w", err)
	}
	user.IsAdmin = isAdmin != 0
	return user, nil
}

func (s *Store) Users(ctx context.Context) (users []model.User, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer closeWithError(rows, &err)

	users = []model.User{}
	for rows.Next() {
		var (
			user    model.User
			isAdmin int64
		)
		if err = rows.Scan(&user.ID, &user.Email, &user.Name, &isAdmin, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		user.IsAdmin = isAdmin != 0
		users = append(users, user)
	}
	return users, rows.Err()
}

// DeleteUser removes the user and, through the foreign key, its samples.
// Deleting an unknown id is not an error.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, deleteUserSQL, id); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

func (s *Store) InsertSample(ctx context.Context, userID int64, r model.SampleRecord) (err error) {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, insertSampleSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if _, err = stmt.ExecContext(ctx, userID, r.SessionID,
		r.AccelerometerX, r.AccelerometerY, r.AccelerometerZ,
		r.GyroscopeX, r.GyroscopeY, r.GyroscopeZ,
		r.EMGEnvelope, r.EMGSignalMax,
	); err != nil {
		return fmt.Errorf("inserting sample: %w", err)
	}
	return nil
}

// Sessions lists the user's recording sessions, most recent first.
func (s *Store) Sessions(ctx context.Context, userID int64) (sessions []model.SessionSummary, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	sessions = []model.SessionSummary{}
	for rows.Next() {
		var sess model.SessionSummary
		if err = rows.Scan(&sess.SessionID, &sess.StartedAt, &sess.DataPoints); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// EMGRecords returns the newest limit samples across all users.
func (s *Store) EMGRecords(ctx context.Context, limit int) (records []model.EMGRecord, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectEMGRecordsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("querying emg data: %w", err)
	}
	defer closeWithError(rows, &err)

	records = []model.EMGRecord{}
	for rows.Next() {
		var r model.EMGRecord
		if err = rows.Scan(&r.ID, &r.UserID, &r.SessionID,
			&r.AccelerometerX, &r.AccelerometerY, &r.AccelerometerZ,
			&r.GyroscopeX, &r.GyroscopeY, &r.GyroscopeZ,
			&r.EMGEnvelope, &r.EMGSignalMax, &r.Timestamp,
			&r.UserEmail, &r.UserName,
		); err != nil {
			return nil, fmt.Errorf("scanning emg record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Stats{}, err
	}

	var st model.Stats
	if err := db.QueryRowContext(ctx, selectStatsSQL).Scan(&st.Users, &st.EMGRecords, &st.Sessions); err != nil {
		return model.Stats{}, fmt.Errorf("scanning stats: %w", err)
	}
	return st, nil
}

// RevokeToken records jti as revoked until expiresAt and prunes entries that
// have already expired.
func (s *Store) RevokeToken(ctx context.Context, jti string, expiresAt, now time.Time) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteExpiredRevokedTokensSQL, now.Unix()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("pruning revoked tokens: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertRevokedTokenSQL, jti, expiresAt.Unix()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("revoking token: %w", err)
	}
	return tx.Commit()
}

func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	db, err := s.getDB()
	if err != nil {
		return false, err
	}

	var one int
	err = db.QueryRowContext(ctx, selectRevokedTokenSQL, jti).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking revoked token: %w", err)
	}
	return true, nil
}
