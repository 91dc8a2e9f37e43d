package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/slidrapp/slidr/internal/crypto"
	"github.com/slidrapp/slidr/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/slidr.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/slidr.db"
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		twitter_handle TEXT NOT NULL DEFAULT '',
		token_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS presentations (
		id TEXT PRIMARY KEY,
		uid TEXT NOT NULL REFERENCES users(id),
		username TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		pages TEXT NOT NULL DEFAULT '[]',
		notes TEXT NOT NULL DEFAULT '[]',
		original TEXT NOT NULL DEFAULT '',
		created DATETIME NOT NULL,
		rendered DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_presentations_uid ON presentations(uid);
	CREATE INDEX IF NOT EXISTS idx_presentations_rendered ON presentations(rendered);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, twitterHandle, tokenHash string) (*models.User, error) {
	user := &models.User{
		ID:            crypto.NewUUIDv7(),
		Username:      username,
		TwitterHandle: twitterHandle,
		TokenHash:     tokenHash,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, twitter_handle, token_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.ID.String(), user.Username, user.TwitterHandle, user.TokenHash, user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, username, twitter_handle, token_hash, created_at
		FROM users WHERE id = ?
	`, id.String())
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, username, twitter_handle, token_hash, created_at
		FROM users WHERE username = ?
	`, username)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var idStr string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&idStr,
		&user.Username,
		&user.TwitterHandle,
		&user.TokenHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePresentation inserts a new presentation document, assigning its ID.
func (s *SQLiteStore) CreatePresentation(ctx context.Context, p *models.Presentation) error {
	preparePresentation(p)
	pages, notes, err := encodeDocument(p.Pages, p.Notes)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO presentations (id, uid, username, title, pages, notes, original, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.UID.String(), p.Username, p.Title, pages, notes, p.Original, p.Created)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePresentation(row rowScanner) (*models.Presentation, error) {
	p := &models.Presentation{}
	var uid, pages, notes string
	var rendered sql.NullTime
	err := row.Scan(
		&p.ID,
		&uid,
		&p.Username,
		&p.Title,
		&pages,
		&notes,
		&p.Original,
		&p.Created,
		&rendered,
	)
	if err != nil {
		return nil, err
	}
	if p.UID, err = uuid.Parse(uid); err != nil {
		return nil, err
	}
	if rendered.Valid {
		t := rendered.Time
		p.Rendered = &t
	}
	if err := decodeDocument(p, []byte(pages), []byte(notes)); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPresentation retrieves a presentation by ID.
func (s *SQLiteStore) GetPresentation(ctx context.Context, id string) (*models.Presentation, error) {
	p, err := scanSQLitePresentation(s.db.QueryRowContext(ctx,
		`SELECT `+presentationColumns+` FROM presentations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListRenderedPresentations retrieves rendered presentations ordered by render time.
func (s *SQLiteStore) ListRenderedPresentations(ctx context.Context, limit, offset int) ([]models.Presentation, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM presentations WHERE rendered IS NOT NULL`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+presentationColumns+`
		FROM presentations
		WHERE rendered IS NOT NULL
		ORDER BY rendered
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	presentations := []models.Presentation{}
	for rows.Next() {
		p, err := scanSQLitePresentation(rows)
		if err != nil {
			return nil, 0, err
		}
		presentations = append(presentations, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return presentations, total, nil
}

// SetOriginal records the download URL of the uploaded PDF.
func (s *SQLiteStore) SetOriginal(ctx context.Context, id, originalURL string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE presentations SET original = ? WHERE id = ?`, originalURL, id)
	return err
}

// SetRendered stores the rendered pages and marks the presentation as rendered.
func (s *SQLiteStore) SetRendered(ctx context.Context, id, title string, pages []string, notes []models.Note, rendered time.Time) error {
	pagesJSON, notesJSON, err := encodeDocument(pages, notes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE presentations
		SET title = ?, pages = ?, notes = ?, rendered = ?
		WHERE id = ?
	`, title, pagesJSON, notesJSON, rendered.UTC(), id)
	return err
}

// UpdatePreferences replaces the title and speaker notes.
func (s *SQLiteStore) UpdatePreferences(ctx context.Context, id, title string, notes []models.Note) error {
	_, notesJSON, err := encodeDocument(nil, notes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE presentations SET title = ?, notes = ? WHERE id = ?`, title, notesJSON, id)
	return err
}

// CountPresentations returns the number of rendered presentations.
func (s *SQLiteStore) CountPresentations(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM presentations WHERE rendered IS NOT NULL`).Scan(&count)
	return count, err
}
