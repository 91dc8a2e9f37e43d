package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slidrapp/slidr/internal/crypto"
	"github.com/slidrapp/slidr/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser creates a new user record.
func (s *PostgresStore) CreateUser(ctx context.Context, username, twitterHandle, tokenHash string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, twitter_handle, token_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, twitter_handle, token_hash, created_at
	`, crypto.NewUUIDv7(), username, twitterHandle, tokenHash).Scan(
		&user.ID,
		&user.Username,
		&user.TwitterHandle,
		&user.TokenHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, username, twitter_handle, token_hash, created_at
		FROM users WHERE id = $1
	`, id)
}

// GetUserByUsername retrieves a user by username.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, username, twitter_handle, token_hash, created_at
		FROM users WHERE username = $1
	`, username)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.TwitterHandle,
		&user.TokenHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CreatePresentation inserts a new presentation document, assigning its ID.
func (s *PostgresStore) CreatePresentation(ctx context.Context, p *models.Presentation) error {
	preparePresentation(p)
	pages, notes, err := encodeDocument(p.Pages, p.Notes)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO presentations (id, uid, username, title, pages, notes, original, created)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8)
	`, p.ID, p.UID, p.Username, p.Title, pages, notes, p.Original, p.Created)
	return err
}

const presentationColumns = `id, uid, username, title, pages, notes, original, created, rendered`

func scanPresentation(row pgx.Row) (*models.Presentation, error) {
	p := &models.Presentation{}
	var pages, notes []byte
	err := row.Scan(
		&p.ID,
		&p.UID,
		&p.Username,
		&p.Title,
		&pages,
		&notes,
		&p.Original,
		&p.Created,
		&p.Rendered,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeDocument(p, pages, notes); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPresentation retrieves a presentation by ID.
func (s *PostgresStore) GetPresentation(ctx context.Context, id string) (*models.Presentation, error) {
	p, err := scanPresentation(s.pool.QueryRow(ctx,
		`SELECT `+presentationColumns+` FROM presentations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListRenderedPresentations retrieves rendered presentations ordered by render time.
func (s *PostgresStore) ListRenderedPresentations(ctx context.Context, limit, offset int) ([]models.Presentation, int, error) {
	// Get total count
	var total int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM presentations WHERE rendered IS NOT NULL`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+presentationColumns+`
		FROM presentations
		WHERE rendered IS NOT NULL
		ORDER BY rendered
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	presentations := []models.Presentation{}
	for rows.Next() {
		p, err := scanPresentation(rows)
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
func (s *PostgresStore) SetOriginal(ctx context.Context, id, originalURL string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE presentations SET original = $2 WHERE id = $1
	`, id, originalURL)
	return err
}

// SetRendered stores the rendered pages and marks the presentation as rendered.
func (s *PostgresStore) SetRendered(ctx context.Context, id, title string, pages []string, notes []models.Note, rendered time.Time) error {
	pagesJSON, notesJSON, err := encodeDocument(pages, notes)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE presentations
		SET title = $2, pages = $3::jsonb, notes = $4::jsonb, rendered = $5
		WHERE id = $1
	`, id, title, pagesJSON, notesJSON, rendered)
	return err
}

// UpdatePreferences replaces the title and speaker notes.
func (s *PostgresStore) UpdatePreferences(ctx context.Context, id, title string, notes []models.Note) error {
	_, notesJSON, err := encodeDocument(nil, notes)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE presentations SET title = $2, notes = $3::jsonb WHERE id = $1
	`, id, title, notesJSON)
	return err
}

// CountPresentations returns the number of rendered presentations.
func (s *PostgresStore) CountPresentations(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM presentations WHERE rendered IS NOT NULL`).Scan(&count)
	return count, err
}
