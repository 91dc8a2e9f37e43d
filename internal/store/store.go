package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/slidrapp/slidr/internal/models"
)

// DocumentStore defines the interface for persistent storage of users and presentations.
// Both PostgresStore and SQLiteStore implement this interface.
// Lookups return (nil, nil) when the record does not exist.
type DocumentStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, username, twitterHandle, tokenHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// Presentation operations
	CreatePresentation(ctx context.Context, p *models.Presentation) error
	GetPresentation(ctx context.Context, id string) (*models.Presentation, error)
	ListRenderedPresentations(ctx context.Context, limit, offset int) ([]models.Presentation, int, error)
	SetOriginal(ctx context.Context, id, originalURL string) error
	SetRendered(ctx context.Context, id, title string, pages []string, notes []models.Note, rendered time.Time) error
	UpdatePreferences(ctx context.Context, id, title string, notes []models.Note) error
	CountPresentations(ctx context.Context) (int64, error)
}

// preparePresentation fills the id, timestamps and empty collections of a new document.
func preparePresentation(p *models.Presentation) {
	if p.ID == "" {
		p.ID = strings.ToLower(ulid.Make().String())
	}
	if p.Created.IsZero() {
		p.Created = time.Now().UTC()
	}
	if p.Pages == nil {
		p.Pages = []string{}
	}
	if p.Notes == nil {
		p.Notes = []models.Note{}
	}
}

// encodeDocument serializes the list columns of a presentation.
func encodeDocument(pages []string, notes []models.Note) (string, string, error) {
	if pages == nil {
		pages = []string{}
	}
	if notes == nil {
		notes = []models.Note{}
	}
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return "", "", fmt.Errorf("encode pages: %w", err)
	}
	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return "", "", fmt.Errorf("encode notes: %w", err)
	}
	return string(pagesJSON), string(notesJSON), nil
}

// decodeDocument fills the list fields of p from their stored JSON.
func decodeDocument(p *models.Presentation, pagesJSON, notesJSON []byte) error {
	if err := json.Unmarshal(pagesJSON, &p.Pages); err != nil {
		return fmt.Errorf("decode pages: %w", err)
	}
	if err := json.Unmarshal(notesJSON, &p.Notes); err != nil {
		return fmt.Errorf("decode notes: %w", err)
	}
	return nil
}
