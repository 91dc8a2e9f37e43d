package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/slidrapp/slidr/internal/models"
	"github.com/slidrapp/slidr/internal/store"
	"github.com/slidrapp/slidr/internal/upload"
)

// usernameRegex restricts usernames to URL-safe handles.
var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// twitterRegex matches an optional @-prefixed Twitter/X handle.
var twitterRegex = regexp.MustCompile(`^@?[A-Za-z0-9_]{1,15}$`)

// Options carries the dependencies of a Handler.
type Options struct {
	Store     store.DocumentStore
	Redis     *store.RedisStore // optional
	Pipeline  *upload.Pipeline
	Logger    zerolog.Logger
	PublicURL string
	MaxUpload int64
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store     store.DocumentStore
	redis     *store.RedisStore
	pipeline  *upload.Pipeline
	logger    zerolog.Logger
	publicURL string
	maxUpload int64
}

// NewHandler creates a new Handler.
func NewHandler(opts Options) *Handler {
	return &Handler{
		store:     opts.Store,
		redis:     opts.Redis,
		pipeline:  opts.Pipeline,
		logger:    opts.Logger,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
		maxUpload: opts.MaxUpload,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// presentation loads a document, going through the Redis cache when configured.
func (h *Handler) presentation(ctx context.Context, id string) (*models.Presentation, error) {
	if h.redis != nil {
		cached, err := h.redis.GetCachedPresentation(ctx, id)
		if err != nil {
			h.logger.Warn().Err(err).Str("presentation", id).Msg("cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	p, err := h.store.GetPresentation(ctx, id)
	if err != nil || p == nil {
		return p, err
	}

	if h.redis != nil {
		if err := h.redis.CachePresentation(ctx, p); err != nil {
			h.logger.Warn().Err(err).Str("presentation", id).Msg("cache write failed")
		}
	}
	return p, nil
}

// invalidate drops a cached document after a write.
func (h *Handler) invalidate(ctx context.Context, id string) {
	if h.redis == nil {
		return
	}
	if err := h.redis.InvalidatePresentation(ctx, id); err != nil {
		h.logger.Warn().Err(err).Str("presentation", id).Msg("cache invalidation failed")
	}
}

// sanitizeText trims, strips control characters and limits s to max bytes.
func sanitizeText(s string, max int) string {
	s = strings.TrimSpace(s)

	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	if len(s) > max {
		s = strings.ToValidUTF8(s[:max], "")
	}

	return s
}
