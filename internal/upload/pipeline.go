package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/slidrapp/slidr/internal/metrics"
	"github.com/slidrapp/slidr/internal/models"
	"github.com/slidrapp/slidr/internal/render"
	"github.com/slidrapp/slidr/internal/storage"
	"github.com/slidrapp/slidr/internal/store"
)

// Status is the stage an upload has reached.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusRendering    Status = "rendering"
	StatusUploading    Status = "uploading"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
)

// ErrEmptyUpload is returned by Start when no bytes were sent.
var ErrEmptyUpload = errors.New("empty upload")

// Progress reports how far an upload got.
type Progress struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Page      int       `json:"page"`
	PageCount int       `json:"pageCount"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Invalidator drops cached copies of a presentation.
type Invalidator interface {
	InvalidatePresentation(ctx context.Context, id string) error
}

// Options configures a Pipeline.
type Options struct {
	Store    store.DocumentStore
	Bucket   storage.Bucket
	Renderer render.Renderer
	// Cache is optional.
	Cache Invalidator
	// OnRendered is called with the page count once a presentation is done.
	OnRendered func(id string, pages int)
	Width      int
	Logger     zerolog.Logger
}

// Pipeline turns an uploaded PDF into a rendered presentation. The document
// and its original are stored synchronously; pages render in the background.
type Pipeline struct {
	store    store.DocumentStore
	bucket   storage.Bucket
	renderer render.Renderer
	cache    Invalidator
	rendered func(id string, pages int)
	width    int
	logger   zerolog.Logger

	mu       sync.RWMutex
	progress map[string]*Progress

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPipeline creates a pipeline. Close stops in-flight renders.
func NewPipeline(opts Options) *Pipeline {
	if opts.Width <= 0 {
		opts.Width = render.DefaultWidth
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		store:    opts.Store,
		bucket:   opts.Bucket,
		renderer: opts.Renderer,
		cache:    opts.Cache,
		rendered: opts.OnRendered,
		width:    opts.Width,
		logger:   opts.Logger.With().Str("component", "upload").Logger(),
		progress: make(map[string]*Progress),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start creates the presentation for owner, stores the original PDF and
// schedules rendering. The returned document has no pages yet.
func (p *Pipeline) Start(ctx context.Context, owner *models.User, title string, pdf []byte) (*models.Presentation, error) {
	if len(pdf) == 0 {
		return nil, ErrEmptyUpload
	}

	doc := &models.Presentation{
		UID:      owner.ID,
		Username: owner.Username,
		Title:    strings.TrimSpace(title),
	}
	if err := p.store.CreatePresentation(ctx, doc); err != nil {
		return nil, fmt.Errorf("create presentation: %w", err)
	}
	p.setProgress(doc.ID, func(pr *Progress) { pr.Status = StatusInitializing })

	key := fmt.Sprintf("presentations/%s/%s.pdf", doc.ID, newName())
	originalURL, err := p.bucket.Put(ctx, key, bytes.NewReader(pdf), storage.PutOptions{
		ContentType:  "application/pdf",
		CacheControl: storage.CacheImmutable,
	})
	if err != nil {
		p.fail(doc.ID, err)
		return nil, fmt.Errorf("store original: %w", err)
	}
	if err := p.store.SetOriginal(ctx, doc.ID, originalURL); err != nil {
		p.fail(doc.ID, err)
		return nil, fmt.Errorf("set original: %w", err)
	}
	doc.Original = originalURL

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.render(doc.ID, doc.Title, pdf)
	}()

	return doc, nil
}

func (p *Pipeline) render(id, title string, pdf []byte) {
	ctx := p.ctx
	logger := p.logger.With().Str("presentation", id).Logger()
	start := time.Now()

	d, err := p.renderer.Open(pdf)
	if err != nil {
		p.fail(id, err)
		return
	}
	defer d.Close()

	if title == "" {
		title = d.Title()
	}

	count := d.NumPage()
	p.setProgress(id, func(pr *Progress) {
		pr.Status = StatusRendering
		pr.PageCount = count
	})

	pages := make([]string, 0, count)
	err = render.RenderAll(ctx, d, p.width, func(page render.Page) error {
		key := fmt.Sprintf("presentations/%s/%03d_%s.jpg", id, page.Number-1, newName())
		url, err := p.bucket.Put(ctx, key, bytes.NewReader(page.JPEG), storage.PutOptions{
			ContentType:  "image/jpeg",
			CacheControl: storage.CacheImmutable,
		})
		if err != nil {
			return fmt.Errorf("store page %d: %w", page.Number, err)
		}
		pages = append(pages, url)
		metrics.PagesRendered.Inc()
		p.setProgress(id, func(pr *Progress) { pr.Page = page.Number })
		return nil
	})
	if err != nil {
		p.fail(id, err)
		return
	}

	p.setProgress(id, func(pr *Progress) { pr.Status = StatusUploading })
	err = p.store.SetRendered(ctx, id, title, pages, models.DefaultNotes(len(pages)), time.Now().UTC())
	if err != nil {
		p.fail(id, fmt.Errorf("update presentation: %w", err))
		return
	}
	if p.cache != nil {
		if err := p.cache.InvalidatePresentation(ctx, id); err != nil {
			logger.Warn().Err(err).Msg("cache invalidation failed")
		}
	}

	p.setProgress(id, func(pr *Progress) { pr.Status = StatusDone })
	metrics.Uploads.WithLabelValues(string(StatusDone)).Inc()
	if p.rendered != nil {
		p.rendered(id, len(pages))
	}
	logger.Info().
		Int("pages", len(pages)).
		Dur("duration", time.Since(start)).
		Msg("presentation rendered")
}

func (p *Pipeline) fail(id string, err error) {
	p.setProgress(id, func(pr *Progress) {
		pr.Status = StatusFailed
		pr.Error = err.Error()
	})
	metrics.Uploads.WithLabelValues(string(StatusFailed)).Inc()
	p.logger.Error().Err(err).Str("presentation", id).Msg("upload failed")
}

func (p *Pipeline) setProgress(id string, update func(*Progress)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pr, ok := p.progress[id]
	if !ok {
		pr = &Progress{ID: id}
		p.progress[id] = pr
	}
	update(pr)
	pr.UpdatedAt = time.Now().UTC()
}

// Progress returns the tracked state of an upload started by this process.
func (p *Pipeline) Progress(id string) (Progress, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pr, ok := p.progress[id]
	if !ok {
		return Progress{}, false
	}
	return *pr, true
}

// Wait blocks until every scheduled render has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Close cancels in-flight renders and waits for them to stop.
func (p *Pipeline) Close() {
	p.cancel()
	p.wg.Wait()
}

func newName() string {
	return strings.ToLower(ulid.Make().String())
}
