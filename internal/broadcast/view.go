package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Role selects how a view participates in a session.
type Role string

const (
	// RolePresenter is the full-screen deck. It navigates and publishes.
	RolePresenter Role = "presenter"
	// RoleSpeaker is the speaker console and the heartbeat source.
	RoleSpeaker Role = "speaker"
	// RoleAudience mirrors navigation without publishing it.
	RoleAudience Role = "audience"
)

// ErrInvalidRole is returned by ParseRole.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole accepts role names and the short route prefixes p, s and i.
// An empty string means audience.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "audience", "i", "view":
		return RoleAudience, nil
	case "presenter", "p":
		return RolePresenter, nil
	case "speaker", "s":
		return RoleSpeaker, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// ViewOptions configures a View.
type ViewOptions struct {
	Session    string
	Role       Role
	PeerID     string
	SlideCount int
	Transports []Transport
	// HeartbeatInterval applies to speaker views. Negative disables the heartbeat.
	HeartbeatInterval time.Duration
	Logger            zerolog.Logger

	OnSlideChange   func(SlideState)
	OnReaction      func(kind string)
	OnClearReaction func()
}

// View is one mounted presentation view: slide position and reactions kept in
// sync with every other view of the same session across all transports.
type View struct {
	session    string
	role       Role
	peerID     string
	transports []Transport
	interval   time.Duration
	logger     zerolog.Logger

	slides   *SlideIndex
	confetti *Confetti
	handlers Handlers
	seen     *nonceRing

	mu      sync.Mutex
	mounted bool
	unsubs  []func()
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewView builds an unmounted view.
func NewView(opts ViewOptions) *View {
	peerID := opts.PeerID
	if peerID == "" {
		peerID = uuid.NewString()
	}
	if opts.Role == "" {
		opts.Role = RoleAudience
	}

	v := &View{
		session:    opts.Session,
		role:       opts.Role,
		peerID:     peerID,
		transports: opts.Transports,
		interval:   opts.HeartbeatInterval,
		logger: opts.Logger.With().
			Str("session", opts.Session).
			Str("role", string(opts.Role)).
			Str("peer", peerID).
			Logger(),
		seen: newNonceRing(128),
	}

	v.slides = NewSlideIndex(SlideIndexOptions{
		SlideCount: opts.SlideCount,
		IgnorePost: opts.Role == RoleAudience,
		Post:       v.post,
		OnChange:   opts.OnSlideChange,
	})
	v.confetti = NewConfetti(ConfettiOptions{
		Post:    v.post,
		OnFire:  opts.OnReaction,
		OnClear: opts.OnClearReaction,
	})
	v.handlers = MergeHandlers(v.slides.Handlers(), v.confetti.Handlers())

	return v
}

// PeerID identifies this view's subscriptions for echo suppression.
func (v *View) PeerID() string { return v.peerID }

// Role returns the view's role.
func (v *View) Role() Role { return v.role }

// Session returns the session id.
func (v *View) Session() string { return v.session }

// Mount subscribes to every transport and, for speakers, starts the heartbeat.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.mounted {
		return nil
	}

	for _, t := range v.transports {
		unsub, err := t.Subscribe(ctx, v.session, v.peerID, v.receive)
		if err != nil {
			for _, u := range v.unsubs {
				u()
			}
			v.unsubs = nil
			return fmt.Errorf("mount on %s: %w", t.Name(), err)
		}
		v.unsubs = append(v.unsubs, unsub)
	}

	if v.role == RoleSpeaker && v.interval >= 0 {
		hbCtx, cancel := context.WithCancel(context.Background())
		v.cancel = cancel
		hb := &Heartbeat{
			Interval: v.interval,
			Index:    v.slides.Index,
			Publish:  v.post,
		}
		v.wg.Add(1)
		go func() {
			defer v.wg.Done()
			hb.Run(hbCtx)
		}()
	}

	v.mounted = true
	v.logger.Debug().Int("transports", len(v.transports)).Msg("view mounted")
	return nil
}

// Close stops the heartbeat and unsubscribes. It waits for a callback that is
// already running, and no callback starts after Close returns. Close must not
// be called from inside a view callback.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return
	}
	if v.cancel != nil {
		v.cancel()
		v.wg.Wait()
		v.cancel = nil
	}
	for _, u := range v.unsubs {
		u()
	}
	v.unsubs = nil
	v.mounted = false
	v.logger.Debug().Msg("view closed")
}

func (v *View) receive(msg Message) {
	if !v.seen.add(msg.Nonce) {
		return
	}
	v.handlers.Dispatch(msg)
}

func (v *View) post(msg Message) {
	msg.Sender = v.peerID
	v.seen.add(msg.Nonce)
	for _, t := range v.transports {
		t.Publish(v.session, msg)
	}
}

// State returns the current slide position.
func (v *View) State() SlideState { return v.slides.State() }

// SetSlideCount updates the page count once the document is known.
func (v *View) SetSlideCount(n int) { v.slides.SetSlideCount(n) }

// NavNext advances one slide.
func (v *View) NavNext() { v.slides.NavNext() }

// NavPrevious goes back one slide.
func (v *View) NavPrevious() { v.slides.NavPrevious() }

// SetSlideIndex jumps to index.
func (v *View) SetSlideIndex(index int) { v.slides.SetSlideIndex(index) }

// React fires a reaction on every view of the session, this one included.
func (v *View) React(kind string) { v.confetti.Fire(kind) }

// ClearReactions removes reactions on every view of the session.
func (v *View) ClearReactions() { v.confetti.Clear() }

// Reactions returns the reactions currently shown by this view.
func (v *View) Reactions() []string { return v.confetti.Active() }

// nonceRing remembers recent nonces so a message that arrives over two
// transports is handled once.
type nonceRing struct {
	mu    sync.Mutex
	set   map[string]struct{}
	order []string
	size  int
}

func newNonceRing(size int) *nonceRing {
	return &nonceRing{set: make(map[string]struct{}, size), size: size}
}

// add reports false when nonce was already seen. Empty nonces always pass.
func (r *nonceRing) add(nonce string) bool {
	if nonce == "" {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.set[nonce]; ok {
		return false
	}
	r.set[nonce] = struct{}{}
	r.order = append(r.order, nonce)
	if len(r.order) > r.size {
		delete(r.set, r.order[0])
		r.order = r.order[1:]
	}
	return true
}
