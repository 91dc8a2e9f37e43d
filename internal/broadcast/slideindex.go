package broadcast

import "sync"

// SlideState is a snapshot of a view's position.
type SlideState struct {
	Index      int  `json:"index"`
	Previous   int  `json:"previous"`
	Next       int  `json:"next"`
	SlideCount int  `json:"slideCount"`
	Forward    bool `json:"forward"`
}

// SlideIndexOptions configures a SlideIndex.
type SlideIndexOptions struct {
	SlideCount int
	// IgnorePost makes the view a passive mirror: local navigation is not published.
	IgnorePost bool
	Post       func(Message)
	OnChange   func(SlideState)
}

// SlideIndex is the per-view slide position state machine.
type SlideIndex struct {
	mu         sync.Mutex
	index      int
	count      int
	forward    bool
	ignorePost bool
	post       func(Message)
	onChange   func(SlideState)
}

// NewSlideIndex starts at index 0.
func NewSlideIndex(opts SlideIndexOptions) *SlideIndex {
	count := opts.SlideCount
	if count < 0 {
		count = 0
	}
	return &SlideIndex{
		count:      count,
		forward:    true,
		ignorePost: opts.IgnorePost,
		post:       opts.Post,
		onChange:   opts.OnChange,
	}
}

func (s *SlideIndex) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if s.count > 0 && i > s.count-1 {
		return s.count - 1
	}
	return i
}

func (s *SlideIndex) stateLocked() SlideState {
	prev := s.index - 1
	if prev < 0 {
		prev = 0
	}
	next := s.index + 1
	if next > s.count-1 {
		next = s.count - 1
	}
	if next < 0 {
		next = 0
	}
	return SlideState{
		Index:      s.index,
		Previous:   prev,
		Next:       next,
		SlideCount: s.count,
		Forward:    s.forward,
	}
}

// State returns the current snapshot.
func (s *SlideIndex) State() SlideState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Index returns the current slide index.
func (s *SlideIndex) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// SetSlideCount updates the known page count and pulls the index into range.
func (s *SlideIndex) SetSlideCount(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	before := s.stateLocked()
	s.count = n
	s.index = s.clamp(s.index)
	after := s.stateLocked()
	s.mu.Unlock()

	s.changed(before, after)
}

// NavNext moves forward one slide and publishes the new index.
func (s *SlideIndex) NavNext() {
	s.mu.Lock()
	next := s.stateLocked().Next
	s.mu.Unlock()
	s.navigate(next, true, true)
}

// NavPrevious moves back one slide and publishes the new index.
func (s *SlideIndex) NavPrevious() {
	s.mu.Lock()
	prev := s.stateLocked().Previous
	s.mu.Unlock()
	s.navigate(prev, false, true)
}

// SetSlideIndex jumps to index and publishes it. Direction is unchanged.
func (s *SlideIndex) SetSlideIndex(index int) {
	s.navigate(index, false, false)
}

func (s *SlideIndex) navigate(index int, forward, setDirection bool) {
	s.mu.Lock()
	before := s.stateLocked()
	if setDirection {
		s.forward = forward
	}
	s.index = s.clamp(index)
	after := s.stateLocked()
	post := s.post
	ignore := s.ignorePost
	s.mu.Unlock()

	s.changed(before, after)

	if !ignore && post != nil {
		post(SlideIndexMessage(after.Index))
	}
}

// apply sets the index from an inbound message without touching direction.
func (s *SlideIndex) apply(msg Message) {
	index, ok := msg.SlideIndex()
	if !ok {
		return
	}

	s.mu.Lock()
	before := s.stateLocked()
	s.index = s.clamp(index)
	after := s.stateLocked()
	s.mu.Unlock()

	s.changed(before, after)
}

func (s *SlideIndex) changed(before, after SlideState) {
	if before != after && s.onChange != nil {
		s.onChange(after)
	}
}

// Handlers returns the entries that keep this state in sync with peers.
func (s *SlideIndex) Handlers() []HandlerEntry {
	return []HandlerEntry{
		{Type: TypeSlideIndex, Handler: s.apply},
		{Type: TypeHeartbeat, Handler: s.apply},
	}
}
