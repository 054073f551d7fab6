// Package crawl ties screen observation, action execution and transition
// recording together for an external controller that decides what to do next.
package crawl

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devicelab-dev/screen-crawler/pkg/action"
	"github.com/devicelab-dev/screen-crawler/pkg/core"
	"github.com/devicelab-dev/screen-crawler/pkg/hashing"
	"github.com/devicelab-dev/screen-crawler/pkg/loop"
	"github.com/devicelab-dev/screen-crawler/pkg/screens"
)

// Options tunes loop signalling.
type Options struct {
	VisitThreshold  int
	RepeatThreshold int
	WindowSize      int
}

// DefaultOptions returns the standard loop thresholds.
func DefaultOptions() Options {
	return Options{
		VisitThreshold:  loop.DefaultVisitThreshold,
		RepeatThreshold: loop.DefaultRepeatThreshold,
		WindowSize:      loop.DefaultWindowSize,
	}
}

// Observation is what the controller learns about the current screen.
type Observation struct {
	Screen     *core.Screen
	IsNew      bool
	VisitCount int
	// History lists the distinct actions already taken from this screen.
	History []string
	// Looping is advisory: the screen was visited too often or recent
	// actions repeat.
	Looping bool
}

type pendingTransition struct {
	source string
	action string
}

// Session is one crawl run. Observe and Act alternate; each attempted
// action becomes a transition once the next screen is observed.
//
// It is not safe for concurrent use.
type Session struct {
	repo    *screens.Repository
	exec    *action.Executor
	tracker *loop.Tracker
	hasher  *hashing.Hasher
	opts    Options
	log     *zap.Logger
	runID   string

	current *core.Screen
	pending *pendingTransition
}

// NewSession creates a session over a loaded repository. A nil tracker gets
// one sized to opts.WindowSize.
func NewSession(repo *screens.Repository, exec *action.Executor, tracker *loop.Tracker, opts Options, log *zap.Logger) *Session {
	def := DefaultOptions()
	if opts.VisitThreshold <= 0 {
		opts.VisitThreshold = def.VisitThreshold
	}
	if opts.RepeatThreshold <= 0 {
		opts.RepeatThreshold = def.RepeatThreshold
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = def.WindowSize
	}
	if tracker == nil {
		tracker = loop.NewTracker(opts.WindowSize)
	}
	if log == nil {
		log = zap.NewNop()
	}
	runID := uuid.NewString()
	log = log.Named("crawl").With(zap.String("run", runID))

	return &Session{
		repo:    repo,
		exec:    exec,
		tracker: tracker,
		hasher:  hashing.New(log),
		opts:    opts,
		log:     log,
		runID:   runID,
	}
}

// RunID identifies this session in logs.
func (s *Session) RunID() string {
	return s.runID
}

// Current returns the most recently observed screen, or nil.
func (s *Session) Current() *core.Screen {
	return s.current
}

// Observe hashes the captured state, records it as a visit and completes
// the transition left by the previous action.
func (s *Session) Observe(screenshot []byte, xml string) Observation {
	xmlHash := s.hasher.XMLHash(xml)
	visualHash := s.hasher.VisualHash(screenshot)

	sc, isNew := s.repo.AddOrGet(xmlHash, visualHash, screenshot)
	if s.pending != nil {
		s.repo.AddTransition(s.pending.source, s.pending.action, sc.CompositeHash)
		s.pending = nil
	}
	s.current = sc

	visits := s.repo.VisitCount(sc.CompositeHash)
	obs := Observation{
		Screen:     sc,
		IsNew:      isNew,
		VisitCount: visits,
		History:    s.repo.ActionHistory(sc.CompositeHash),
		Looping: loop.Signal(visits, s.opts.VisitThreshold,
			s.tracker.Recent(), s.opts.RepeatThreshold, s.opts.WindowSize),
	}
	if obs.Looping {
		s.log.Warn("loop suspected", zap.Int64("screen", sc.ID),
			zap.Int("visits", visits), zap.Strings("recent", s.tracker.Recent()))
	}
	return obs
}

// Act executes req and reports success.
func (s *Session) Act(req action.Request) bool {
	return s.ActDetailed(req).Success
}

// ActDetailed executes req. Every attempted kind counts towards loop
// detection. Any attempt that reached the driver, successful or not, leaves a
// pending transition; requests rejected by validation do not.
func (s *Session) ActDetailed(req action.Request) action.Outcome {
	// Two actions without an observation in between: the first one's
	// destination was never seen.
	s.flush()

	if req == nil {
		req = action.Invalid{}
	}
	out := s.exec.ExecuteDetailed(req)
	s.tracker.Record(string(req.Kind()))

	if out.Attempts > 0 && s.current != nil {
		s.pending = &pendingTransition{source: s.current.CompositeHash, action: req.Describe()}
	}
	return out
}

// ActDescriptor decodes an action descriptor and executes it. A descriptor
// that cannot be decoded counts as a failed action.
func (s *Session) ActDescriptor(data []byte, resolve action.Resolver) bool {
	req, err := action.Decode(data, resolve)
	if err != nil {
		req = action.Invalid{Err: err}
	}
	return s.Act(req)
}

// ConsecutiveFailures reports the executor's failure streak.
func (s *Session) ConsecutiveFailures() int {
	return s.exec.ConsecutiveFailures()
}

// LastError reports the executor's last failure.
func (s *Session) LastError() string {
	return s.exec.LastError()
}

// Close records any pending transition with an unknown destination.
func (s *Session) Close() {
	s.flush()
	s.log.Info("session closed",
		zap.Int("screens", s.repo.TotalScreens()),
		zap.Int("transitions", s.repo.TotalTransitions()))
}

func (s *Session) flush() {
	if s.pending == nil {
		return
	}
	s.repo.AddTransition(s.pending.source, s.pending.action, core.UnknownDest)
	s.pending = nil
}
