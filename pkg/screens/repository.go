// Package screens owns the screen graph of a crawl run: discovered screens,
// the transition log, per-run visit counts and per-screen action history.
package screens

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/screen-crawler/pkg/core"
	"github.com/devicelab-dev/screen-crawler/pkg/similarity"
	"github.com/devicelab-dev/screen-crawler/pkg/store"
)

// Options configures a Repository.
type Options struct {
	// ScreenshotsDir receives one PNG per new screen.
	ScreenshotsDir string
	// SimilarityThreshold is the max Hamming distance for merging screens.
	// Negative disables similarity matching.
	SimilarityThreshold int
}

// Repository adds or merges screens and records transitions.
//
// It is not safe for concurrent use; one crawl step completes before the next.
type Repository struct {
	store store.Store
	opts  Options
	log   *zap.Logger

	screens map[string]*core.Screen // by composite hash
	byID    map[int64]*core.Screen
	nextID  int64

	visits  map[string]int
	history map[string]*actionSet
}

// New creates an empty Repository. Call Load to resume from the store.
func New(st store.Store, opts Options, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{
		store:   st,
		opts:    opts,
		log:     log.Named("screens"),
		screens: make(map[string]*core.Screen),
		byID:    make(map[int64]*core.Screen),
		nextID:  1,
		visits:  make(map[string]int),
		history: make(map[string]*actionSet),
	}
}

// Load replaces the in-memory graph with the persisted screens and rebuilds
// action history from persisted transitions. Visit counts start empty.
func (r *Repository) Load() error {
	screens, err := r.store.Screens()
	if err != nil {
		return fmt.Errorf("load screens: %w", err)
	}

	r.screens = make(map[string]*core.Screen, len(screens))
	r.byID = make(map[int64]*core.Screen, len(screens))
	r.visits = make(map[string]int)
	r.history = make(map[string]*actionSet)

	var maxID int64
	for i := range screens {
		sc := screens[i]
		r.screens[sc.CompositeHash] = &sc
		r.byID[sc.ID] = &sc
		if sc.ID > maxID {
			maxID = sc.ID
		}
	}
	r.nextID = maxID + 1

	transitions, err := r.store.Transitions()
	if err != nil {
		return fmt.Errorf("load transitions: %w", err)
	}
	skipped := 0
	for _, t := range transitions {
		if _, ok := r.screens[t.SourceHash]; !ok {
			r.log.Warn("transition from unknown screen, skipping history",
				zap.Int64("transition", t.ID), zap.String("source", t.SourceHash))
			skipped++
			continue
		}
		r.historyFor(t.SourceHash).add(t.Action)
	}

	r.log.Info("loaded state",
		zap.Int("screens", len(r.screens)),
		zap.Int("transitions", len(transitions)),
		zap.Int("skipped", skipped),
		zap.Int64("nextId", r.nextID))
	return nil
}

// AddOrGet returns the screen for the observed hashes, creating it when the
// state is neither known exactly nor similar to a known screen.
// Every call counts as one visit to the returned screen.
func (r *Repository) AddOrGet(xmlHash, visualHash string, screenshot []byte) (*core.Screen, bool) {
	exact := core.CompositeHash(xmlHash, visualHash)

	target := exact
	similar, found := similarity.FindSimilar(visualHash, r.candidates(), r.opts.SimilarityThreshold)
	if found {
		target = similar
	}
	r.visits[target]++

	if found {
		sc := r.screens[similar]
		if similar != exact {
			r.log.Debug("merged into similar screen",
				zap.Int64("screen", sc.ID), zap.String("visualHash", visualHash))
		}
		return sc, false
	}
	if sc, ok := r.screens[exact]; ok {
		return sc, false
	}

	id := r.nextID
	r.nextID++

	sc := &core.Screen{
		ID:             id,
		XMLHash:        xmlHash,
		VisualHash:     visualHash,
		CompositeHash:  exact,
		ScreenshotPath: r.saveScreenshot(id, visualHash, screenshot),
		CreatedAt:      time.Now(),
	}
	r.screens[exact] = sc
	r.byID[id] = sc
	r.historyFor(exact)

	if err := r.store.InsertScreen(*sc); err != nil {
		r.log.Error("persist screen", zap.Int64("screen", id), zap.Error(err))
	}
	r.log.Info("new screen", zap.Int64("screen", id), zap.String("hash", exact))
	return sc, true
}

// AddTransition records an action taken from source. An empty dest is stored
// as UNKNOWN_DEST. History is deduplicated; the persisted log is not.
func (r *Repository) AddTransition(source, action, dest string) {
	if source == "" {
		r.log.Warn("transition without source hash ignored", zap.String("action", action))
		return
	}
	if dest == "" {
		dest = core.UnknownDest
	}

	r.historyFor(source).add(action)

	t := core.Transition{SourceHash: source, Action: action, DestHash: dest, CreatedAt: time.Now()}
	if _, err := r.store.InsertTransition(t); err != nil {
		r.log.Error("persist transition", zap.String("source", source), zap.Error(err))
		return
	}
	r.log.Debug("transition", zap.String("source", source), zap.String("action", action), zap.String("dest", dest))
}

// VisitCount returns how often hash was observed in this run.
func (r *Repository) VisitCount(hash string) int {
	return r.visits[hash]
}

// ActionHistory returns the distinct actions already tried from hash, oldest first.
func (r *Repository) ActionHistory(hash string) []string {
	if h, ok := r.history[hash]; ok {
		return h.list()
	}
	return []string{}
}

// TotalScreens returns the persisted screen count, or -1 on store error.
func (r *Repository) TotalScreens() int {
	n, err := r.store.CountScreens()
	if err != nil {
		r.log.Error("count screens", zap.Error(err))
		return -1
	}
	return n
}

// TotalTransitions returns the persisted transition count, or -1 on store error.
func (r *Repository) TotalTransitions() int {
	n, err := r.store.CountTransitions()
	if err != nil {
		r.log.Error("count transitions", zap.Error(err))
		return -1
	}
	return n
}

// Screen looks up a screen by composite hash.
func (r *Repository) Screen(hash string) (*core.Screen, bool) {
	sc, ok := r.screens[hash]
	return sc, ok
}

// ScreenByID looks up a screen by id.
func (r *Repository) ScreenByID(id int64) (*core.Screen, bool) {
	sc, ok := r.byID[id]
	return sc, ok
}

// KnownScreens returns the similarity candidates for every known screen.
func (r *Repository) KnownScreens() []similarity.Candidate {
	return r.candidates()
}

func (r *Repository) candidates() []similarity.Candidate {
	out := make([]similarity.Candidate, 0, len(r.screens))
	for hash, sc := range r.screens {
		out = append(out, similarity.Candidate{ScreenID: sc.ID, CompositeHash: hash, VisualHash: sc.VisualHash})
	}
	return out
}

func (r *Repository) historyFor(hash string) *actionSet {
	h, ok := r.history[hash]
	if !ok {
		h = newActionSet()
		r.history[hash] = h
	}
	return h
}

// saveScreenshot writes the PNG for a new screen. Failures are logged and
// yield the save_error path; the screen is still recorded.
func (r *Repository) saveScreenshot(id int64, visualHash string, data []byte) string {
	dir := r.opts.ScreenshotsDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, fmt.Sprintf("screen_%d_%s.png", id, visualHash))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.log.Error("create screenshots dir", zap.String("dir", dir), zap.Error(core.ErrPersistence.WithCause(err)))
		return core.SaveError
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.log.Error("save screenshot", zap.String("path", path), zap.Error(core.ErrPersistence.WithCause(err)))
		return core.SaveError
	}
	return path
}
