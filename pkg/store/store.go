// Package store persists discovered screens and the transition log.
//
// The engine receives a Store handle and never opens or closes it; callers own
// the lifecycle.
package store

import (
	"github.com/devicelab-dev/screen-crawler/pkg/core"
)

// Writer appends screens and transitions.
type Writer interface {
	// InsertScreen stores a screen keyed by composite hash. Inserting a hash
	// that already exists is a no-op, not an error.
	InsertScreen(s core.Screen) error
	// InsertTransition appends a transition and returns its id.
	InsertTransition(t core.Transition) (int64, error)
}

// Reader loads persisted state.
type Reader interface {
	Screens() ([]core.Screen, error)
	Transitions() ([]core.Transition, error)
	CountScreens() (int, error)
	CountTransitions() (int, error)
}

// Store combines Writer and Reader into a single handle.
type Store interface {
	Writer
	Reader
	// Reset removes every screen and transition.
	Reset() error
}
