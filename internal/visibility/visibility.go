// Package visibility reports whether the consuming host is in the foreground.
package visibility

import "sync/atomic"

// Source reports host visibility.
type Source interface {
	Visible() bool
}

// Always is a Source that is always visible.
type Always struct{}

func (Always) Visible() bool { return true }

// Toggle is a Source switched by the host, visible by default.
type Toggle struct {
	hidden atomic.Bool
}

func NewToggle() *Toggle {
	return &Toggle{}
}

func (t *Toggle) Visible() bool { return !t.hidden.Load() }

func (t *Toggle) Hide() { t.hidden.Store(true) }

func (t *Toggle) Show() { t.hidden.Store(false) }
