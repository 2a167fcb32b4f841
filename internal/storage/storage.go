// Package storage exports reconciled events and price snapshots. Sinks are
// write-only; nothing is read back on startup.
package storage

import (
	"context"
	"errors"

	"burrowfeed/internal/model"
)

// Sink receives newly admitted events and oracle snapshots.
type Sink interface {
	PutEvents(ctx context.Context, events []model.Event) error
	PutPriceSnapshot(ctx context.Context, snap model.PriceSnapshot) error
}

// Multi fans writes out to every sink and joins their errors.
type Multi []Sink

func (m Multi) PutEvents(ctx context.Context, events []model.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.PutEvents(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) PutPriceSnapshot(ctx context.Context, snap model.PriceSnapshot) error {
	var errs []error
	for _, s := range m {
		if err := s.PutPriceSnapshot(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
