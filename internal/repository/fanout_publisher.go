package repository

import (
	"context"
	"errors"
	"fmt"

	"RailScan/internal/domain/models"
	domrepo "RailScan/internal/domain/repository"
)

// FanoutPublisher delivers results to every sink. A failing sink does not
// stop the others; all failures are joined.
type FanoutPublisher struct {
	sinks []namedSink
}

type namedSink struct {
	name string
	pub  domrepo.SignalPublisher
}

var _ domrepo.SignalPublisher = (*FanoutPublisher)(nil)

func NewFanoutPublisher() *FanoutPublisher {
	return &FanoutPublisher{}
}

// Add registers a sink. Nil sinks are ignored.
func (f *FanoutPublisher) Add(name string, pub domrepo.SignalPublisher) *FanoutPublisher {
	if pub != nil {
		f.sinks = append(f.sinks, namedSink{name: name, pub: pub})
	}
	return f
}

func (f *FanoutPublisher) Len() int { return len(f.sinks) }

func (f *FanoutPublisher) PublishResults(ctx context.Context, results []models.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	var errs []error
	for _, s := range f.sinks {
		if err := s.pub.PublishResults(ctx, results); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// StorePublisher adapts a ResultStore to the publisher port.
type StorePublisher struct {
	Store domrepo.ResultStore
}

func (p StorePublisher) PublishResults(ctx context.Context, results []models.ScanResult) error {
	return p.Store.SaveResults(ctx, results)
}
