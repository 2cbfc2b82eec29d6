package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

// PriceChangeEvent is delivered to listeners after a price update that
// crossed the moderate or immediate threshold.
type PriceChangeEvent struct {
	Material         model.Material
	OldPrice         decimal.Decimal
	NewPrice         decimal.Decimal
	PercentageChange decimal.Decimal
	AlertLevel       model.AlertLevel
	At               time.Time
}

// Listener handles a price change event. Returned errors are logged, never
// propagated to the caller of UpdatePrice.
type Listener func(ctx context.Context, ev PriceChangeEvent) error

type registration struct {
	id int
	fn Listener
}

type listenerSet struct {
	mu       sync.Mutex
	nextID   int
	major    []registration
	moderate []registration
}

// OnMajorChange registers fn for immediate-level changes. The returned func
// removes the registration.
func (e *Engine) OnMajorChange(fn Listener) func() {
	return e.listeners.add(&e.listeners.major, fn)
}

// OnModerateChange registers fn for moderate-level changes.
func (e *Engine) OnModerateChange(fn Listener) func() {
	return e.listeners.add(&e.listeners.moderate, fn)
}

func (s *listenerSet) add(list *[]registration, fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	*list = append(*list, registration{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, r := range *list {
				if r.id == id {
					*list = append((*list)[:i:i], (*list)[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *listenerSet) snapshot(level model.AlertLevel) []registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var src []registration
	switch level {
	case model.AlertImmediate:
		src = s.major
	case model.AlertModerate:
		src = s.moderate
	}
	return append([]registration(nil), src...)
}

func (e *Engine) notify(ctx context.Context, ev PriceChangeEvent) {
	for _, r := range e.listeners.snapshot(ev.AlertLevel) {
		if err := deliver(ctx, r.fn, ev); err != nil {
			e.logger.Warn().
				Err(err).
				Int64("material_id", ev.Material.ID).
				Str("alert_level", string(ev.AlertLevel)).
				Msg("price change listener failed")
		}
	}
}

func deliver(ctx context.Context, fn Listener, ev PriceChangeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(ctx, ev)
}
