package service

import (
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"signal_bot/internal/models"
)

// Snapshot — итог последнего закрытого окна по символу.
type Snapshot struct {
	Delta       decimal.Decimal
	BuyVolume   decimal.Decimal
	SellVolume  decimal.Decimal
	LastUpdated time.Time // последняя сделка в окне
	At          time.Time // момент закрытия окна
}

// Registry — опубликованные дельты. Набор символов фиксирован при создании,
// каждый символ пишет только свой агрегатор, снапшот подменяется целиком.
type Registry struct {
	m map[string]*atomic.Pointer[Snapshot]
}

func NewRegistry(symbols []string) *Registry {
	r := &Registry{m: make(map[string]*atomic.Pointer[Snapshot], len(symbols))}
	for _, s := range symbols {
		r.m[s] = &atomic.Pointer[Snapshot]{}
	}
	return r
}

func (r *Registry) publish(symbol string, s Snapshot) {
	if p, ok := r.m[symbol]; ok {
		p.Store(&s)
	}
}

// Snapshot — false, пока по символу не закрылось ни одного окна.
func (r *Registry) Snapshot(symbol string) (Snapshot, bool) {
	p, ok := r.m[symbol]
	if !ok {
		return Snapshot{}, false
	}
	s := p.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// Delta — normalizedDelta последнего окна или Unavailable.
func (r *Registry) Delta(symbol string) models.Value {
	s, ok := r.Snapshot(symbol)
	if !ok {
		return models.Unavailable()
	}
	return models.Available(s.Delta)
}

func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.m))
	for s := range r.m {
		out = append(out, s)
	}
	return out
}
