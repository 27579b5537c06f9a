package service

import (
	"sync/atomic"
	"time"
)

// ListenerCounter — сколько потоков сделок сейчас подключено.
type ListenerCounter interface {
	Connected() int
}

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	listeners     ListenerCounter
	lastCycleUnix atomic.Int64 // unix seconds
	cycles        atomic.Int64
}

func NewState(listeners ListenerCounter) *State {
	s := &State{startedAt: time.Now(), listeners: listeners}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) Listeners() int {
	if s.listeners == nil {
		return 0
	}
	return s.listeners.Connected()
}

// TouchCycle отмечает завершённый цикл; после первого сервис готов.
func (s *State) TouchCycle(t time.Time) {
	s.lastCycleUnix.Store(t.Unix())
	s.cycles.Add(1)
	s.ready.Store(true)
}

func (s *State) LastCycle() time.Time {
	u := s.lastCycleUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Cycles() int64 { return s.cycles.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
