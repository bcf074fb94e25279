package service

import (
	"sync/atomic"
	"time"
)

// State — живость процесса для /readyz и /healthz. Пишут раннер и WS-стрим.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected   atomic.Bool
	lastCycleUnix atomic.Int64 // unix ms
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

// TouchTick — отметка завершённого цикла оценки.
func (s *State) TouchTick(t time.Time) { s.lastCycleUnix.Store(t.UnixMilli()) }

func (s *State) LastTick() time.Time {
	u := s.lastCycleUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.UnixMilli(u)
}

// Stalled — циклов не было дольше maxAge (или ещё ни одного).
func (s *State) Stalled(now time.Time, maxAge time.Duration) bool {
	last := s.LastTick()
	return last.IsZero() || now.Sub(last) > maxAge
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
