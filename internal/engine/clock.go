// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import "time"

// Timer is a cancellable one-shot timer.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so the state machine can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// timerSlot holds one named suspension point. A firing is honored only if the
// slot was not cancelled or re-armed since it was armed.
type timerSlot struct {
	name  string
	timer Timer
	gen   uint64
}

func (s *timerSlot) pending() bool { return s.timer != nil }

func (s *timerSlot) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// arm (re)starts the slot. fn runs on the control goroutine.
func (e *Engine) arm(s *timerSlot, d time.Duration, fn func()) {
	s.cancel()
	gen := s.gen
	s.timer = e.clock.AfterFunc(d, func() {
		e.mb.post(func() {
			if s.gen != gen || s.timer == nil {
				return
			}
			s.timer = nil
			fn()
		})
	})
}
