package hardware

import "time"

// buzzerStep is one on/off segment of a beep pattern.
type buzzerStep struct {
	on       bool
	duration time.Duration
}

// BuzzerScheduler implements the queued beep-pattern effect scheduler
// spec.md §4.1 describes abstractly ("the buzzer has an internal effect
// scheduler; callers must invoke tick() each loop iteration to advance
// effects"). It sequences on/off segments without blocking the main
// loop, following the ticker-driven `select` shape of the teacher's
// nfc.NFCReader.worker() loop (nfc/reader.go) generalized from
// device-reconnect ticks to beep-pattern ticks.
//
// A GPIO/PWM driver embeds a BuzzerScheduler, supplies a toggle
// function, and calls Tick() once per main-loop iteration; the actual
// GPIO bit-banging the toggle function performs is out of scope
// (spec.md §1).
type BuzzerScheduler struct {
	clock  Clock
	toggle func(on bool)

	steps    []buzzerStep
	stepIdx  int
	deadline time.Time
	active   bool
}

// NewBuzzerScheduler creates a scheduler that calls toggle(on) whenever
// the buzzer output should change state. clock lets tests drive the
// schedule deterministically.
func NewBuzzerScheduler(clock Clock, toggle func(on bool)) *BuzzerScheduler {
	return &BuzzerScheduler{clock: clock, toggle: toggle}
}

func cannedPattern(kind BeepKind) []buzzerStep {
	const unit = 80 * time.Millisecond
	switch kind {
	case BeepSuccess:
		return []buzzerStep{{true, unit}, {false, unit}}
	case BeepWarning:
		return []buzzerStep{{true, unit}, {false, unit}, {true, unit}, {false, unit}}
	case BeepError:
		return []buzzerStep{{true, 3 * unit}, {false, unit}}
	case BeepAlert:
		return []buzzerStep{{true, unit}, {false, unit}, {true, unit}, {false, unit}, {true, unit}, {false, unit}}
	default:
		return nil
	}
}

// Beep queues one of the canned tone patterns, replacing any in-flight
// pattern.
func (s *BuzzerScheduler) Beep(kind BeepKind) {
	s.start(cannedPattern(kind))
}

// BeepStart queues count repeats of a single on/off cycle at the given
// duration; freqHz is accepted for interface parity with real PWM
// buzzers (frequency selection is a driver concern, out of scope here)
// and otherwise unused by the scheduler itself.
func (s *BuzzerScheduler) BeepStart(freqHz int, duration time.Duration, count int) {
	if count <= 0 {
		count = 1
	}
	steps := make([]buzzerStep, 0, count*2)
	for i := 0; i < count; i++ {
		steps = append(steps, buzzerStep{true, duration}, buzzerStep{false, duration})
	}
	s.start(steps)
}

// BeepStop cancels any in-flight pattern and silences the buzzer
// immediately.
func (s *BuzzerScheduler) BeepStop() {
	s.steps = nil
	s.stepIdx = 0
	s.active = false
	s.toggle(false)
}

func (s *BuzzerScheduler) start(steps []buzzerStep) {
	s.steps = steps
	s.stepIdx = 0
	s.active = len(steps) > 0
	if !s.active {
		return
	}
	s.toggle(steps[0].on)
	s.deadline = s.clock.Now().Add(steps[0].duration)
}

// Tick advances the effect scheduler; call once per main-loop
// iteration.
func (s *BuzzerScheduler) Tick() {
	if !s.active {
		return
	}
	if s.clock.Now().Before(s.deadline) {
		return
	}
	s.stepIdx++
	if s.stepIdx >= len(s.steps) {
		s.active = false
		s.toggle(false)
		return
	}
	step := s.steps[s.stepIdx]
	s.toggle(step.on)
	s.deadline = s.clock.Now().Add(step.duration)
}
