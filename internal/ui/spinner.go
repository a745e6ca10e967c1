package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var frames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

// Spinner displays an animated progress line. A nil *Spinner is a no-op,
// so callers can skip it in quiet mode without branching.
type Spinner struct {
	out  io.Writer
	tick time.Duration

	mu   sync.Mutex
	msg  string
	done chan struct{}
	wg   sync.WaitGroup
}

func NewSpinner(out io.Writer) *Spinner {
	return &Spinner{out: out, tick: 80 * time.Millisecond}
}

// Start begins the animation with msg. Starting a running spinner only
// replaces the message.
func (s *Spinner) Start(msg string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msg = msg
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.done)
}

// Update changes the message. It matches platform.ProgressFunc.
func (s *Spinner) Update(msg string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Stop halts the animation, waits for the last frame and clears the line.
func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done == nil {
		return
	}

	close(done)
	s.wg.Wait()
	fmt.Fprint(s.out, "\r\033[K")
}

func (s *Spinner) run(done <-chan struct{}) {
	defer s.wg.Done()

	t := time.NewTicker(s.tick)
	defer t.Stop()

	for i := 0; ; i++ {
		select {
		case <-done:
			return
		case <-t.C:
			s.mu.Lock()
			msg := s.msg
			s.mu.Unlock()
			fmt.Fprintf(s.out, "\r\033[K%c %s", frames[i%len(frames)], msg)
		}
	}
}
