package engine

import (
	"errors"
	"io"
	"sync"
)

var errOutputLimit = errors.New("engine output limit exceeded")

// outputBudget is a byte allowance shared by the stdout and stderr writers of one process.
type outputBudget struct {
	mu        sync.Mutex
	remaining int64
	exceeded  bool
}

func newOutputBudget(limit int64) *outputBudget {
	return &outputBudget{remaining: limit}
}

func (b *outputBudget) take(n int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exceeded || n > b.remaining {
		b.exceeded = true
		return false
	}
	b.remaining -= n
	return true
}

// Exceeded reports whether any writer went over the allowance.
func (b *outputBudget) Exceeded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exceeded
}

// writer returns an io.Writer that forwards to w while the allowance lasts.
// A write that does not fit fails as a whole, so no partial document is kept.
func (b *outputBudget) writer(w io.Writer) io.Writer {
	return &cappedWriter{budget: b, w: w}
}

type cappedWriter struct {
	budget *outputBudget
	w      io.Writer
}

func (c *cappedWriter) Write(p []byte) (int, error) {
	if !c.budget.take(int64(len(p))) {
		return 0, errOutputLimit
	}
	return c.w.Write(p)
}
