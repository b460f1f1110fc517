package compiler

import (
	"errors"
	"sync"
	"time"

	"github.com/opal-lang/msci/runtime/script"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("background compiler closed")

// ResultHandler receives each finished background compile. err is an
// InternalError when the compile hit a defect.
type ResultHandler func(name string, res *Result, err error)

// Background compiles scripts while they are being edited. Each submission
// restarts the script's debounce timer; when the timer fires the latest
// lines are compiled on a fresh clone of the script. At most one compile
// per script runs at a time, and a compile in flight is never cancelled:
// edits that arrive meanwhile are compiled once it finishes.
type Background struct {
	snap    Snapshot
	delay   time.Duration
	handler ResultHandler
	opts    []Option

	mu     sync.Mutex
	jobs   map[string]*job
	closed bool
	wg     sync.WaitGroup
}

type job struct {
	file    *script.File
	lines   []string
	timer   *time.Timer
	running bool
	again   bool // lines changed while running
}

// NewBackground creates a background compiler. handler is called from the
// compiling goroutine.
func NewBackground(snap Snapshot, delay time.Duration, handler ResultHandler, opts ...Option) *Background {
	return &Background{
		snap:    snap,
		delay:   delay,
		handler: handler,
		opts:    opts,
		jobs:    make(map[string]*job),
	}
}

// Submit schedules a compile of lines for f. f itself is never modified;
// results refer to a clone.
func (b *Background) Submit(f *script.File, lines []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	j, ok := b.jobs[f.Name]
	if !ok {
		j = &job{}
		b.jobs[f.Name] = j
	}
	j.file = f
	j.lines = append([]string(nil), lines...)

	if j.timer == nil {
		name := f.Name
		j.timer = time.AfterFunc(b.delay, func() { b.fire(name) })
	} else {
		j.timer.Reset(b.delay)
	}
	return nil
}

func (b *Background) fire(name string) {
	b.mu.Lock()
	j := b.jobs[name]
	if b.closed || j == nil {
		b.mu.Unlock()
		return
	}
	if j.running {
		j.again = true
		b.mu.Unlock()
		return
	}
	j.running = true
	b.wg.Add(1)
	b.mu.Unlock()

	go b.run(name, j)
}

func (b *Background) run(name string, j *job) {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		f, lines := j.file.Clone(), j.lines
		b.mu.Unlock()

		res, err := Compile(f, lines, b.snap, b.opts...)
		if b.handler != nil {
			b.handler(name, res, err)
		}

		b.mu.Lock()
		if !j.again || b.closed {
			j.running = false
			b.mu.Unlock()
			return
		}
		j.again = false
		b.mu.Unlock()
	}
}

// Close stops pending timers and waits for running compiles to finish.
func (b *Background) Close() {
	b.mu.Lock()
	b.closed = true
	for _, j := range b.jobs {
		if j.timer != nil {
			j.timer.Stop()
		}
	}
	b.mu.Unlock()
	b.wg.Wait()
}
