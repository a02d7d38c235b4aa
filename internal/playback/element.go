package playback

import (
	"sync"
	"time"
)

// Element is the playback primitive: an addressable media element that plays
// a temporary streamable handle. Position values are milliseconds.
type Element interface {
	// SetSource points the element at a streamable handle, replacing any
	// previous source.
	SetSource(handle string) error

	// Seek moves the playhead to the given position.
	Seek(ms int64)

	// Play starts playback from the current position.
	Play() error

	// Pause halts playback, keeping the current position.
	Pause()

	// Position returns the current playhead position.
	Position() int64

	// Subscribe registers a position-change observer and returns its
	// unsubscribe func. Observers are invoked outside any element lock.
	Subscribe(fn func(positionMS int64)) (unsubscribe func())
}

// OpenSourceFunc establishes a temporary streamable handle to an audio source.
// The release func tears the handle down; it must be called exactly once when
// the session using it ends.
type OpenSourceFunc func(source string) (handle string, release func(), err error)

// ClockElement is a headless media element whose playhead advances in wall
// time while playing. Position notifications go out on a fixed tick. It backs
// the server-side playback state that clients mirror.
type ClockElement struct {
	tick time.Duration

	mu      sync.Mutex
	source  string
	base    int64 // playhead position at epoch
	epoch   time.Time
	playing bool
	done    chan struct{}
	subs    map[uint64]func(int64)
	nextID  uint64
}

// NewClockElement creates a clock-driven element notifying at the given tick
// interval.
func NewClockElement(tick time.Duration) *ClockElement {
	if tick <= 0 {
		tick = 200 * time.Millisecond
	}
	return &ClockElement{
		tick: tick,
		subs: make(map[uint64]func(int64)),
	}
}

func (e *ClockElement) SetSource(handle string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.source = handle
	e.base = 0
	return nil
}

func (e *ClockElement) Seek(ms int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.base = ms
	e.epoch = time.Now()
}

func (e *ClockElement) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing {
		return nil
	}
	e.playing = true
	e.epoch = time.Now()
	e.done = make(chan struct{})
	go e.tickLoop(e.done)
	return nil
}

func (e *ClockElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// stopLocked freezes the playhead and stops the tick loop. Caller holds mu.
func (e *ClockElement) stopLocked() {
	if !e.playing {
		return
	}
	e.base = e.positionLocked()
	e.playing = false
	close(e.done)
	e.done = nil
}

func (e *ClockElement) Position() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *ClockElement) positionLocked() int64 {
	if !e.playing {
		return e.base
	}
	return e.base + time.Since(e.epoch).Milliseconds()
}

func (e *ClockElement) Subscribe(fn func(int64)) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// tickLoop emits position notifications until the session the loop belongs to
// is stopped. Observers run without the element lock held so they may call
// back into the element.
func (e *ClockElement) tickLoop(done chan struct{}) {
	t := time.NewTicker(e.tick)
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case <-t.C:
			e.mu.Lock()
			pos := e.positionLocked()
			fns := make([]func(int64), 0, len(e.subs))
			for _, fn := range e.subs {
				fns = append(fns, fn)
			}
			e.mu.Unlock()

			for _, fn := range fns {
				fn(pos)
			}
		}
	}
}
