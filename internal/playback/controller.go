package playback

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/speakerlens/speakerlens/internal/metrics"
)

// Controller plays bounded time ranges [start, end) of an audio source on a
// media element, stopping automatically when the playhead reaches the range
// end. At most one session is active at any time across the whole system.
//
// All failures degrade to a clean stopped state: no dangling session, watcher,
// or temporary handle, and no error surfaced beyond a log line.
type Controller struct {
	el   Element
	open OpenSourceFunc
	log  zerolog.Logger

	mu      sync.Mutex
	session *session
}

// session is one active bounded playback. The watcher unsubscribe and the
// handle release belong to it and fire exactly once, on whichever path ends
// the session first.
type session struct {
	rangeKey    string
	release     func()
	unsubscribe func()
}

// RangeKey derives the session key for a (start, end) range.
func RangeKey(start, end int64) string {
	return fmt.Sprintf("%d-%d", start, end)
}

func NewController(el Element, open OpenSourceFunc, log zerolog.Logger) *Controller {
	return &Controller{el: el, open: open, log: log}
}

// Play starts bounded playback of [start, end) of source. If the identical
// range is already playing, the call toggles it off and starts nothing. Any
// other active session is superseded: stopped and fully released before the
// new one starts. With no source or no element the call is a silent no-op.
func (c *Controller) Play(source string, start, end int64) {
	if c.el == nil || c.open == nil || source == "" {
		return
	}
	key := RangeKey(start, end)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.rangeKey == key {
		c.teardownLocked()
		return
	}
	c.teardownLocked()

	handle, release, err := c.open(source)
	if err != nil {
		c.log.Warn().Err(err).Str("source", source).Msg("could not open playback source")
		return
	}
	if err := c.el.SetSource(handle); err != nil {
		release()
		c.log.Warn().Err(err).Msg("element rejected source")
		return
	}

	c.el.Seek(start)
	if err := c.el.Play(); err != nil {
		// Treated exactly like an explicit Stop: position reset, handle
		// released, nothing active.
		c.el.Pause()
		c.el.Seek(0)
		release()
		c.log.Warn().Err(err).Str("range", key).Msg("playback start failed")
		return
	}

	sess := &session{rangeKey: key, release: release}
	c.session = sess
	sess.unsubscribe = c.el.Subscribe(func(pos int64) {
		if pos >= end {
			c.stopSession(sess)
		}
	})

	metrics.PlaybackSessionsTotal.Inc()
	metrics.PlaybackActive.Set(1)
	c.log.Debug().Str("range", key).Msg("playback session started")
}

// Stop unconditionally ends the current session, if any. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// State returns the active session's range key and whether anything is
// playing. The active-session set always has cardinality 0 or 1.
func (c *Controller) State() (rangeKey string, playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return "", false
	}
	return c.session.rangeKey, true
}

// stopSession ends sess if it is still the current session. The boundary
// watcher funnels through here, so a session that already ended (superseded,
// explicitly stopped) is never torn down twice.
func (c *Controller) stopSession(sess *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != sess {
		return
	}
	c.teardownLocked()
}

// teardownLocked halts playback, resets position, detaches the watcher, and
// releases the temporary handle. Caller holds mu.
func (c *Controller) teardownLocked() {
	if c.session == nil {
		return
	}
	sess := c.session
	c.session = nil

	c.el.Pause()
	c.el.Seek(0)
	if sess.unsubscribe != nil {
		sess.unsubscribe()
	}
	if sess.release != nil {
		sess.release()
	}

	metrics.PlaybackActive.Set(0)
	c.log.Debug().Str("range", sess.rangeKey).Msg("playback session stopped")
}
