package wallpaper

import (
	"time"

	"github.com/bnema/wallmon/internal/compositor"
	"github.com/bnema/wallmon/internal/config"
)

// sessionState tracks where a session is in its display lifecycle.
type sessionState int

const (
	stateUninitialized sessionState = iota
	stateLoading
	stateDisplayed
	stateTerminated
)

func (s sessionState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateLoading:
		return "loading"
	case stateDisplayed:
		return "displayed"
	case stateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// maxLoadFailures bounds consecutive pick/decode retries before a
// session holds its last good image until the next scheduled tick.
const maxLoadFailures = 3

// session is the per-output state owned by the scheduler goroutine.
// All fields are touched only from that goroutine.
type session struct {
	output  compositor.Output
	surface compositor.Surface
	entry   config.Entry
	state   sessionState

	// gen invalidates in-flight work. It is bumped whenever the
	// source changes or the session terminates, so a decode result or
	// timer fire carrying an older generation is discarded.
	gen uint64

	current  string  // path of the displayed image
	buf      *Buffer // cache reference for the displayed image
	poolSize int     // size of the pool at the last pick
	pickedAt time.Time
	timer    *time.Timer
	failures int

	// pending marks a reconcile that arrived mid-Loading. It is
	// re-evaluated once the in-flight load resolves.
	pending bool
}

func (s *session) cancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// wantsTimer reports whether the session should rotate: a finite
// duration and a pool where rotation can actually change the image.
// A pool of exactly one never rotates; an empty pool keeps the timer
// so the directory is re-scanned on cadence.
func (s *session) wantsTimer() bool {
	return s.entry.Duration > 0 && s.poolSize != 1
}
