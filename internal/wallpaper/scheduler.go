// Package wallpaper implements wallpaper selection, caching and the
// per-output rotation scheduler. All session state is owned by a
// single scheduler goroutine; compositor events, config reloads,
// timer fires and decode results reach it as messages, so for any one
// output every transition is serialized.
package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/bnema/wallmon/internal/compositor"
	"github.com/bnema/wallmon/internal/config"
	"github.com/bnema/wallmon/internal/logger"
)

type message interface{}

// timerFired is posted by a session's rotation timer.
type timerFired struct {
	name string
	gen  uint64
}

// loadResult carries a decode worker's outcome back to the scheduler.
type loadResult struct {
	name string
	gen  uint64
	path string
	buf  *Buffer
	err  error
}

// Scheduler drives every output session: it creates sessions as
// outputs appear, rotates their wallpapers on schedule and reconciles
// them against config reloads.
type Scheduler struct {
	conn  compositor.Conn
	store *config.Store
	cache *Cache
	rng   *rand.Rand

	sessions map[string]*session
	msgs     chan message
	reloads  chan config.Table
	quit     chan struct{}
}

// NewScheduler wires a scheduler to a compositor connection, config
// store and image cache.
func NewScheduler(conn compositor.Conn, store *config.Store, cache *Cache) *Scheduler {
	return &Scheduler{
		conn:     conn,
		store:    store,
		cache:    cache,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions: make(map[string]*session),
		msgs:     make(chan message, 32),
		reloads:  make(chan config.Table, 1),
		quit:     make(chan struct{}),
	}
}

// Reconcile notifies the scheduler that the config store was reloaded.
// previous is the table that was current before the reload, used to
// diff which outputs are affected.
func (s *Scheduler) Reconcile(previous config.Table) {
	select {
	case s.reloads <- previous:
	case <-s.quit:
	}
}

// Run is the scheduler loop. It returns nil on context cancellation
// and the connection error when the compositor link is lost.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.shutdown()

	for _, out := range s.conn.Outputs() {
		s.addOutput(out)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.conn.Done():
			if err := s.conn.Err(); err != nil {
				return err
			}
			return errors.New("compositor connection closed")
		case ev := <-s.conn.Events():
			s.handleOutputEvent(ev)
		case previous := <-s.reloads:
			s.reconcileAll(previous)
		case m := <-s.msgs:
			switch msg := m.(type) {
			case timerFired:
				s.handleTimer(msg)
			case loadResult:
				s.handleLoad(msg)
			}
		}
	}
}

// post delivers a message to the scheduler loop unless it has shut down.
func (s *Scheduler) post(m message) {
	select {
	case s.msgs <- m:
	case <-s.quit:
	}
}

func (s *Scheduler) shutdown() {
	close(s.quit)
	for name, sess := range s.sessions {
		delete(s.sessions, name)
		s.terminate(sess)
	}
}

func (s *Scheduler) addOutput(out compositor.Output) {
	name := out.Name
	if _, exists := s.sessions[name]; exists {
		return
	}
	entry, ok := s.store.Current().Resolve(name)
	if !ok {
		logger.Warn("no wallpaper configured", "output", name)
		return
	}

	surface, err := s.conn.CreateSurface(name)
	if err != nil {
		logger.Error("failed to create surface", "output", name, "error", err)
		return
	}

	sess := &session{output: out, surface: surface, entry: entry}
	s.sessions[name] = sess
	logger.Info("session started", "output", name, "source", entry.Path)
	s.startLoad(sess)
}

func (s *Scheduler) removeOutput(name string) {
	sess := s.sessions[name]
	if sess == nil {
		return
	}
	delete(s.sessions, name)
	s.terminate(sess)
	logger.Info("session terminated", "output", name)
}

// terminate releases everything a session holds. The generation bump
// makes any in-flight decode or timer fire for it a no-op.
func (s *Scheduler) terminate(sess *session) {
	sess.cancelTimer()
	sess.gen++
	sess.state = stateTerminated
	if sess.surface != nil {
		sess.surface.Destroy()
		sess.surface = nil
	}
	s.cache.Release(sess.buf)
	sess.buf = nil
}

// startLoad re-resolves the pool, picks the next image and offloads
// its decode to a worker. Only the decode leaves the scheduler
// goroutine, so pool state and the pick stay serialized.
func (s *Scheduler) startLoad(sess *session) {
	name := sess.output.Name

	pool, err := Resolve(sess.entry)
	if err != nil {
		sess.poolSize = 0
		s.stall(sess, err)
		return
	}
	sess.poolSize = len(pool)

	pick := pool.Pick(s.rng, sess.current)
	sess.state = stateLoading
	gen := sess.gen

	go func() {
		buf, err := s.cache.Acquire(pick)
		s.post(loadResult{name: name, gen: gen, path: pick, buf: buf, err: err})
	}()
}

// stall keeps the session on its last good image (or blank if none)
// after a failure. The timer stays armed so directory sources are
// re-scanned on cadence. A reconcile deferred while the failed load
// was in flight is applied here, so a config edit is never lost to a
// session that ends up with no timer.
func (s *Scheduler) stall(sess *session, err error) {
	logger.Error("wallpaper unavailable", "output", sess.output.Name, "error", err)
	if sess.buf != nil {
		sess.state = stateDisplayed
	} else {
		sess.state = stateUninitialized
	}
	sess.failures = 0
	s.armTimer(sess)
	s.resolvePending(sess)
}

func (s *Scheduler) armTimer(sess *session) {
	sess.cancelTimer()
	if !sess.wantsTimer() {
		return
	}
	name := sess.output.Name
	gen := sess.gen
	sess.timer = time.AfterFunc(sess.entry.Duration, func() {
		s.post(timerFired{name: name, gen: gen})
	})
}

func (s *Scheduler) handleTimer(msg timerFired) {
	sess := s.sessions[msg.name]
	if sess == nil || sess.gen != msg.gen || sess.state == stateLoading {
		return
	}
	logger.Debug("rotation timer fired", "output", msg.name)
	s.startLoad(sess)
}

func (s *Scheduler) handleLoad(msg loadResult) {
	sess := s.sessions[msg.name]
	if sess == nil || sess.gen != msg.gen {
		// The session terminated or was reconfigured while the decode
		// ran. The result is discarded, never presented.
		s.cache.Release(msg.buf)
		return
	}

	if msg.err != nil {
		sess.failures++
		logger.Warn("wallpaper load failed", "output", msg.name,
			"path", msg.path, "attempt", sess.failures, "error", msg.err)
		if sess.failures < maxLoadFailures {
			s.startLoad(sess)
			return
		}
		logger.Error("giving up after repeated load failures", "output", msg.name)
		s.stall(sess, msg.err)
		return
	}

	if err := s.present(sess, msg.buf); err != nil {
		s.cache.Release(msg.buf)
		logger.Error("failed to present wallpaper", "output", msg.name,
			"path", msg.path, "error", err)
		s.stall(sess, err)
		return
	}

	s.cache.Release(sess.buf)
	sess.buf = msg.buf
	sess.current = msg.path
	sess.pickedAt = time.Now()
	sess.failures = 0
	sess.state = stateDisplayed
	logger.Info("wallpaper set", "output", msg.name, "path", msg.path)
	s.armTimer(sess)
	s.resolvePending(sess)
}

// present renders the buffer to the surface's current size and
// commits. If the geometry moved between render and commit the
// scale/crop step is re-run once against fresh geometry; the decode
// is never repeated.
func (s *Scheduler) present(sess *session, buf *Buffer) error {
	width, height := sess.surface.Size()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("surface for %s has no usable size", sess.output.Name)
	}

	pix := Render(buf.Image, width, height)
	err := sess.surface.Commit(pix, width, height)
	if errors.Is(err, compositor.ErrStaleGeometry) {
		width, height = sess.surface.Size()
		pix = Render(buf.Image, width, height)
		err = sess.surface.Commit(pix, width, height)
	}
	return err
}

// reconcileAll applies a config reload to every affected session.
// It runs on the scheduler goroutine, so it completes before any
// timer armed afterwards can fire with stale configuration.
func (s *Scheduler) reconcileAll(previous config.Table) {
	current := s.store.Current()

	for name, sess := range s.sessions {
		changed := config.Changed(previous, current, name)
		if !changed && sess.buf != nil {
			continue
		}
		if sess.state == stateLoading {
			// Deferred until the in-flight load resolves so the
			// session never races itself into two concurrent picks.
			sess.pending = true
			continue
		}
		if changed {
			s.reconcileSession(sess)
			continue
		}
		// A session with nothing on screen retries its source even on
		// a no-op reload; sessions with an image keep it untouched.
		s.startLoad(sess)
	}

	// Outputs that previously had no usable config may have one now.
	for _, out := range s.conn.Outputs() {
		if _, ok := s.sessions[out.Name]; !ok {
			s.addOutput(out)
		}
	}
}

func (s *Scheduler) resolvePending(sess *session) {
	if !sess.pending {
		return
	}
	sess.pending = false
	s.reconcileSession(sess)
}

func (s *Scheduler) reconcileSession(sess *session) {
	name := sess.output.Name

	entry, ok := s.store.Current().Resolve(name)
	if !ok {
		logger.Warn("output no longer configured, keeping current image", "output", name)
		sess.cancelTimer()
		sess.entry = config.Entry{}
		return
	}

	old := sess.entry
	sess.entry = entry

	if old.Path != entry.Path {
		logger.Info("wallpaper source changed", "output", name, "source", entry.Path)
		sess.cancelTimer()
		sess.gen++
		sess.failures = 0
		s.startLoad(sess)
		return
	}
	if old.Duration != entry.Duration {
		logger.Info("rotation interval changed", "output", name, "duration", entry.Duration)
		// Re-armed from now, not from the original pick time.
		s.armTimer(sess)
	}
}

func (s *Scheduler) handleOutputEvent(ev compositor.OutputEvent) {
	switch ev.Kind {
	case compositor.OutputAdded:
		s.addOutput(ev.Output)
	case compositor.OutputRemoved:
		s.removeOutput(ev.Output.Name)
	case compositor.OutputChanged:
		s.outputChanged(ev.Output)
	}
}

// outputChanged re-presents the current image at the new geometry
// without a new pick or decode.
func (s *Scheduler) outputChanged(out compositor.Output) {
	sess := s.sessions[out.Name]
	if sess == nil {
		return
	}
	sess.output = out
	if sess.state != stateDisplayed || sess.buf == nil {
		return
	}
	if err := s.present(sess, sess.buf); err != nil {
		logger.Error("failed to redraw after geometry change", "output", out.Name, "error", err)
	}
}
