package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrDispatcherStopped is returned when submitting to a dispatcher that is no longer running.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

type eventKind int

const (
	eventPlayback eventKind = iota
	eventDisconnect
)

type dispatchEvent struct {
	kind     eventKind
	playback PlaybackEvent
	sourceID string
	reply    chan Decision
}

// Dispatcher serializes playback events from all observers through the
// arbiter and launches one cancellable recommendation computation per
// accepted track.
type Dispatcher struct {
	config  *Config
	arbiter *Arbiter
	engine  SuggestionEngine
	store   *SuggestionStore
	metrics MetricsRecorder
	logger  *zap.Logger

	events chan dispatchEvent
	done   chan struct{}

	computeMutex  sync.Mutex
	cancelCompute context.CancelFunc
	generation    uint64
	computations  sync.WaitGroup

	idleTimer *time.Timer
}

func NewDispatcher(
	config *Config,
	arbiter *Arbiter,
	engine SuggestionEngine,
	store *SuggestionStore,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *Dispatcher {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	buffer := config.App.EventBuffer
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}

	return &Dispatcher{
		config:  config,
		arbiter: arbiter,
		engine:  engine,
		store:   store,
		metrics: metrics,
		logger:  logger.Named("dispatcher"),
		events:  make(chan dispatchEvent, buffer),
		done:    make(chan struct{}),
	}
}

// Start runs the event loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info("Starting playback dispatcher",
		zap.Duration("idle_timeout", d.config.IdleTimeout()))
	defer close(d.done)
	defer d.cancelInFlight()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Playback dispatcher stopping")
			return nil
		case ev := <-d.events:
			d.process(ctx, ev)
		case <-d.idleC():
			d.expire()
		}
	}
}

// Stop cancels any in-flight computation and waits for it to finish.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.cancelInFlight()

	finished := make(chan struct{})
	go func() {
		d.computations.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitEvent hands a playback event to the event loop and waits for the
// arbiter's decision. Recommendation work happens asynchronously.
func (d *Dispatcher) SubmitEvent(ctx context.Context, ev PlaybackEvent) (Decision, error) {
	reply := make(chan Decision, 1)
	if err := d.enqueue(ctx, dispatchEvent{kind: eventPlayback, playback: ev, reply: reply}); err != nil {
		return Decision{}, err
	}

	select {
	case decision := <-reply:
		return decision, nil
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case <-d.done:
		return Decision{}, ErrDispatcherStopped
	}
}

// SourceDisconnected reports that a playback source went away.
func (d *Dispatcher) SourceDisconnected(ctx context.Context, sourceID string) error {
	return d.enqueue(ctx, dispatchEvent{kind: eventDisconnect, sourceID: sourceID})
}

func (d *Dispatcher) enqueue(ctx context.Context, ev dispatchEvent) error {
	select {
	case d.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrDispatcherStopped
	}
}

func (d *Dispatcher) process(ctx context.Context, ev dispatchEvent) {
	switch ev.kind {
	case eventPlayback:
		decision := d.arbiter.HandleEvent(ev.playback)
		d.metrics.RecordPlaybackEvent(ev.playback.SourceID, string(decision.Outcome))
		d.logger.Debug("Playback event",
			zap.String("source", ev.playback.SourceID),
			zap.String("status", ev.playback.Status.String()),
			zap.String("artist", ev.playback.Artist),
			zap.String("title", ev.playback.Title),
			zap.String("outcome", string(decision.Outcome)))

		if decision.Accepted() {
			d.logger.Info("Now playing",
				zap.String("source", decision.Track.OwnerSourceID),
				zap.String("artist", decision.Track.Artist),
				zap.String("title", decision.Track.Title))
			d.startRecommendation(ctx, decision.Track)
		}
		if ev.reply != nil {
			ev.reply <- decision
		}

	case eventDisconnect:
		if d.arbiter.SourceDisconnected(ev.sourceID) {
			d.logger.Info("Authoritative source disconnected",
				zap.String("source", ev.sourceID),
				zap.String("new_authority", d.arbiter.Authority()))
		}
	}

	d.metrics.SetActiveSources(len(d.arbiter.Sessions()))
	d.updateIdleTimer()
}

func (d *Dispatcher) startRecommendation(ctx context.Context, track NowPlayingTrack) {
	d.computeMutex.Lock()
	if d.cancelCompute != nil {
		d.cancelCompute()
	}
	d.generation++
	token := Token{Track: track.Identity(), Generation: d.generation, ID: uuid.NewString()}
	computeCtx, cancel := context.WithCancel(ctx)
	d.cancelCompute = cancel
	d.computations.Add(1)
	d.computeMutex.Unlock()

	d.store.Begin(track, token)

	go func() {
		defer d.computations.Done()
		defer cancel()

		pool, err := d.engine.Recommend(computeCtx, token.Track)
		if err != nil {
			if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
				d.logger.Debug("Recommendation superseded", zap.String("computation", token.ID))
			} else {
				d.logger.Warn("Recommendation failed", zap.String("computation", token.ID), zap.Error(err))
			}
			return
		}

		pool.Token = token
		if !d.store.Publish(pool) {
			d.logger.Debug("Discarded stale suggestion pool", zap.String("computation", token.ID))
			return
		}
		d.logger.Info("Suggestions ready",
			zap.String("artist", track.Artist),
			zap.String("title", track.Title),
			zap.String("status", string(pool.Status)),
			zap.Int("candidates", len(pool.Candidates)))
	}()
}

func (d *Dispatcher) cancelInFlight() {
	d.computeMutex.Lock()
	defer d.computeMutex.Unlock()
	if d.cancelCompute != nil {
		d.cancelCompute()
		d.cancelCompute = nil
	}
}

// updateIdleTimer arms the idle timer while nothing plays and disarms it
// as soon as any source plays again.
func (d *Dispatcher) updateIdleTimer() {
	timeout := d.config.IdleTimeout()
	if timeout <= 0 {
		return
	}

	_, active := d.store.CurrentTrack()
	if d.arbiter.AnyPlaying() || !active {
		if d.idleTimer != nil {
			d.idleTimer.Stop()
			d.idleTimer = nil
		}
		return
	}

	if d.idleTimer == nil {
		d.idleTimer = time.NewTimer(timeout)
	}
}

func (d *Dispatcher) idleC() <-chan time.Time {
	if d.idleTimer == nil {
		return nil
	}
	return d.idleTimer.C
}

// expire ends the listening session after the idle timeout.
func (d *Dispatcher) expire() {
	d.idleTimer = nil
	d.cancelInFlight()
	d.arbiter.ClearNowPlaying()
	d.store.Reset()
	d.logger.Info("Listening session expired after inactivity",
		zap.Duration("idle_timeout", d.config.IdleTimeout()))
}
