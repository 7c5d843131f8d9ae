package spotify

import (
	"context"
	"time"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"djfriend/internal/core"
)

// PlayerStateReader reads the playback state of one account.
type PlayerStateReader interface {
	PlayerState(ctx context.Context, opts ...spotify.RequestOption) (*spotify.PlayerState, error)
}

// EventSink receives observed playback changes.
type EventSink interface {
	SubmitEvent(ctx context.Context, ev core.PlaybackEvent) (core.Decision, error)
	SourceDisconnected(ctx context.Context, sourceID string) error
}

// Observer polls a player and forwards every change in track or status as a
// PlaybackEvent. A player with nothing loaded is reported as disconnected.
type Observer struct {
	player   PlayerStateReader
	sink     EventSink
	sourceID string
	interval time.Duration
	logger   *zap.Logger

	connected bool
	last      core.PlaybackEvent
}

func NewObserver(config *core.SpotifyConfig, player PlayerStateReader, sink EventSink, logger *zap.Logger) *Observer {
	interval := time.Duration(config.PollIntervalSecs) * time.Second
	if interval <= 0 {
		interval = core.DefaultSpotifyPollSecs * time.Second
	}
	sourceID := config.SourceID
	if sourceID == "" {
		sourceID = core.DefaultSpotifySourceID
	}

	return &Observer{
		player:   player,
		sink:     sink,
		sourceID: sourceID,
		interval: interval,
		logger:   logger.Named("observer"),
	}
}

// Run polls until ctx is done, then reports the source as disconnected.
func (o *Observer) Run(ctx context.Context) error {
	o.logger.Info("Starting playback observer",
		zap.String("source", o.sourceID),
		zap.Duration("interval", o.interval))

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		o.poll(ctx)

		select {
		case <-ctx.Done():
			if o.connected {
				_ = o.sink.SourceDisconnected(context.WithoutCancel(ctx), o.sourceID)
			}
			return nil
		case <-ticker.C:
		}
	}
}

func (o *Observer) poll(ctx context.Context) {
	state, err := o.player.PlayerState(ctx)
	if err != nil {
		if ctx.Err() == nil {
			o.logger.Warn("Failed to read player state", zap.Error(err))
		}
		return
	}

	ev, ok := eventFromState(o.sourceID, state)
	if !ok {
		o.disconnect(ctx)
		return
	}
	if o.connected && ev == o.last {
		return
	}

	decision, err := o.sink.SubmitEvent(ctx, ev)
	if err != nil {
		o.logger.Warn("Failed to submit playback event", zap.Error(err))
		return
	}
	o.connected = true
	o.last = ev

	o.logger.Debug("Submitted playback event",
		zap.String("artist", ev.Artist),
		zap.String("title", ev.Title),
		zap.String("status", ev.Status.String()),
		zap.String("outcome", string(decision.Outcome)))
}

func (o *Observer) disconnect(ctx context.Context) {
	if !o.connected {
		return
	}
	if err := o.sink.SourceDisconnected(ctx, o.sourceID); err != nil {
		o.logger.Warn("Failed to report disconnect", zap.Error(err))
		return
	}
	o.connected = false
	o.last = core.PlaybackEvent{}
	o.logger.Info("Player has no active item, source disconnected", zap.String("source", o.sourceID))
}

func eventFromState(sourceID string, state *spotify.PlayerState) (core.PlaybackEvent, bool) {
	if state == nil || state.Item == nil {
		return core.PlaybackEvent{}, false
	}

	artist := UnknownArtist
	if len(state.Item.Artists) > 0 {
		artist = state.Item.Artists[0].Name
	}

	status := core.StatusPaused
	if state.Playing {
		status = core.StatusPlaying
	}

	return core.PlaybackEvent{
		SourceID: sourceID,
		Artist:   artist,
		Title:    state.Item.Name,
		Duration: time.Duration(state.Item.Duration) * time.Millisecond,
		Status:   status,
	}, true
}
