package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"djfriend/internal/core"
)

const (
	maxEventBodySize = 16 << 10
	linkScope        = "link"
)

type api struct {
	deps   Deps
	logger *zap.Logger
}

type eventRequest struct {
	SourceID   string `json:"source_id"`
	Artist     string `json:"artist"`
	Title      string `json:"title"`
	DurationMs int64  `json:"duration_ms"`
	Status     string `json:"status"`
}

type decisionResponse struct {
	Outcome       core.Outcome          `json:"outcome"`
	Accepted      bool                  `json:"accepted"`
	Authoritative bool                  `json:"authoritative"`
	NowPlaying    *core.NowPlayingTrack `json:"now_playing,omitempty"`
}

type pageResponse struct {
	core.Page
	Message string `json:"message"`
}

type nowPlayingResponse struct {
	NowPlaying *core.NowPlayingTrack `json:"now_playing"`
	Message    string                `json:"message"`
}

type linkResponse struct {
	core.LinkResult
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *api) postEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBodySize)).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "error.bad_event")
		return
	}

	status, err := core.ParsePlaybackStatus(req.Status)
	if err != nil || strings.TrimSpace(req.SourceID) == "" {
		a.writeError(w, http.StatusBadRequest, "error.bad_event")
		return
	}

	decision, err := a.deps.Events.SubmitEvent(r.Context(), core.PlaybackEvent{
		SourceID: req.SourceID,
		Artist:   req.Artist,
		Title:    req.Title,
		Duration: time.Duration(req.DurationMs) * time.Millisecond,
		Status:   status,
	})
	if err != nil {
		a.logger.Error("Failed to submit playback event", zap.Error(err))
		a.writeError(w, http.StatusServiceUnavailable, "error.generic")
		return
	}

	resp := decisionResponse{
		Outcome:       decision.Outcome,
		Accepted:      decision.Accepted(),
		Authoritative: decision.Authoritative,
	}
	if decision.Accepted() {
		track := decision.Track
		resp.NowPlaying = &track
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) deleteSource(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Events.SourceDisconnected(r.Context(), r.PathValue("id")); err != nil {
		a.logger.Error("Failed to disconnect source", zap.Error(err))
		a.writeError(w, http.StatusServiceUnavailable, "error.generic")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) getNowPlaying(w http.ResponseWriter, _ *http.Request) {
	page := a.deps.Pages.GetPage(0, 1)

	message := a.deps.Localizer.T("status.listening")
	if page.NowPlaying != nil {
		message = a.deps.Localizer.T("status.now_playing", core.FallbackText(page.NowPlaying.Identity()))
	}
	writeJSON(w, http.StatusOK, nowPlayingResponse{NowPlaying: page.NowPlaying, Message: message})
}

func (a *api) getSuggestions(w http.ResponseWriter, r *http.Request) {
	offset, okOffset := queryInt(r, "offset")
	size, okSize := queryInt(r, "size")
	if !okOffset || !okSize {
		a.writeError(w, http.StatusBadRequest, "error.generic")
		return
	}

	page := a.deps.Pages.GetPage(offset, size)
	writeJSON(w, http.StatusOK, pageResponse{Page: page, Message: a.pageMessage(page)})
}

func (a *api) pageMessage(page core.Page) string {
	l := a.deps.Localizer
	switch {
	case page.NowPlaying == nil:
		return l.T("status.listening")
	case page.Status == core.PoolPending:
		return l.T("status.finding", core.FallbackText(page.Owner))
	case page.Status == core.PoolNoSeedMatch:
		return l.T("status.no_seed_match", core.FallbackText(page.Owner))
	case page.Total == 0:
		return l.T("status.no_suggestions")
	default:
		return l.T("status.suggested")
	}
}

func (a *api) getLink(w http.ResponseWriter, r *http.Request) {
	if a.deps.Links == nil {
		a.writeError(w, http.StatusServiceUnavailable, "error.generic")
		return
	}

	track := core.TrackIdentity{
		Artist: strings.TrimSpace(r.URL.Query().Get("artist")),
		Title:  strings.TrimSpace(r.URL.Query().Get("title")),
	}
	if track.Artist == "" || track.Title == "" {
		a.writeError(w, http.StatusBadRequest, "error.missing_params")
		return
	}

	client := clientKey(r)
	if a.deps.Limiter != nil && !a.deps.Limiter.Allow(linkScope, client) {
		a.writeError(w, http.StatusTooManyRequests, "error.rate_limited")
		return
	}

	result, err := a.deps.Links.Resolve(r.Context(), client, track)
	if err != nil {
		if errors.Is(err, core.ErrCancelled) {
			// Superseded by a newer request from the same client.
			a.writeError(w, http.StatusConflict, "error.generic")
			return
		}
		a.writeError(w, http.StatusInternalServerError, "error.generic")
		return
	}

	message := a.deps.Localizer.T("link.resolved", result.URL)
	if !result.Resolved {
		message = a.deps.Localizer.T("link.not_found", result.Fallback, result.SearchURL)
	}
	writeJSON(w, http.StatusOK, linkResponse{LinkResult: result, Message: message})
}

func (a *api) writeError(w http.ResponseWriter, status int, key string) {
	writeJSON(w, status, errorResponse{Error: a.deps.Localizer.T(key)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
