package web

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-contrib/sse"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/feed"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/render"
)

const (
	eventLoading = "loading"
	eventEmpty   = "empty"
	eventCards   = "cards"
	eventError   = "error"

	streamBuffer      = 8
	firstFrameTimeout = 2 * time.Second
)

// feedView is what the feed partial needs for its first paint.
type feedView struct {
	StreamURL string
	Loading   bool
	Cards     []render.CardView
	Empty     feed.EmptyState
}

// streamContainer turns controller renders into SSE events. Pushes never block
// the controller: when the reader falls behind the oldest frame is dropped,
// since every frame carries the full feed.
type streamContainer struct {
	views  *renderer
	events chan sse.Event
	logger *zap.Logger
}

func newStreamContainer(views *renderer, logger *zap.Logger) *streamContainer {
	return &streamContainer{views: views, events: make(chan sse.Event, streamBuffer), logger: logger}
}

func (c *streamContainer) ShowLoading() {
	c.push(sse.Event{Event: eventLoading, Data: ""})
}

func (c *streamContainer) ShowEmpty(e feed.EmptyState) {
	c.pushFragment(eventEmpty, "empty", e)
}

func (c *streamContainer) ShowCards(cards []render.CardView) {
	c.pushFragment(eventCards, "cards", cards)
}

func (c *streamContainer) pushFragment(event, partial string, data any) {
	html, err := c.views.fragment(partial, data)
	if err != nil {
		c.logger.Error("feed fragment render failed", zap.String("partial", partial), zap.Error(err))
		return
	}
	c.push(sse.Event{Event: event, Data: html})
}

func (c *streamContainer) push(ev sse.Event) {
	for {
		select {
		case c.events <- ev:
			return
		default:
		}
		select {
		case <-c.events:
		default:
		}
	}
}

// frameContainer keeps the first settled render, for server-side first paint.
type frameContainer struct {
	first chan feedView
}

func (c *frameContainer) ShowLoading() {}

func (c *frameContainer) ShowEmpty(e feed.EmptyState) {
	c.offer(feedView{Empty: e})
}

func (c *frameContainer) ShowCards(cards []render.CardView) {
	c.offer(feedView{Cards: cards})
}

func (c *frameContainer) offer(v feedView) {
	select {
	case c.first <- v:
	default:
	}
}

// firstFrame mounts a short-lived feed for page and waits for its first
// snapshot. ok is false when none arrived in time.
func (s *Server) firstFrame(ctx context.Context, page feed.Page) (feedView, bool) {
	ctx, cancel := context.WithTimeout(ctx, firstFrameTimeout)
	defer cancel()

	view := &frameContainer{first: make(chan feedView, 1)}
	ctrl := feed.NewController(s.deps.Catalog, view, s.logger)
	defer ctrl.Unmount()
	if err := ctrl.Mount(ctx, page); err != nil {
		return feedView{}, false
	}
	select {
	case v := <-view.first:
		return v, true
	case <-ctx.Done():
		return feedView{}, false
	}
}

func streamURL(category domain.Category, query string, limit int) string {
	u := "/feed/stream"
	sep := "?"
	if category != "" {
		u += sep + "category=" + string(category)
		sep = "&"
	}
	if query != "" {
		u += sep + "q=" + url.QueryEscape(query)
		sep = "&"
	}
	if limit > 0 {
		u += sep + "limit=" + strconv.Itoa(limit)
	}
	return u
}

// handleFeedStream serves one live feed over server-sent events. The feed
// controller lives exactly as long as the connection.
func (s *Server) handleFeedStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := domain.Category(q.Get("category"))
	if category != "" && !category.Valid() {
		http.Error(w, "unknown category", http.StatusNotFound)
		return
	}
	page := feed.CategoryPage(category, q.Get("q"))
	if category == "" {
		page = feed.HomePage()
		page.Query = q.Get("q")
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		page.Limit = n
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	// The server write timeout must not cut a live stream.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sse.Event{}.WriteContentType(w)
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	view := newStreamContainer(s.views, s.logger)
	ctrl := feed.NewController(s.deps.Catalog, view, s.logger)
	defer ctrl.Unmount()

	if err := ctrl.Mount(ctx, page); err != nil {
		_ = sse.Encode(w, sse.Event{Event: eventError, Data: "Could not load listings."})
		flusher.Flush()
		return
	}
	s.logger.Debug("feed stream opened", zap.String("category", string(category)))

	heartbeat := time.NewTicker(s.opts.FeedHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("feed stream closed", zap.String("category", string(category)))
			return
		case ev := <-view.events:
			if err := sse.Encode(w, ev); err != nil {
				s.logger.Debug("feed stream write failed", zap.Error(err))
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
