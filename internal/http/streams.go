package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"pointbox/customer-web/internal/content"
)

// eventStream writes server-sent events and flushes each one.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &eventStream{w: w, flusher: flusher}, true
}

func (e *eventStream) send(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

type slideEvent struct {
	Index int           `json:"index"`
	Slide content.Slide `json:"slide"`
}

// handleBannerStream announces the hero slides, then the index of the
// visible slide every rotation interval until the client goes away.
func (s *Server) handleBannerStream(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	banners, err := b.API.GetWebBanners(r.Context())
	if err != nil {
		s.logger.WarnContext(r.Context(), "banner stream unavailable", "error", err)
	}
	slides := content.HeroSlides(banners)

	stream, ok := newEventStream(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}
	if err := stream.send("slides", slides); err != nil {
		return
	}

	carousel := content.NewCarousel(len(slides))
	ticks, stop := s.newTick(s.cfg.BannerRotateInterval)
	defer stop()
	carousel.Run(r.Context(), ticks, func(index int) {
		if err := stream.send("slide", slideEvent{Index: index, Slide: slides[index]}); err != nil {
			s.logger.DebugContext(r.Context(), "banner stream write failed", "error", err)
		}
	})
}

// handlePromotionStream sends the special events with fresh countdowns on
// every countdown interval.
func (s *Server) handlePromotionStream(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	banners, err := b.API.GetWebBanners(r.Context())
	if err != nil {
		s.logger.WarnContext(r.Context(), "promotion stream unavailable", "error", err)
	}
	promotions := content.Promotions(banners, s.now())

	stream, ok := newEventStream(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}
	if err := stream.send("promotions", promotions); err != nil {
		return
	}

	ticks, stop := s.newTick(s.cfg.CountdownInterval)
	defer stop()
	content.RunCountdowns(r.Context(), promotions, ticks, func(updated []content.Promotion) {
		if err := stream.send("promotions", updated); err != nil {
			s.logger.DebugContext(r.Context(), "promotion stream write failed", "error", err)
		}
	})
}
