package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/FairForge/webpixels/internal/admin"
	"github.com/FairForge/webpixels/internal/bridge"
	"github.com/FairForge/webpixels/internal/merchant"
	"github.com/FairForge/webpixels/internal/pixel"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": s.deps.Version,
		"uptime":  time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Store.Ping(ctx); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, fmt.Errorf("store unavailable: %w", err))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func (s *Server) handleGetPixel(w http.ResponseWriter, r *http.Request) {
	m := merchant.MustFromContext(r.Context())

	view, err := s.deps.Admin.Load(r.Context(), m.Store)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]*admin.View{"pixel": view})
}

func (s *Server) handleSubmitPixel(w http.ResponseWriter, r *http.Request) {
	m := merchant.MustFromContext(r.Context())

	form, err := decodeForm(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	res := s.deps.Admin.Submit(r.Context(), m.Store, form)
	status := http.StatusOK
	if !res.OK {
		status = http.StatusUnprocessableEntity
	}
	s.respondJSON(w, status, res)
}

func decodeForm(r *http.Request) (admin.Form, error) {
	var form admin.Form

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			return form, fmt.Errorf("decode form: %w", err)
		}
		return form, nil
	}

	if err := r.ParseForm(); err != nil {
		return form, fmt.Errorf("parse form: %w", err)
	}
	form = admin.Form{
		Intent:   r.PostFormValue("intent"),
		Name:     r.PostFormValue("name"),
		Facebook: r.PostFormValue("facebook"),
		TikTok:   r.PostFormValue("tiktok"),
		Snapchat: r.PostFormValue("snapchat"),
		Google:   r.PostFormValue("google"),
	}
	return form, nil
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	store := chi.URLParam(r, "store")

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	ev, err := pixel.DecodeEvent(raw)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx := bridge.WithVisitor(r.Context(), visitorFromRequest(r))
	sent, err := s.deps.Events.Handle(ctx, store, ev)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if sent == nil {
		sent = []pixel.Dispatch{}
	}
	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"dispatched": sent,
	})
}

func (s *Server) maxBodyBytes() int64 {
	if n := s.config.Ingest.MaxBodyBytes; n > 0 {
		return n
	}
	return 64 << 10
}

func visitorFromRequest(r *http.Request) bridge.Visitor {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	source := r.Header.Get("X-Source-URL")
	if source == "" {
		source = r.Referer()
	}
	return bridge.Visitor{
		ClientID:  r.Header.Get("X-Client-ID"),
		SourceURL: source,
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}
