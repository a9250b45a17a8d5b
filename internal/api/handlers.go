// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ManuGH/tunewatch/internal/catalog"
	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

type watchRequest struct {
	Channel string `json:"channel"`
}

type favoriteRequest struct {
	Name string `json:"name"`
}

type channelsResponse struct {
	Count    int              `json:"count"`
	Channels []catalog.Record `json:"channels"`
}

type favoritesResponse struct {
	Favorites []string `json:"favorites"`
	Slots     []string `json:"slots"`
}

type mutationResponse struct {
	Changed bool `json:"changed"`
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.cfg.Version})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleChannels(w http.ResponseWriter, _ *http.Request) {
	records := s.channels.Records()
	if records == nil {
		records = []catalog.Record{}
	}
	writeJSON(w, http.StatusOK, channelsResponse{Count: len(records), Channels: records})
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	opts := s.cfg.ScanDefaults
	if err := decodeBody(r, &opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ctrl.StartScan(r.Context(), opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info().
		Str(log.FieldEvent, "api.scan_started").
		Str("frontend_type", opts.FrontendType).
		Str("country", opts.Country).
		Msg("scan requested")
	writeJSON(w, http.StatusAccepted, s.ctrl.Status())
}

func (s *Server) handleStopScan(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.StopScan(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.ctrl.Status())
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.watch(w, r, req.Channel)
}

func (s *Server) handleWatchSlot(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: slot must be a number", errBadBody))
		return
	}
	channel, err := s.favorites.Slot(n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.watch(w, r, channel)
}

func (s *Server) watch(w http.ResponseWriter, r *http.Request, channel string) {
	if err := s.ctrl.Watch(r.Context(), channel); err != nil {
		s.writeError(w, r, err)
		return
	}
	st := s.ctrl.Status()
	logger := log.WithComponentFromContext(log.ContextWithSessionID(r.Context(), st.SessionID), "api")
	logger.Info().
		Str(log.FieldEvent, "api.watch_accepted").
		Str(log.FieldChannel, channel).
		Msg("watch requested")
	writeJSON(w, http.StatusAccepted, st)
}

func (s *Server) handleStopWatching(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.StopWatching(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleListFavorites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, favoritesResponse{
		Favorites: s.favorites.All(),
		Slots:     s.favorites.Slots(),
	})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	// Only channels a watch can resolve may become favorites.
	if name := strings.TrimSpace(req.Name); name != "" {
		if _, ok := s.channels.Find(name); !ok {
			s.writeError(w, r, fmt.Errorf("%w: %q", errUnknownChannel, name))
			return
		}
	}
	added, err := s.favorites.Add(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if added {
		code = http.StatusCreated
	}
	writeJSON(w, code, mutationResponse{Changed: added})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	removed, err := s.favorites.Remove(r.Context(), chi.URLParam(r, "channel"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Changed: removed})
}

// handleLive relays the monitored transport stream until the client goes away.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.stream == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "unavailable", Detail: "no stream monitor"})
		return
	}
	data, cancel := s.stream.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "video/mp2t")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Debug().Str(log.FieldEvent, "live.client_attached").Msg("live stream client attached")

	for {
		select {
		case <-r.Context().Done():
			return
		case chunk, ok := <-data:
			if !ok {
				return
			}
			if _, err := w.Write(chunk); err != nil {
				logger.Debug().Err(err).Str(log.FieldEvent, "live.client_gone").Msg("live stream client gone")
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
