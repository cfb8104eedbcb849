/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package statsserver exposes the daemon's counters and current survivor
// set over HTTP as JSON, mirroring sptp/stats's FetchStats/FetchCounters
// pair: "/" returns the survivor set, "/counters" returns the counter map.
// cmd/ntpcorectl is the read-only client of this surface.
package statsserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/ntpcore/internal/coordinator"
	"github.com/facebook/ntpcore/internal/stats"
	"github.com/facebook/ntpcore/ntp/selection"
)

// QualityEntry is one peer's composite quality score and running offset
// standard deviation, as maintained by stats.PeerStats.
type QualityEntry struct {
	Score        float64 `json:"score"`
	OffsetStddev float64 `json:"offset_stddev"`
	HasSamples   bool    `json:"has_samples"`
}

// Server serves the daemon's live counters, survivor set, and per-peer
// quality scores.
type Server struct {
	counters    *stats.Counters
	coordinator *coordinator.Coordinator
	peerStats   map[string]*stats.PeerStats
}

// New returns a Server ready to ListenAndServe. peerStats is keyed by the
// same peer ID used in coordinator snapshots and selection.SurvivorTuple.
func New(counters *stats.Counters, coord *coordinator.Coordinator, peerStats map[string]*stats.PeerStats) *Server {
	return &Server{counters: counters, coordinator: coord, peerStats: peerStats}
}

// ListenAndServe starts the HTTP monitoring endpoint on addr (e.g. ":4269").
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSurvivors)
	mux.HandleFunc("/counters", s.handleCounters)
	mux.HandleFunc("/quality", s.handleQuality)
	log.Infof("starting stats http server on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleSurvivors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.coordinator.Result())
}

func (s *Server) handleCounters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.counters.Copy())
}

func (s *Server) handleQuality(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string]QualityEntry, len(s.peerStats))
	for id, ps := range s.peerStats {
		score, stddev, ok := ps.Quality()
		out[id] = QualityEntry{Score: score, OffsetStddev: stddev, HasSamples: ok}
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	js, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(js); err != nil {
		log.Errorf("failed to reply: %v", err)
	}
}

// FetchSurvivors fetches the survivor set from a running daemon's stats
// endpoint, for use by cmd/ntpcorectl.
func FetchSurvivors(baseURL string) ([]selection.SurvivorTuple, error) {
	var out []selection.SurvivorTuple
	if err := fetchJSON(baseURL, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchCounters fetches the counter map from a running daemon's stats
// endpoint, for use by cmd/ntpcorectl.
func FetchCounters(baseURL string) (map[string]int64, error) {
	counters := make(map[string]int64)
	if err := fetchJSON(fmt.Sprintf("%s/counters", baseURL), &counters); err != nil {
		return nil, err
	}
	return counters, nil
}

// FetchQuality fetches the per-peer composite quality scores from a
// running daemon's stats endpoint, for use by cmd/ntpcorectl.
func FetchQuality(baseURL string) (map[string]QualityEntry, error) {
	quality := make(map[string]QualityEntry)
	if err := fetchJSON(fmt.Sprintf("%s/quality", baseURL), &quality); err != nil {
		return nil, err
	}
	return quality, nil
}

func fetchJSON(url string, v any) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}
