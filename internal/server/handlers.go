package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/lead-master/internal/model"
	"github.com/sells-group/lead-master/internal/report"
	"github.com/sells-group/lead-master/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.LeadFilter{
		Sector: q.Get("sector"),
		Status: model.LeadStatus(q.Get("status")),
		Limit:  intParam(q.Get("limit"), 100),
		Offset: intParam(q.Get("offset"), 0),
	}

	leads, err := s.store.ListLeads(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	lead, err := s.store.GetLead(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "lead not found"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.SignalFilter{
		Start:   q.Get("start"),
		End:     q.Get("end"),
		Company: q.Get("company"),
		Limit:   intParam(q.Get("limit"), 200),
		Offset:  intParam(q.Get("offset"), 0),
	}

	signals, err := s.store.ListSignals(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signals)
}

// handleMap returns located signals as a GeoJSON FeatureCollection,
// defaulting to the last 30 days.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	now := time.Now().UTC()
	if end == "" {
		end = now.Format("20060102")
	}
	if start == "" {
		start = now.AddDate(0, 0, -30).Format("20060102")
	}

	signals, err := s.store.LatestSignalPerCompany(r.Context(), start, end)
	if err != nil {
		writeError(w, err)
		return
	}

	fc := geojson.FeatureCollection{}
	for _, sig := range signals {
		if !sig.HasLocation() {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       sig.ID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{*sig.Longitude, *sig.Latitude}),
			Properties: map[string]interface{}{
				"company":  sig.Company,
				"headline": sig.Headline,
				"date":     sig.Date,
				"url":      sig.URL,
				"summary":  sig.Summary,
			},
		})
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(&fc); err != nil {
		zap.L().Error("encode geojson", zap.Error(err))
	}
}

func (s *Server) handlePermits(w http.ResponseWriter, r *http.Request) {
	if s.permits == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "permit feed not configured"})
		return
	}

	alerts, err := s.permits.Fetch(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if alerts == nil {
		alerts = []model.PermitAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// handleScan kicks off a scan in the background and returns 202. A
// second request while one is running gets 409.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scanner not configured"})
		return
	}
	if !s.scanning.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "scan already running"})
		return
	}

	go func() {
		defer s.scanning.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if _, err := s.scanner.Run(ctx); err != nil {
			zap.L().Error("background scan failed", zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scan started"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	leads, err := s.store.ListLeads(r.Context(), store.LeadFilter{
		Sector: r.URL.Query().Get("sector"),
		Status: model.LeadStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(time.Now())+`"`)
	if err := report.Write(w, format, leads); err != nil {
		zap.L().Error("export failed", zap.Error(err))
	}
}

func intParam(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
