package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/conduit-lang/metadata-validator/internal/document"
	"github.com/conduit-lang/metadata-validator/internal/state"
	"github.com/conduit-lang/metadata-validator/internal/store"
	"github.com/conduit-lang/metadata-validator/internal/validator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CacheHeader reports whether a report came from the cache
const CacheHeader = "X-Cache"

type kindSummary struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Presence string `json:"presence"`
	Fields   int    `json:"fields"`
}

type reportResponse struct {
	*validator.Report
	Summary state.Summary `json:"summary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"kinds":  s.validator.Validator().Registry().Count(),
	})
}

func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	registry := s.validator.Validator().Registry()

	kinds := make([]kindSummary, 0, registry.Count())
	for _, name := range registry.Kinds() {
		entry, _ := registry.Get(name)
		summary := kindSummary{
			Name:     name,
			Presence: entry.Presence.String(),
			Fields:   len(entry.Fields),
		}
		if entry.Type != nil {
			summary.Type = entry.Type.Name()
		}
		kinds = append(kinds, summary)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"kinds": kinds})
}

func (s *Server) handleKindFields(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	shapes, ok := s.validator.Validator().Registry().FieldShapes(kind)
	if !ok {
		writeError(w, http.StatusNotFound, &validator.UnknownKindError{Kind: kind})
		return
	}

	fields := make(map[string]string, len(shapes))
	for name, d := range shapes {
		fields[name] = d.String()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind":   kind,
		"fields": fields,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	report, cached, err := s.validator.Validate(r.Context(), kind, doc)
	if err != nil {
		s.writeValidationError(w, err)
		return
	}

	if cached {
		w.Header().Set(CacheHeader, "HIT")
	} else {
		w.Header().Set(CacheHeader, "MISS")
		if s.reports != nil {
			if err := s.reports.Save(r.Context(), report); err != nil {
				s.logger.Error("failed to save report",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Stringer("report_id", report.ID),
					zap.Error(err))
			}
		}
	}

	writeJSON(w, http.StatusOK, reportResponse{Report: report, Summary: report.Summary()})
}

func (s *Server) handleValidateCore(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	core, err := s.validator.Validator().ValidateCore(kind, doc)
	if err != nil {
		s.writeValidationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind": kind,
		"core": core,
	})
}

func (s *Server) handleValidateFields(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	fields, err := s.validator.Validator().ValidateFields(kind, doc)
	if err != nil {
		s.writeValidationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind":    kind,
		"fields":  fields,
		"summary": state.Summarize(fields),
	})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	report := s.validator.Validator().ValidateMetadata(doc)
	if s.reports != nil {
		if err := s.reports.SaveMetadata(r.Context(), report); err != nil {
			s.logger.Error("failed to save metadata reports",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid report id: %w", err))
		return
	}

	report, err := s.reports.Get(r.Context(), id)
	if errors.Is(err, store.ErrReportNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.logger.Error("failed to load report", zap.Stringer("report_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("failed to load report"))
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{Report: report, Summary: report.Summary()})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %q", raw))
			return
		}
		limit = n
	}

	reports, err := s.reports.List(r.Context(), r.URL.Query().Get("kind"), limit)
	if err != nil {
		s.logger.Error("failed to list reports", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("failed to list reports"))
		return
	}
	if reports == nil {
		reports = []*validator.Report{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

// readDocument decodes a JSON or YAML request body. On failure it has already
// written a 400 response.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (document.Document, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err))
		return nil, false
	}

	doc, err := document.Parse("request body", body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return doc, true
}

func (s *Server) writeValidationError(w http.ResponseWriter, err error) {
	if errors.Is(err, validator.ErrUnknownKind) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.logger.Error("validation failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err)
}
