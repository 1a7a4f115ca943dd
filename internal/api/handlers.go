package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"consultdesk/internal/export"
	"consultdesk/internal/models"
	"consultdesk/internal/service"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleAuthSync(w http.ResponseWriter, r *http.Request, caller *models.Identity) {
	user, err := s.services.Users.Sync(r.Context(), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleAuthRegister(w http.ResponseWriter, r *http.Request, caller *models.Identity) {
	var body struct {
		Phone string `json:"phone"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.services.Users.Register(r.Context(), caller, body.Phone)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Debug().Str("user_id", caller.ID).Bool("created", created).Msg("user registration")
	writeJSON(w, http.StatusOK, map[string]string{"message": "User inserted or already exists"})
}

func (s *HTTPServer) handleAvailabilityList(w http.ResponseWriter, r *http.Request) {
	slots, err := s.services.Availability.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *HTTPServer) handleAvailabilityCreate(w http.ResponseWriter, r *http.Request, caller *models.Identity) {
	var body struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	slot, err := s.services.Availability.Create(r.Context(), caller, body.Date, body.Time)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": slot.ID})
}

func (s *HTTPServer) handleAvailabilityDelete(w http.ResponseWriter, r *http.Request, caller *models.Identity) {
	var body struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.services.Availability.Delete(r.Context(), caller, body.ID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *HTTPServer) handleConsultationCreate(w http.ResponseWriter, r *http.Request, caller *models.Identity) {
	var in models.ConsultationInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := s.services.Consultations.Create(r.Context(), caller, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": c.ID})
}

func (s *HTTPServer) handleConsultationList(w http.ResponseWriter, r *http.Request, caller *models.Identity) {
	list, _, err := s.services.Consultations.ListForCaller(r.Context(), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request, caller *models.Identity) {
	dash, err := s.services.Consultations.Dashboard(r.Context(), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *HTTPServer) handleCancelOwn(w http.ResponseWriter, r *http.Request, caller *models.Identity) {
	if err := s.services.Consultations.CancelOwn(r.Context(), caller, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *HTTPServer) handleAdminUpdate(w http.ResponseWriter, r *http.Request, caller *models.Identity) {
	var body struct {
		Status  *string `json:"status"`
		HasPaid *bool   `json:"has_paid"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := s.services.Consultations.Update(r.Context(), caller, r.PathValue("id"), service.AdminUpdate{
		Status:  body.Status,
		HasPaid: body.HasPaid,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *HTTPServer) handleAdminExport(w http.ResponseWriter, r *http.Request, caller *models.Identity) {
	list, err := s.services.Consultations.ExportAll(r.Context(), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteConsultations(&buf, list); err != nil {
		s.writeServiceError(w, r, fmt.Errorf("export consultations: %w", err))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(s.now())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleStotras(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	catalog, err := s.services.Stotras.Catalog(r.Context(), models.StotraFilter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Symptom:  q.Get("symptom"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}
