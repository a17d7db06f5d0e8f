package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Guilhem-Bonnet/page-tracker/internal/app"
	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/Guilhem-Bonnet/page-tracker/internal/httpjson"
	"github.com/go-chi/chi/v5"
)

type TrackingsHandler struct {
	trackings *app.TrackingService
}

func NewTrackingsHandler(trackings *app.TrackingService) *TrackingsHandler {
	return &TrackingsHandler{trackings: trackings}
}

func (h *TrackingsHandler) Routes(r chi.Router) {
	r.Route("/trackings", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Post("/import", h.importMany)
		r.Post("/migrate-legacy", h.migrateLegacy)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/start", h.start)
		r.Post("/{id}/stop", h.stop)
		r.Post("/{id}/refresh", h.refresh)
		r.Get("/{id}/snapshots", h.snapshots)
		r.Delete("/{id}/snapshots", h.clearSnapshots)
		r.Get("/{id}/snapshots/{file}", h.snapshotImage)
	})
}

func (h *TrackingsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req app.CreateTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.trackings.Create(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, t)
}

func (h *TrackingsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.trackings.List(r.Context(), limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, items)
}

type importResponse struct {
	Created int `json:"created"`
}

func (h *TrackingsHandler) importMany(w http.ResponseWriter, r *http.Request) {
	var reqs []app.CreateTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	n, err := h.trackings.Import(r.Context(), reqs)
	if err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, importResponse{Created: n})
}

// migrateLegacy accepte l'ancien état {isTracking, currentTrackedUrl, changeCount, snapshots}.
func (h *TrackingsHandler) migrateLegacy(w http.ResponseWriter, r *http.Request) {
	var legacy domain.LegacyState
	if err := json.NewDecoder(r.Body).Decode(&legacy); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.trackings.MigrateLegacy(r.Context(), legacy)
	if err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, t)
}

func (h *TrackingsHandler) get(w http.ResponseWriter, r *http.Request) {
	t, err := h.trackings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, t)
}

func (h *TrackingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.trackings.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, t)
}

func (h *TrackingsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.trackings.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TrackingsHandler) start(w http.ResponseWriter, r *http.Request) {
	t, err := h.trackings.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, t)
}

func (h *TrackingsHandler) stop(w http.ResponseWriter, r *http.Request) {
	t, err := h.trackings.Stop(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, t)
}

func (h *TrackingsHandler) refresh(w http.ResponseWriter, r *http.Request) {
	t, err := h.trackings.RefreshNow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, t)
}

func (h *TrackingsHandler) snapshots(w http.ResponseWriter, r *http.Request) {
	items, err := h.trackings.Snapshots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, items)
}

func (h *TrackingsHandler) clearSnapshots(w http.ResponseWriter, r *http.Request) {
	t, err := h.trackings.ClearSnapshots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, t)
}

// snapshotImage sert /{id}/snapshots/{timestamp}.png
func (h *TrackingsHandler) snapshotImage(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	ts, err := strconv.ParseInt(strings.TrimSuffix(file, ".png"), 10, 64)
	if err != nil || !strings.HasSuffix(file, ".png") {
		httpjson.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	png, err := h.trackings.SnapshotImage(r.Context(), chi.URLParam(r, "id"), ts)
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
