package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/Guilhem-Bonnet/page-tracker/internal/app"
	"github.com/Guilhem-Bonnet/page-tracker/internal/buildinfo"
	"github.com/Guilhem-Bonnet/page-tracker/internal/httpjson"
	"github.com/rs/zerolog/hlog"
)

const defaultRequestTimeout = 30 * time.Second

// busStats est implémentée par memorybus (abonnés SSE, événements perdus).
type busStats interface {
	Subscribers() int
	Dropped() uint64
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if st, ok := s.bus.(busStats); ok {
		resp["subscribers"] = st.Subscribers()
		resp["droppedEvents"] = st.Dropped()
	}
	if s.loadLimiter != nil {
		resp["loads"] = s.loadLimiter.Stats()
	}
	httpjson.Write(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, buildinfo.Current())
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Info().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}

// writeAppError traduit les erreurs applicatives en statut HTTP.
func writeAppError(w http.ResponseWriter, err error) {
	var coded *app.CodedError
	switch {
	case errors.Is(err, app.ErrNotFound):
		httpjson.WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrConflict) && errors.As(err, &coded):
		httpjson.WriteCodedError(w, http.StatusConflict, coded.Code, coded.Message)
	case errors.Is(err, app.ErrConflict):
		httpjson.WriteError(w, http.StatusConflict, "this url is already being tracked")
	case errors.As(err, &coded):
		httpjson.WriteCodedError(w, http.StatusBadRequest, coded.Code, coded.Error())
	default:
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
