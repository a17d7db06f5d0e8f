package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/Guilhem-Bonnet/page-tracker/internal/app"
	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/Guilhem-Bonnet/page-tracker/internal/httpjson"
	"github.com/go-chi/chi/v5"
)

const maxMessageBody = 64 << 10

// MessagesHandler accepte les messages typés ({"action": "START_TRACKING", ...})
// et les passe au Dispatcher.
type MessagesHandler struct {
	dispatcher *app.Dispatcher
}

func NewMessagesHandler(dispatcher *app.Dispatcher) *MessagesHandler {
	return &MessagesHandler{dispatcher: dispatcher}
}

func (h *MessagesHandler) Routes(r chi.Router) {
	r.Post("/messages", h.post)
}

type messageAck struct {
	Action     domain.Action `json:"action"`
	TrackingID string        `json:"trackingId"`
	Status     string        `json:"status"`
}

func (h *MessagesHandler) post(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBody))
	if err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}
	msg, err := domain.DecodeMessage(body)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownAction) {
			httpjson.WriteCodedError(w, http.StatusBadRequest, "unknown_action", err.Error())
			return
		}
		httpjson.WriteCodedError(w, http.StatusBadRequest, "invalid_message", err.Error())
		return
	}
	if err := h.dispatcher.Dispatch(r.Context(), msg); err != nil {
		writeAppError(w, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, messageAck{Action: msg.Action(), TrackingID: msg.TargetID(), Status: "accepted"})
}
