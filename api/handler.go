package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/benz9527/xdispatch/dispatch"
	"github.com/benz9527/xdispatch/xlog"
)

const MessageParam = "message"

type Handler struct {
	gateway *dispatch.Gateway
	logger  xlog.XLogger
}

func NewHandler(gateway *dispatch.Gateway, logger xlog.XLogger) *Handler {
	return &Handler{
		gateway: gateway,
		logger:  logger,
	}
}

// PublishRing handles POST /api/messages?message=
func (h *Handler) PublishRing(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.publish(w, r, dispatch.RouteRing)
}

// PublishQueue handles POST /api/messages/queue?message=
func (h *Handler) PublishQueue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.publish(w, r, dispatch.RouteQueue)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request, route dispatch.Route) {
	query := r.URL.Query()
	if !query.Has(MessageParam) {
		writeText(w, http.StatusBadRequest, "Required request parameter 'message' is not present")
		return
	}
	ack, err := h.gateway.Publish(r.Context(), route, query.Get(MessageParam))
	if err != nil {
		h.logger.WarnContext(r.Context(), "message not accepted",
			zap.String("route", route.String()),
			zap.Error(err),
		)
		writeText(w, http.StatusServiceUnavailable, ack)
		return
	}
	writeText(w, http.StatusOK, ack)
}

type healthResponse struct {
	Status string `json:"status"`
	Ring   string `json:"ring,omitempty"`
	Queue  string `json:"queue,omitempty"`
}

// Livez handles GET /livez, it never checks the dispatchers.
func (h *Handler) Livez(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// Readyz handles GET /readyz, ready while both dispatchers run.
func (h *Handler) Readyz(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	resp := healthResponse{
		Status: "ok",
		Ring:   runState(h.gateway.Ring().IsStopped()),
		Queue:  runState(h.gateway.Queue().IsStopped()),
	}
	status := http.StatusOK
	if !h.gateway.Ready() {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func runState(stopped bool) string {
	if stopped {
		return "stopped"
	}
	return "running"
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
