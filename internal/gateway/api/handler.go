package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"denm-gateway/internal/gateway"
	"denm-gateway/internal/general/bus"
	"denm-gateway/internal/general/logger"
	"denm-gateway/internal/general/metrics"
)

// Handler is the HTTP/WS surface of the gateway: POST ingress for outgoing
// DENMs, WebSocket egress for incoming ones, plus docs, health and metrics.
type Handler struct {
	bus *bus.Bus
	log *logger.Logger
	met *metrics.Metrics
	hub *WSHub
}

// New builds the handler and subscribes the WS fan-out to denm.incoming.
func New(b *bus.Bus, log *logger.Logger, met *metrics.Metrics) *Handler {
	h := &Handler{
		bus: b,
		log: log,
		met: met,
		hub: NewWSHub(log, met),
	}
	b.Subscribe(bus.TopicDenmIncoming, h.hub.Broadcast)
	return h
}

// Router wires all routes on a fresh mux.
func (h *Handler) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /denm", h.postDenm)
	mux.HandleFunc("GET /denm", h.hub.Handle)
	mux.HandleFunc("GET /api-docs", h.apiDocs)
	mux.HandleFunc("GET /swagger.json", h.swaggerJSON)
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.Handle("GET /metrics", h.met.Handler())
	return mux
}

// Hub exposes the WebSocket hub for connection accounting.
func (h *Handler) Hub() *WSHub {
	return h.hub
}

// postDenm accepts an envelope JSON and forwards it to the interchange via
// the bus. Envelope and DENM constraints are checked synchronously on the
// request path; only a payload that will encode is acked and published.
func (h *Handler) postDenm(w http.ResponseWriter, r *http.Request) {
	ctx := h.log.WithRequestID(r.Context(), uuid.NewString())

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.met.HTTPRequests.WithLabelValues("/denm", "400").Inc()
		h.log.Warn(ctx, "denm_post_rejected", "malformed request body", map[string]any{
			"error": err.Error(),
		})
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	if err := gateway.ValidateOutgoing(body); err != nil {
		h.met.HTTPRequests.WithLabelValues("/denm", "400").Inc()
		h.log.Warn(ctx, "denm_post_rejected", "envelope validation failed", map[string]any{
			"error": err.Error(),
		})
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.bus.Publish(bus.TopicDenmOutgoing, body)

	h.met.HTTPRequests.WithLabelValues("/denm", "200").Inc()
	h.log.Info(ctx, "denm_post_accepted", "DENM accepted for publish", nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"wsConnections": h.hub.Count(),
	})
}

func (h *Handler) apiDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(apiDocsHTML))
}

func (h *Handler) swaggerJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(swaggerDoc))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
