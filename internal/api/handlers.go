package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/client"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/scheduler"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/service"
)

const maxPayloadBytes = 1 << 20

type WebhookDispatcher interface {
	HandlePayload(ctx context.Context, p client.WebhookPayload) service.Result
}

// DeliveryStatus reports on the weekly delivery scheduler.
type DeliveryStatus interface {
	Status() scheduler.Status
}

type Handler struct {
	verifyToken string
	dispatcher  WebhookDispatcher
	delivery    DeliveryStatus
}

func NewHandler(verifyToken string, d WebhookDispatcher, delivery DeliveryStatus) *Handler {
	return &Handler{verifyToken: verifyToken, dispatcher: d, delivery: delivery}
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, service.Result{Status: "ok", Message: "weekly-quiz-bot is running"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"ok": true}
	if h.delivery != nil {
		st := h.delivery.Status()
		status := map[string]any{"running": st.Running, "ticks": st.Ticks, "panics": st.Panics}
		if last := st.LastTick; !last.IsZero() {
			status["last_tick"] = last.UTC().Format(time.RFC3339)
		}
		body["delivery"] = status
	}
	writeJSON(w, http.StatusOK, body)
}

// Verify answers the channel provider's subscription handshake by echoing
// the numeric challenge when the shared token matches.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := queryParam(q, "mode")
	token := queryParam(q, "verify_token")
	challenge := queryParam(q, "challenge")

	if mode == "" || token == "" || challenge == "" {
		http.Error(w, "missing verification parameters", http.StatusBadRequest)
		return
	}
	if mode != "subscribe" || token != h.verifyToken {
		slog.Warn("webhook verification rejected", "mode", mode)
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}
	n, err := strconv.ParseInt(challenge, 10, 64)
	if err != nil {
		http.Error(w, "challenge must be an integer", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strconv.FormatInt(n, 10)))
}

// Receive always answers 200; failures are reported in the JSON body.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	var p client.WebhookPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes)).Decode(&p); err != nil {
		slog.Warn("webhook payload rejected", "err", err, "request_id", service.RequestID(r.Context()))
		writeJSON(w, http.StatusOK, service.Result{Status: service.StatusError, Message: "invalid payload"})
		return
	}
	writeJSON(w, http.StatusOK, h.dispatcher.HandlePayload(r.Context(), p))
}

// queryParam reads "hub.<name>", falling back to the bare name.
func queryParam(q url.Values, name string) string {
	for _, key := range []string{"hub." + name, name} {
		if v := q[key]; len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
