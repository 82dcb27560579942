package service

import (
	"encoding/json"
	"io"
	"net/http"

	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/logger"
	"codefrog/internal/services/webhook/domain"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds webhook request bodies
const maxBodyBytes = 5 << 20

// Routes mounts the webhook receiver endpoints
func Routes(secret []byte, receiver domain.ReceiverPort) func(*chi.Mux) {
	return func(m *chi.Mux) {
		m.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		m.Post("/hooks/github", handleGithub(secret, receiver))
	}
}

func handleGithub(secret []byte, receiver domain.ReceiverPort) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.Named("webhook")

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		if err := VerifySignature(secret, body, r.Header.Get("X-Hub-Signature")); err != nil {
			log.Warn().Err(err).Msg("rejected webhook delivery")
			http.Error(w, "signature mismatch", http.StatusUnauthorized)
			return
		}

		event := domain.Event{
			Name:     r.Header.Get("X-Github-Event"),
			Delivery: r.Header.Get("X-Github-Delivery"),
			Payload:  body,
		}
		// the action field routes actionable events, push has none
		var head struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(body, &head); err != nil {
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}
		event.Action = head.Action

		log.Info().
			Str("event", event.Name).
			Str("action", event.Action).
			Str("delivery", event.Delivery).
			Msg("received webhook delivery")

		outcome, err := receiver.Receive(ctx, event)
		if err != nil {
			log.Error().Err(err).
				Str("event", event.Name).
				Str("action", event.Action).
				Msg("webhook handler failed")
			status := http.StatusInternalServerError
			if perr.IsCode(err, perr.ErrorCodeValidation) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if !outcome.Handled {
			w.WriteHeader(http.StatusAccepted)
		}
		_ = json.NewEncoder(w).Encode(outcome)
	}
}
