package funding

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/m3rciful/vtubot/core/logger"
	"github.com/m3rciful/vtubot/internal/paystack"
)

const maxWebhookBody = 1 << 20

// WebhookHandler serves the gateway's event callback. Bad signatures and
// malformed bodies get 400, unknown customers 404, storage failures 500 so
// the gateway retries; everything else is acknowledged with 200.
func (s *Service) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "unreadable body", http.StatusBadRequest)
			return
		}

		ev, err := paystack.ParseEvent(body, r.Header.Get(paystack.SignatureHeader), s.secret)
		if err != nil {
			logger.Warn(ctx, component, "webhook.reject",
				slog.String("outcome", "rejected"),
				slog.String("err", err.Error()),
			)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if ev.Event != paystack.EventChargeSuccess {
			logger.Debug(ctx, component, "webhook.ignored", slog.String("webhook_event", ev.Event))
			w.WriteHeader(http.StatusOK)
			return
		}

		res, err := s.ProcessChargeSuccess(ctx, ev.Data)
		switch {
		case errors.Is(err, ErrUnknownCustomer):
			http.Error(w, "user not found", http.StatusNotFound)
			return
		case err != nil:
			logger.Error(ctx, component, "webhook.fail",
				slog.String("reference", ev.Data.Reference),
				slog.String("err", err.Error()),
			)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		logger.Info(ctx, component, "webhook.processed",
			slog.String("reference", ev.Data.Reference),
			slog.Bool("credited", res == Credited),
		)
		w.WriteHeader(http.StatusOK)
	}
}
