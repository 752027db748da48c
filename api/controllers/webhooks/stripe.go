package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/velvetlane/storefront-backend/api/responses"
	"github.com/velvetlane/storefront-backend/internal/payments"
	"github.com/velvetlane/storefront-backend/internal/reconcile"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	"github.com/velvetlane/storefront-backend/pkg/logger"
	"github.com/velvetlane/storefront-backend/pkg/metrics"
)

type webhookVerifier interface {
	VerifyWebhook(payload []byte, signatureHeader string) (*payments.Event, error)
}

type reconcileService interface {
	HandleEvent(ctx context.Context, event payments.Event) (reconcile.Result, error)
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// StripeWebhook receives payment authorization outcomes. The raw body is
// read before any parsing because the signature covers the exact bytes.
func StripeWebhook(verifier webhookVerifier, guard webhookGuard, svc reconcileService, m *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			m.IncOutcome("", "signature_missing")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "stripe signature missing"))
			return
		}

		event, err := verifier.VerifyWebhook(payload, sigHeader)
		if err != nil {
			m.IncOutcome("", "signature_invalid")
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if event == nil {
			// event type the ledger does not care about
			responses.WriteSuccess(w, nil)
			return
		}

		alreadySeen, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadySeen {
			m.IncOutcome(string(event.Kind), "duplicate")
			responses.WriteSuccess(w, nil)
			return
		}

		result, err := svc.HandleEvent(ctx, *event)
		if err != nil {
			// clear the fast-path mark so the processor's retry is not filtered
			_ = guard.Delete(ctx, event.ID)
			m.IncOutcome(string(event.Kind), "error")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		m.IncOutcome(string(event.Kind), string(result))
		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("stripe event %s handled: %s", event.ID, result))
		}
		responses.WriteSuccess(w, nil)
	}
}
