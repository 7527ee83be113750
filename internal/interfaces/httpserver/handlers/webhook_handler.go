package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/domain/ingest"
	"jan-server/services/helpdesk-api/internal/domain/update"
	"jan-server/services/helpdesk-api/internal/infrastructure/metrics"
	"jan-server/services/helpdesk-api/internal/infrastructure/observability"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// SecretTokenHeader is set by Telegram on every webhook call when a secret was registered.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Ingester runs one update through the pipeline.
type Ingester interface {
	Handle(ctx context.Context, upd update.Update) (*ingest.Result, error)
}

// WebhookHandler receives Telegram updates. Apart from authentication and malformed
// bodies it always answers 200 so Telegram does not redeliver.
type WebhookHandler struct {
	ingester Ingester
	secret   string
	log      zerolog.Logger
}

func NewWebhookHandler(ingester Ingester, secret string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingester: ingester,
		secret:   secret,
		log:      log.With().Str("handler", "webhook").Logger(),
	}
}

// Handle serves /webhook/telegram for any method.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": "ready"})
		return
	}
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(h.secret), []byte(c.GetHeader(SecretTokenHeader))) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid secret token"})
		return
	}

	var upd update.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid update payload"})
		return
	}

	start := time.Now()
	ctx, span := observability.StartUpdateSpan(c.Request.Context(), upd.UpdateID, string(upd.Kind()))
	res, err := h.ingester.Handle(ctx, upd)
	if res == nil {
		res = &ingest.Result{Status: ingest.StatusFailed, Kind: upd.Kind()}
	}
	if err != nil {
		span.Fail(err)
		h.logFailure(upd, res, err)
	}
	span.Finish(string(res.Status), len(res.Transitions), len(res.Warnings))

	recordResult(res, time.Since(start).Seconds())

	c.JSON(http.StatusOK, gin.H{"ok": true, "status": res.Status, "result": res})
}

func (h *WebhookHandler) logFailure(upd update.Update, res *ingest.Result, err error) {
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		platformerrors.LogError(h.log.With().Int64("update_id", upd.UpdateID).Str("kind", string(res.Kind)).Logger(), platformErr)
		return
	}
	h.log.Error().Err(err).Int64("update_id", upd.UpdateID).Str("kind", string(res.Kind)).Msg("update failed")
}

func recordResult(res *ingest.Result, durationSec float64) {
	metrics.RecordUpdate(string(res.Kind), string(res.Status), durationSec)
	for _, w := range res.Warnings {
		metrics.RecordWarning(w)
	}
	if res.Status == ingest.StatusProcessed {
		metrics.RecordMessageStored(string(res.Role), string(res.ContentType))
	}
	for _, t := range res.Transitions {
		metrics.RecordCaseTransition(string(t.From), string(t.To))
	}
	if res.CommitmentID != 0 {
		metrics.RecordCommitment()
	}
	if res.Command != nil {
		metrics.RecordTicketCommand(string(res.Command.Action))
	}
}
