package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"whatsapp-connect/internal/config"
)

// Handler exposes the webhook over HTTP: the verification handshake on GET
// and the event batch ingestion on POST.
type Handler struct {
	Config    *config.Config
	Processor *Processor
}

func NewHandler(cfg *config.Config, processor *Processor) *Handler {
	return &Handler{Config: cfg, Processor: processor}
}

// Verify handles the provider's subscription handshake: echo the challenge
// iff the verify token matches the configured value.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	if mode == "subscribe" && token == h.Config.VerifyToken {
		log.Info().Msg("webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// Receive verifies the payload signature over the raw body, then hands the
// batch to the processor. Per-event problems never fail the request; the
// provider retries whole batches on non-2xx responses.
func (h *Handler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if h.Config.WebhookSecret != "" {
		if !VerifySignature(h.Config.WebhookSecret, body, c.GetHeader(SignatureHeader)) {
			log.Warn().Msg("webhook signature mismatch")
			c.Status(http.StatusForbidden)
			return
		}
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn().Err(err).Msg("malformed webhook payload")
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.Processor.Process(c.Request.Context(), &payload); err != nil {
		log.Error().Err(err).Msg("webhook processing failed")
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusOK)
}
