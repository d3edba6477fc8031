package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-broker-assistant/internal/gateway"
	"github.com/tbourn/go-broker-assistant/internal/http/middleware"
)

// AckResponse is returned to the gateway as soon as an event is accepted.
type AckResponse struct {
	Status string `json:"status" example:"received"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Service   string `json:"service" example:"issy-assistant"`
	Timestamp string `json:"timestamp" example:"2025-03-10T12:00:00.000Z"`
}

// emptyTwiML acknowledges a Twilio webhook without a synchronous reply;
// replies go out through the REST API.
const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// ZAPIWebhook godoc
// @ID          zapiWebhook
// @Summary     Receive a Z-API message callback
// @Description Acknowledges immediately and processes the message in the background.
// @Description Messages sent by the connected number, group messages and non-text messages are acknowledged and dropped.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
// @Param       body  body      gateway.ZAPIPayload  true  "Z-API on-message-received callback"
// @Success     200   {object}  handlers.AckResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Malformed JSON"
// @Failure     503   {object}  handlers.ErrorResponse  "Shutting down"
// @Router      /whatsapp-webhook [post]
func (h *Handlers) ZAPIWebhook(c *gin.Context) {
	var p gateway.ZAPIPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidPayload, "invalid JSON body")
		return
	}
	in, accepted := gateway.ParseZAPI(p)
	if !accepted {
		middleware.LoggerFrom(c).Debug().
			Bool("from_me", p.FromMe).
			Bool("group", p.IsGroup).
			Str("type", p.Type).
			Msg("callback ignored")
		ok(c, http.StatusOK, AckResponse{Status: "received"})
		return
	}
	if !h.events.Submit(in) {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "shutting down")
		return
	}
	ok(c, http.StatusOK, AckResponse{Status: "received"})
}

// TwilioWebhook godoc
// @ID          twilioWebhook
// @Summary     Receive a Twilio WhatsApp message
// @Description Form-encoded Twilio webhook. Requests must carry a valid X-Twilio-Signature.
// @Tags        Webhooks
// @Accept      x-www-form-urlencoded
// @Produce     xml
// @Param       X-Twilio-Signature  header    string  true  "Twilio request signature"
// @Param       From                formData  string  true  "Sender, e.g. whatsapp:+5511999990000"
// @Param       Body                formData  string  true  "Message text"
// @Param       MessageSid          formData  string  false "Twilio message SID"
// @Param       ProfileName         formData  string  false "WhatsApp display name"
// @Success     200  {string}  string  "Empty TwiML response"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Bad signature"
// @Failure     503  {object}  handlers.ErrorResponse  "Shutting down"
// @Router      /twilio-webhook [post]
func (h *Handlers) TwilioWebhook(c *gin.Context) {
	var p gateway.TwilioPayload
	if err := c.ShouldBind(&p); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidPayload, "invalid form body")
		return
	}
	if in, accepted := gateway.ParseTwilio(p); accepted {
		if !h.events.Submit(in) {
			fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "shutting down")
			return
		}
	}
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(emptyTwiML))
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   h.service,
		Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

