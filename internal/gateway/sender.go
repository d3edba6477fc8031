package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/tbourn/go-broker-assistant/internal/config"
)

// Sender delivers one text message. delaySeconds is the typing delay the
// recipient sees before the message appears.
type Sender interface {
	Send(ctx context.Context, phone, text string, delaySeconds int) error
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: provider returned %d: %s", e.Code, e.Body)
}

// HumanDelay returns a random whole number of seconds in [min, max].
func HumanDelay(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.IntN(max-min+1)
}

// ----------------------------------------------------------------------------
// Z-API

const sendTimeout = 10 * time.Second

// ZAPISender posts to the Z-API send-text endpoint.
type ZAPISender struct {
	cfg  config.ZAPIConfig
	http *http.Client
}

// NewZAPISender returns a Sender for the configured Z-API instance. A nil
// client gets a 10s timeout.
func NewZAPISender(cfg config.ZAPIConfig, client *http.Client) *ZAPISender {
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}
	return &ZAPISender{cfg: cfg, http: client}
}

type zapiSendText struct {
	Phone       string `json:"phone"`
	Message     string `json:"message"`
	DelayTyping int    `json:"delayTyping,omitempty"`
}

func (s *ZAPISender) endpoint() string {
	return fmt.Sprintf("%s/instances/%s/token/%s/send-text",
		strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.InstanceID, s.cfg.InstanceToken)
}

// Send implements Sender. Z-API shows the typing indicator itself, so the
// delay is forwarded as delayTyping.
func (s *ZAPISender) Send(ctx context.Context, phone, text string, delaySeconds int) error {
	body, err := json.Marshal(zapiSendText{Phone: phone, Message: text, DelayTyping: delaySeconds})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.ClientToken != "" {
		req.Header.Set("Client-Token", s.cfg.ClientToken)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("zapi send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ----------------------------------------------------------------------------
// Twilio

// messageCreator is the part of the Twilio REST client the sender uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends WhatsApp messages through the Twilio Messages API.
type TwilioSender struct {
	api  messageCreator
	from string
}

// NewTwilioSender builds a TwilioSender from credentials.
func NewTwilioSender(cfg config.TwilioConfig) (*TwilioSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, fmt.Errorf("gateway: missing Twilio credentials")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{api: client.Api, from: cfg.From}, nil
}

// Send implements Sender. Twilio has no typing delay, so the delay is
// honored here before the call and cut short by ctx. CreateMessage itself
// takes no context; ctx is checked once more right before it.
func (s *TwilioSender) Send(ctx context.Context, phone, text string, delaySeconds int) error {
	if delaySeconds > 0 {
		t := time.NewTimer(time.Duration(delaySeconds) * time.Second)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo("whatsapp:+" + strings.TrimPrefix(phone, "+"))
	params.SetBody(text)

	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	return nil
}
