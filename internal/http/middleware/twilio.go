package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
)

// TwilioSignatureHeader carries the HMAC Twilio computes over the webhook
// URL and form parameters.
const TwilioSignatureHeader = "X-Twilio-Signature"

// TwilioSignature rejects webhook requests whose X-Twilio-Signature does not
// match authToken. An empty token disables the check (local development).
//
// The URL is rebuilt from the request as Twilio saw it: scheme from TLS or
// X-Forwarded-Proto, host from the Host header. publicURL, when set,
// replaces scheme and host for deployments behind a rewriting proxy.
func TwilioSignature(authToken, publicURL string) gin.HandlerFunc {
	if authToken == "" {
		return func(c *gin.Context) { c.Next() }
	}
	validator := client.NewRequestValidator(authToken)

	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			denySignature(c)
			return
		}
		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}

		url := webhookURL(c.Request, publicURL)
		if !validator.Validate(url, params, c.GetHeader(TwilioSignatureHeader)) {
			LoggerFrom(c).Warn().Msg("twilio signature mismatch")
			denySignature(c)
			return
		}
		c.Next()
	}
}

func webhookURL(r *http.Request, publicURL string) string {
	if publicURL != "" {
		return publicURL + r.URL.RequestURI()
	}
	scheme := "http"
	if isHTTPS(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func denySignature(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       "forbidden",
		"message":    "invalid webhook signature",
	})
}
