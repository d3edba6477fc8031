// Package httpapi wires the gin transport: the gateway webhooks, the health
// probe, Prometheus metrics, Swagger UI and the read-only operator API,
// behind a shared middleware chain.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-broker-assistant/docs" // registers the OpenAPI document
	"github.com/tbourn/go-broker-assistant/internal/config"
	"github.com/tbourn/go-broker-assistant/internal/http/handlers"
	"github.com/tbourn/go-broker-assistant/internal/http/middleware"
	"github.com/tbourn/go-broker-assistant/internal/services"
)

// maxBodyBytes caps request bodies. Z-API callbacks carry text plus a few
// metadata fields; media arrives as URLs.
const maxBodyBytes = 5 << 20

// RegisterRoutes attaches the middleware chain and every endpoint to r.
// events receives normalized webhook events; db backs the operator API.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger (phone numbers scrubbed)
//  4. Recovery
//  5. Body size limit
//  6. Metrics
//  7. CORS and security headers
//
// Rate limiting is applied per group: the webhooks and the operator API
// have separate budgets. The operator API is mounted only when
// cfg.OperatorAPIToken is set.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, events handlers.Submitter, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		QuietPaths: []string{"/health", "/metrics"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(middleware.Metrics())
	r.Use(corsMiddleware(cfg.CORS)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	h := handlers.New(events, services.NewInspectService(db, services.GormRepo{}), cfg.OTEL.ServiceName)

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Gateway webhooks
	hooks := r.Group("")
	hooks.Use(middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByRouteAndIP()).Handler())
	{
		hooks.POST("/whatsapp-webhook", h.ZAPIWebhook)
		if cfg.GatewayProvider == "twilio" {
			hooks.POST("/twilio-webhook",
				middleware.TwilioSignature(cfg.Twilio.AuthToken, cfg.Twilio.WebhookBaseURL),
				h.TwilioWebhook)
		}
	}

	// Operator API: transcripts are personal data, so the routes exist only
	// with a bearer token configured and are never cached by proxies.
	if cfg.OperatorAPIToken != "" {
		api := groupWithPrefix(r, cfg.APIBasePath)
		api.Use(
			middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP()).Handler(),
			middleware.OperatorToken(cfg.OperatorAPIToken),
			middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}),
			gzip.Gzip(gzip.DefaultCompression),
		)
		{
			api.GET("/conversations/:phone", h.GetConversation)
			api.GET("/conversations/:phone/messages", h.ListMessages)
		}
	}

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// corsMiddleware allows every origin when none is configured. Otherwise
// only listed origins are echoed back.
func corsMiddleware(cc config.CORSConfig) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match"},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cc.AllowedOrigins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// gin-contrib/cors skips requests without Origin; health probes
			// and curl still get the header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(cc.AllowedOrigins))
	for _, o := range cc.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = cc.AllowedOrigins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					c.Writer.Header().Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps the request body with http.MaxBytesReader; reads past the
// cap fail and binding returns 400.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
