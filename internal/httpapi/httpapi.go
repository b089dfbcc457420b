// Package httpapi serves the assistant's operations over HTTP with gin.
package httpapi

// #region imports
import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/czhharrison/MerchantChat/internal/assistant"
	"github.com/czhharrison/MerchantChat/internal/conversation"
	"github.com/czhharrison/MerchantChat/internal/logging"
	"github.com/czhharrison/MerchantChat/internal/metrics"
)

// #endregion

// #region server

// Options configures the router. Every field is optional.
type Options struct {
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer // serves /metrics when set
	Logger         *zerolog.Logger
	RateLimitRPS   float64 // <= 0 disables rate limiting
	RateLimitBurst int
}

type server struct {
	svc *assistant.Service
	log zerolog.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc *assistant.Service, opts Options) *gin.Engine {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = logging.Component(*opts.Logger, "http")
	}
	s := &server{svc: svc, log: log}

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), instrument(opts.Metrics))

	r.GET("/health", s.health)
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1", rateLimit(limiter, opts.Metrics))
	v1.POST("/attributes", s.extractAttributes)
	v1.GET("/audiences", s.listAudiences)
	v1.GET("/audiences/:tag", s.resolveAudience)
	v1.GET("/styles", s.listStyles)
	v1.POST("/titles", s.generateTitle)
	v1.POST("/titles/score", s.scoreTitle)
	v1.POST("/titles/refine", s.refineTitle)
	v1.POST("/competitors/analyze", s.analyzeCompetitor)
	v1.POST("/preferences", s.extractPreferences)
	v1.POST("/strategies", s.suggestStrategy)
	v1.POST("/solutions", s.solve)
	v1.POST("/sessions", s.newSession)
	v1.GET("/sessions/:id/turns", s.history)
	v1.POST("/sessions/:id/turns", s.addTurn)
	v1.GET("/sessions/:id/preferences", s.sessionPreferences)
	return r
}

// #endregion server

// #region errors

func (s *server) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// fail maps service errors: unknown sessions are 404, anything else is a
// storage failure and 500.
func (s *server) fail(c *gin.Context, err error) {
	if errors.Is(err, conversation.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// #endregion errors
