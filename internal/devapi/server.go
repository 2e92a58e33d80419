package devapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tienda.app/internal/obs"
	"tienda.app/internal/orders"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tienda_devserver_http_requests_total",
			Help: "Total number of HTTP requests served by the dev backend.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tienda_devserver_http_request_duration_seconds",
			Help:    "Dev backend request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Server wires the stub backend routes.
type Server struct {
	engine   *gin.Engine
	store    *Store
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// ServerOption configures Server behavior.
type ServerOption func(*Server)

// WithTokenTTL overrides the issued token lifetime.
func WithTokenTTL(ttl time.Duration) ServerOption {
	return func(s *Server) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServerOption {
	return func(s *Server) {
		if fn != nil {
			s.now = fn
		}
	}
}

// New builds the server around a store and an HS256 signing secret.
func New(store *Store, secret string, opts ...ServerOption) *Server {
	s := &Server{
		store:    store,
		secret:   []byte(secret),
		tokenTTL: 24 * time.Hour,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), metricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "tienda-devserver"})
	})
	r.GET("/metrics", gin.WrapH(obs.Handler()))

	r.POST("/v1/auth/login", s.login)

	authed := r.Group("/v1")
	authed.Use(s.withAuth())
	{
		authed.GET("/orders", s.listOrders)
		authed.GET("/orders/:id", s.getOrder)
		authed.PUT("/orders/:id/status", s.setStatus)
		authed.POST("/orders/:id/reorder", s.reorder)
	}

	s.engine = r
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
	}
}

// --- envelope helpers ---

func respondData(c *gin.Context, code int, v any) {
	c.JSON(code, gin.H{"data": v})
}

func respondError(c *gin.Context, code int, message string, details ...string) {
	e := gin.H{"message": message}
	if len(details) > 0 {
		e["details"] = details
	}
	c.JSON(code, gin.H{"error": e})
}

// --- auth ---

func (s *Server) login(c *gin.Context) {
	var req struct {
		DocumentType   string `json:"document_type" binding:"required"`
		DocumentNumber string `json:"document_number" binding:"required"`
		Password       string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid login payload", err.Error())
		return
	}

	user, err := s.store.Authenticate(req.DocumentType, req.DocumentNumber, req.Password)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "token signing failed")
		return
	}

	respondData(c, http.StatusOK, gin.H{"user": user, "token": signed})
}

func (s *Server) withAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}
		raw := strings.TrimSpace(header[len("Bearer "):])

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.secret, nil
		}, jwt.WithTimeFunc(s.now))
		if err != nil || !token.Valid {
			respondError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			respondError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("userID", sub)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	v, _ := c.Get("userID")
	id, _ := v.(string)
	return id
}

// --- orders ---

func (s *Server) listOrders(c *gin.Context) {
	f := orders.Filters{
		Status: orders.Status(c.Query("status")),
		Cursor: c.Query("cursor"),
	}
	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			f.From = t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			f.To = t
		}
	}
	respondData(c, http.StatusOK, s.store.ListOrders(userID(c), f))
}

func (s *Server) getOrder(c *gin.Context) {
	d, err := s.store.GetOrder(userID(c), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, "order not found")
		return
	}
	respondData(c, http.StatusOK, d)
}

func (s *Server) setStatus(c *gin.Context) {
	var req struct {
		Status orders.Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid status payload", err.Error())
		return
	}
	if !req.Status.Valid() {
		respondError(c, http.StatusBadRequest, "unknown status", "status must be one of pending, processing, completed, cancelled")
		return
	}

	err := s.store.SetStatus(userID(c), c.Param("id"), req.Status)
	switch {
	case errors.Is(err, ErrNotFound):
		respondError(c, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrTransition):
		respondError(c, http.StatusBadRequest, "status transition not allowed",
			"only pending or processing orders can be cancelled")
	case err != nil:
		respondError(c, http.StatusInternalServerError, "status update failed")
	default:
		respondData(c, http.StatusOK, gin.H{"updated": true})
	}
}

func (s *Server) reorder(c *gin.Context) {
	clone, err := s.store.Reorder(userID(c), c.Param("id"))
	switch {
	case errors.Is(err, ErrNotFound):
		respondError(c, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrNotReorderable):
		respondError(c, http.StatusBadRequest, "reorder not allowed",
			"only completed orders can be reordered")
	case err != nil:
		respondError(c, http.StatusInternalServerError, "reorder failed")
	default:
		respondData(c, http.StatusOK, orders.ReorderResult{
			OK:      true,
			Message: "Pedido " + clone.OrderNumber + " creado",
		})
	}
}
