package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userKey = "user"

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authCheck resolves the bearer token to a live, enabled user
func (h *Handler) authCheck(c *gin.Context) {
	user, err := h.auth.Authenticate(c.Request.Context(), bearerToken(c.GetHeader("Authorization")))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Set(userKey, user)
	c.Next()
}

// adminCheck must run after authCheck. It reads the role from the user
// record loaded for this request, not from the token.
func (h *Handler) adminCheck(c *gin.Context) {
	user := requestUser(c)
	if user == nil || !user.IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"ok":      false,
			"message": "Access Denied: Admin only",
		})
		return
	}
	c.Next()
}

func requestUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// rateLimit caps attempts per client IP in a fixed window. Limiter
// failures let the request through.
func (h *Handler) rateLimit(c *gin.Context) {
	if h.limiter == nil {
		c.Next()
		return
	}

	key := "auth:" + c.ClientIP()
	hits, reset, err := h.limiter.Hit(c.Request.Context(), key, h.policy.RateLimitWindow)
	if err != nil {
		util.GetLogger().Warn("Rate limiter unavailable", zap.Error(err))
		c.Next()
		return
	}

	remaining := int64(h.policy.RateLimitMax) - hits
	if remaining < 0 {
		remaining = 0
	}
	c.Header("RateLimit-Limit", strconv.Itoa(h.policy.RateLimitMax))
	c.Header("RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	c.Header("RateLimit-Reset", strconv.FormatInt(int64(reset.Round(time.Second)/time.Second), 10))

	if hits > int64(h.policy.RateLimitMax) {
		util.RateLimitedTotal.Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"errors": "Too many attempts, Please try again later.",
		})
		return
	}
	c.Next()
}

// catalogWrite is the guard chain for mutating catalog routes
func (h *Handler) catalogWrite() []gin.HandlerFunc {
	if !h.policy.CatalogAdminOnly {
		return nil
	}
	return []gin.HandlerFunc{h.authCheck, h.adminCheck}
}
