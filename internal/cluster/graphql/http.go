package graphql

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// maxRequestBody is the default request-body limit, overridable per config.
const maxRequestBody = 2 * 1024 * 1024

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// RegisterRoutes wires the /graphql POST endpoint and the health/readiness
// JSON endpoints onto r.
func RegisterRoutes(r *gin.Engine, resolver *Resolver, corsOrigins []string, bodyLimit int64) {
	if bodyLimit <= 0 {
		bodyLimit = maxRequestBody
	}

	r.Use(corsMiddleware(corsOrigins))

	r.POST("/graphql", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)

		var req graphQLRequest
		if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{Errors: []string{"invalid request body: " + err.Error()}})
			return
		}

		resp := resolver.Execute(c.Request.Context(), req.Query, req.Variables)
		c.JSON(http.StatusOK, resp)
	})

	r.GET("/healthz", func(c *gin.Context) {
		total, healthy, _, _, _ := resolver.Pool.Counts()
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"agents":    gin.H{"total": total, "healthy": healthy},
		})
	})

	r.GET("/readyz", func(c *gin.Context) {
		total, healthy, _, _, _ := resolver.Pool.Counts()
		ready := total == 0 || healthy > 0
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not ready"
		}
		c.JSON(status, gin.H{
			"status":    state,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"agents":    gin.H{"total": total, "healthy": healthy},
		})
	})
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Header("Access-Control-Allow-Headers", strings.Join([]string{"Content-Type", "Authorization"}, ", "))
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
