package handlers

import (
	"context"
	"log"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error

// Health reports 503 when any check fails.
func Health(checks map[string]HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		const route = "GET /healthz"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				log.Printf("[HEALTH] [ERROR] %s: %v", name, err)
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		c.JSON(status, gin.H{"success": status == http.StatusOK, "checks": results})
	}
}
