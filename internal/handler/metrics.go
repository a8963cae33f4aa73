package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/AscendAI/creator-catalyst-sub000/internal/metrics"
)

// MetricsMiddleware records request duration and in-flight count for Prometheus.
func MetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Don't instrument the /metrics endpoint itself
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Copy path and method into owned strings BEFORE c.Next(). Fiber
		// returns slices backed by the fasthttp buffer which can be reused
		// by handlers (especially fasthttpadaptor).
		endpoint := sanitizeEndpoint(string([]byte(c.Path())))
		method := string([]byte(c.Method()))

		metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(time.Since(start).Seconds())
		metrics.RequestsInFlight.Dec()

		return err
	}
}

// otherEndpoint labels every path that is not a known route.
const otherEndpoint = "other"

// knownEndpoints are the route templates recorded as their own label.
var knownEndpoints = map[string]bool{
	"/health/live":                                        true,
	"/health/ready":                                       true,
	"/api/cycles":                                         true,
	"/api/cycles/:cycleId/recompute":                      true,
	"/api/cycles/:cycleId/payouts/export":                 true,
	"/api/creators/:creatorId/payouts/:cycleId":           true,
	"/api/creators/:creatorId/payouts/:cycleId/preview":   true,
	"/api/creators/:creatorId/payouts/:cycleId/recompute": true,
}

// sanitizeEndpoint replaces creator and cycle ids with route parameters and
// folds unknown paths into a single label to keep cardinality bounded.
func sanitizeEndpoint(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "api" {
		switch parts[1] {
		case "creators":
			parts[2] = ":creatorId"
			if len(parts) > 4 && parts[3] == "payouts" {
				parts[4] = ":cycleId"
			}
		case "cycles":
			parts[2] = ":cycleId"
		}
	}
	endpoint := "/" + strings.Join(parts, "/")
	if !knownEndpoints[endpoint] {
		return otherEndpoint
	}
	return endpoint
}

// MetricsHandler serves the Prometheus /metrics endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.Context())
		return nil
	}
}
