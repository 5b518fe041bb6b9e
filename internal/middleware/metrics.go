package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"order-service/prometheus"
)

// Metrics records request counts and latencies by route
func Metrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if prometheus.HttpRequestsTotal == nil {
			return err
		}

		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}

		method := c.Request().Method
		path := c.Path()
		code := strconv.Itoa(status)

		prometheus.HttpRequestsTotal.WithLabelValues(method, path, code).Inc()
		prometheus.HttpRequestDuration.WithLabelValues(method, path, code).Observe(time.Since(start).Seconds())

		return err
	}
}
