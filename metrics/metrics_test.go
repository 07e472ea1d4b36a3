package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	m := New()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/hello", func(c *fiber.Ctx) error { return c.SendString("hi") })
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/hello", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/hello", "200")))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "snapedit_http_requests_total")
}

func TestTransformationOutcome(t *testing.T) {
	m := New()
	m.Transformation("remove", "done")
	m.Transformation("remove", "failed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transformations.WithLabelValues("remove", "done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CreditsDebited))

	var nilMetrics *Metrics
	nilMetrics.Transformation("remove", "done")
}
