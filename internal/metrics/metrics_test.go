package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandlerExposesCollectors(t *testing.T) {
	ScanClaims.WithLabelValues("STOCK_IN", "ok").Inc()

	app := fiber.New()
	app.Use(Middleware())
	app.Get("/metrics", Handler())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	if _, err := app.Test(httptest.NewRequest("GET", "/ping", nil)); err != nil {
		t.Fatalf("ping: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"comexiger_scan_claims_total", "comexiger_http_request_duration_seconds"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestScanClaimsCounter(t *testing.T) {
	before := testutil.ToFloat64(ScanClaims.WithLabelValues("PRODUCTION", "duplicate"))
	ScanClaims.WithLabelValues("PRODUCTION", "duplicate").Inc()
	after := testutil.ToFloat64(ScanClaims.WithLabelValues("PRODUCTION", "duplicate"))
	if after-before != 1 {
		t.Errorf("counter delta = %v, want 1", after-before)
	}
}
