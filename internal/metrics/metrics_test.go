package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCheckout(t *testing.T) {
	m := New()
	m.ObserveCheckout("ok")
	m.ObserveCheckout("ok")
	m.ObserveCheckout("validation")

	if got := testutil.ToFloat64(m.Checkouts.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Checkouts.WithLabelValues("validation")); got != 1 {
		t.Fatalf("validation = %v, want 1", got)
	}
}

func TestHandlerExposesShopMetrics(t *testing.T) {
	m := New()
	m.Requests.WithLabelValues("/cart", "GET", "200").Inc()
	m.ObserveCheckout("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"shop_http_requests_total", "shop_checkout_total"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
