// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.ObserveChat("ok")
	a.ObserveChat("ok")
	b.ObserveChat("quota")

	if got := testutil.ToFloat64(a.ChatRequestsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("a ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(b.ChatRequestsTotal.WithLabelValues("ok")); got != 0 {
		t.Errorf("b ok = %v, want 0", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/chat", "POST", 200, 15*time.Millisecond)
	m.QuotaRejections.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`folio_http_requests_total{method="POST",route="/api/chat",status="200"} 1`,
		"folio_quota_rejections_total 1",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
