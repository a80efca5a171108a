package metrics

import (
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestTransactionsTotal_Increments(t *testing.T) {
	TransactionsTotal.Reset()
	TransactionsTotal.WithLabelValues("completed").Inc()
	TransactionsTotal.WithLabelValues("completed").Inc()
	TransactionsTotal.WithLabelValues("blocked").Inc()

	m := &dto.Metric{}
	c, err := TransactionsTotal.GetMetricWithLabelValues("completed")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	_ = c.Write(m)
	if m.Counter.GetValue() != 2.0 {
		t.Errorf("completed counter = %f, want 2", m.Counter.GetValue())
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("metrics endpoint returned %d", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Error("expected non-empty metrics output")
	}
}
