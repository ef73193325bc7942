package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRegistryHandlerOutput(t *testing.T) {
	RecordRequestMetrics("POST", "/api/v1/roster/solve", 200, 120*time.Millisecond)
	RecordSolve("OPTIMAL", 5000, 2*time.Second)
	SetCoverage(10, 2)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE roster_http_requests_total counter",
		"# TYPE roster_coverage_gap gauge",
		"roster_coverage_gap 2.000000",
		`roster_solve_total{status="OPTIMAL"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("指标输出缺少 %q", want)
		}
	}
}

func TestCounterLabels(t *testing.T) {
	GetRegistry().NewCounter("test_total", "测试计数", []string{"kind"})
	c := GetRegistry().GetCounter("test_total")
	if c == nil {
		t.Fatal("计数器注册失败")
	}
	c.Inc("a")
	c.Inc("a")
	c.Inc("b")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	if !strings.Contains(body, `test_total{kind="a"} 2.000000`) {
		t.Errorf("缺少 kind=a 计数: %s", body)
	}
	if !strings.Contains(body, `test_total{kind="b"} 1.000000`) {
		t.Errorf("缺少 kind=b 计数: %s", body)
	}
}
