package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/matzehuels/lscgrid/pkg/observability"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.StageRuns == nil || r.StageDuration == nil || r.MeshNodes == nil {
		t.Error("pipeline metrics not initialized")
	}
	if r.ObjectiveBest == nil || r.Iterations == nil {
		t.Error("optimizer metrics not initialized")
	}
	if r.CacheOperations == nil {
		t.Error("cache metrics not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestStageHooks(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	r.OnStageStart(ctx, observability.StageEstimate, 1200)
	r.OnStageComplete(ctx, observability.StageEstimate, 1200, 10*time.Millisecond, nil)
	r.OnStageComplete(ctx, observability.StageBuild, 1200, time.Second, errors.New("boom"))

	var metric dto.Metric
	if err := r.MeshNodes.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 1200 {
		t.Errorf("mesh nodes = %v, want 1200", got)
	}

	if err := r.StageRuns.WithLabelValues("build", "error").Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 1 {
		t.Errorf("build error runs = %v, want 1", got)
	}
}

func TestOptimizerHooks(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	r.OnProgress(ctx, 100, 7.5, 6)
	r.OnResult(ctx, 12, 6, 412, 88)

	tests := []struct {
		name  string
		gauge interface{ Write(*dto.Metric) error }
		want  float64
	}{
		{"initial", r.ObjectiveInitial, 12},
		{"current", r.ObjectiveCurrent, 7.5},
		{"best", r.ObjectiveBest, 6},
		{"iterations", r.Iterations, 412},
		{"changeable", r.ChangeableNodes, 88},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var metric dto.Metric
			if err := tt.gauge.Write(&metric); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if got := metric.GetGauge().GetValue(); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestCacheHooks(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	r.OnCacheMiss(ctx, "grid")
	r.OnCacheSet(ctx, "grid", 2048)
	r.OnCacheHit(ctx, "grid")
	r.OnCacheHit(ctx, "grid")

	var metric dto.Metric
	if err := r.CacheOperations.WithLabelValues("grid", "hit").Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if err := r.CacheBytes.WithLabelValues("grid").Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 2048 {
		t.Errorf("bytes = %v, want 2048", got)
	}
}

func TestWriteToTextfile(t *testing.T) {
	r := NewRegistry()
	r.OnResult(context.Background(), 10, 4, 401, 12)

	path := filepath.Join(t.TempDir(), "lscgrid.prom")
	if err := r.WriteToTextfile(path); err != nil {
		t.Fatalf("WriteToTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "lscgrid_optimizer_objective_best 4") {
		t.Errorf("textfile missing objective gauge:\n%s", data)
	}
}
