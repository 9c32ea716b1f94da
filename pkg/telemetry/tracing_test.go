package telemetry

import (
	"context"
	"testing"
)

func TestClampRatio(t *testing.T) {
	cases := map[float64]float64{-1: 0, 0: 0, 0.25: 0.25, 1: 1, 3: 1}
	for in, want := range cases {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestSetupTracing_Defaults(t *testing.T) {
	// otlptracehttp.New не ходит в сеть до первого экспорта
	shutdown, err := SetupTracing(context.Background(), "", "", 5)
	if err != nil {
		t.Fatalf("SetupTracing: %v", err)
	}
	_ = shutdown(context.Background())
}
