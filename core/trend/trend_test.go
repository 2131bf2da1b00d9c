package trend_test

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"example.com/fuzzy-infusion/core/trend"
)

type reading struct {
	min     float64 // minutes after the first sample
	glucose float64
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

func TestSlope(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name    string
		window  int
		samples []reading
		want    float64
		wantOK  bool
	}{
		{
			name:   "no samples",
			wantOK: false,
		},
		{
			name:    "single sample",
			samples: []reading{{0, 100}},
			wantOK:  false,
		},
		{
			name:    "equal timestamps only",
			samples: []reading{{0, 100}, {0, 130}},
			wantOK:  false,
		},
		{
			name:    "steady rise",
			samples: []reading{{0, 100}, {5, 110}, {10, 120}},
			want:    2,
			wantOK:  true,
		},
		{
			name:    "median rejects an outlier",
			samples: []reading{{0, 100}, {5, 110}, {10, 95}},
			want:    -0.5,
			wantOK:  true,
		},
		{
			name:    "even pair count",
			samples: []reading{{0, 100}, {1, 102}, {2, 103}, {3, 107}},
			want:    2.166666666666667,
			wantOK:  true,
		},
		{
			name:    "window keeps the newest readings",
			window:  3,
			samples: []reading{{0, 200}, {1, 100}, {2, 110}, {3, 120}},
			want:    10,
			wantOK:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := trend.NewEstimator(zap.NewNop(), tt.window)
			for _, s := range tt.samples {
				e.AddSample(base.Add(minutes(s.min)), s.glucose)
			}
			got, ok := e.Slope()
			if ok != tt.wantOK {
				t.Fatalf("Slope ok: got %t, want %t", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Slope: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLen(t *testing.T) {
	e := trend.NewEstimator(zap.NewNop(), 2)
	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < 5; i++ {
		e.AddSample(base.Add(minutes(float64(i))), 100)
		if want := min(i+1, 2); e.Len() != want {
			t.Fatalf("Len after %d samples: got %d, want %d", i+1, e.Len(), want)
		}
	}
}
