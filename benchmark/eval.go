package benchmark

import (
	"os"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/zap"

	"example.com/fuzzy-infusion/base/zaplog"
	"example.com/fuzzy-infusion/core/inference"
)

// RunEvalBenchmark measures evaluation latency under concurrency. Each
// goroutine keeps its own histogram of Evaluate wall time over a rotating
// set of representative input vectors (built-in profile vocabulary) and
// prints its percentiles when done.
func RunEvalBenchmark(e *inference.Engine, numGoroutine, numEvalPerGoroutine int) {
	inputs := []map[string]float64{
		{"glycemia": 45, "trend": -5, "exercise": 0, "stress": 0, "carbs": 0},
		{"glycemia": 100, "trend": 0, "exercise": 2, "stress": 2, "carbs": 10},
		{"glycemia": 150, "trend": 3, "exercise": 5, "stress": 3, "carbs": 40},
		{"glycemia": 240, "trend": -2, "exercise": 1, "stress": 6, "carbs": 0},
		{"glycemia": 380, "trend": 10, "exercise": 0, "stress": 5, "carbs": 80},
	}
	var mu sync.Mutex
	sg := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(numGoroutine)
	for i := numGoroutine; i > 0; i-- {
		go func() {
			hg := hdrhistogram.New(1, 50_000_000, 3) // 1 ns to 50 ms

			defer wg.Done()
			<-sg
			for j := numEvalPerGoroutine; j > 0; j-- {
				in := inputs[j%len(inputs)]

				t0 := time.Now()
				_, err := e.Evaluate(in)
				d := time.Since(t0)

				if err != nil {
					zaplog.Logger().Error("failed to evaluate inputs", zap.Error(err))
					return
				}
				err = hg.RecordValue(d.Nanoseconds())
				if err != nil {
					zaplog.Logger().Error("failed to record histogram value", zap.Error(err))
					return
				}
			}
			mu.Lock()
			defer mu.Unlock()
			hg.PercentilesPrint(os.Stdout, 1, 1.0)
		}()
	}
	t0 := time.Now()
	close(sg)
	wg.Wait()
	zaplog.Logger().Info("benchmark finished", zap.Duration("elapsed", time.Since(t0)))
}
