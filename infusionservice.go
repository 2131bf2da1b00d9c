// Fuzzy insulin infusion service

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	profiler "github.com/mmcloughlin/profile"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"example.com/fuzzy-infusion/benchmark"

	"example.com/fuzzy-infusion/base/zaplog"

	"example.com/fuzzy-infusion/core/inference"
	"example.com/fuzzy-infusion/core/profile"
	"example.com/fuzzy-infusion/core/session"
	"example.com/fuzzy-infusion/core/simulate"

	"example.com/fuzzy-infusion/driver/journal"
)

const (
	// Clinical time-in-range window, mg/dL.
	targetRangeLo = 70
	targetRangeHi = 180
)

var log *zap.Logger

func initLogger(verbose bool) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		// See https://github.com/scionproto/scion/blob/master/pkg/log/log.go
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var err error
	log, err = c.Build()
	if err != nil {
		panic(err)
	}
	zaplog.SetLogger(log)
}

func runMonitor(log *zap.Logger) {
	http.Handle("/metrics", promhttp.Handler())
	err := http.ListenAndServe("127.0.0.1:8080", nil)
	log.Fatal("failed to serve metrics", zap.Error(err))
}

func loadProfile(configFile string) *profile.Profile {
	if configFile == "" {
		reg, base := profile.Default()
		return &profile.Profile{Registry: reg, Base: base}
	}
	raw, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	p, err := profile.Load(raw)
	if err != nil {
		log.Fatal("failed to decode configuration", zap.Error(err))
	}
	return p
}

func parseInputs(s string) (map[string]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("no inputs specified")
	}
	inputs := make(map[string]float64)
	for _, kv := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("input %q is not of the form name=value", kv)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("input %q has an empty variable name", kv)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("input %q has an invalid value", kv)
		}
		if _, dup := inputs[name]; dup {
			return nil, fmt.Errorf("input %q is specified twice", name)
		}
		inputs[name] = x
	}
	return inputs, nil
}

func printTrace(res *inference.Result) {
	fmt.Println("membership:")
	for _, row := range res.Snapshot.Rows {
		for _, d := range row.Degrees {
			if d.Degree > 0 {
				fmt.Printf("  %s is %s: %.4f\n", row.Variable, d.Term, d.Degree)
			}
		}
	}
	fmt.Println("activations:")
	for _, a := range res.Activations {
		fmt.Printf("  %s => %s (%.4f)\n", a.Rule, a.Consequent, a.Strength)
		for _, c := range a.Contributions {
			fmt.Printf("    %s is %s: %.4f\n", c.Variable, c.Term, c.Degree)
		}
	}
	fmt.Println("aggregate:")
	for _, ta := range res.Aggregate {
		if ta.Strength > 0 {
			fmt.Printf("  %s: %.4f\n", ta.Term, ta.Strength)
		}
	}
}

func runEval(configFile, inputsStr string, resolution int, trace bool) {
	inputs, err := parseInputs(inputsStr)
	if err != nil {
		log.Fatal("failed to parse inputs", zap.Error(err))
	}
	p := loadProfile(configFile)
	if resolution != 0 {
		p.Resolution = resolution
	}
	res, err := p.Engine().Evaluate(inputs)
	if err != nil {
		if errors.Is(err, inference.ErrNoRuleFired) {
			log.Fatal("no rule fired for these inputs, hold the previous rate",
				zap.Error(err))
		}
		log.Fatal("failed to evaluate inputs", zap.Error(err))
	}
	fmt.Printf("%s = %v\n", p.Base.Output(), res.Value)
	if trace {
		printTrace(res)
	}
}

func logSessionStats(hist *session.History) {
	stats, ok := hist.Stats()
	if !ok {
		log.Info("empty session")
		return
	}
	tir, _ := hist.TimeInRange("glycemia", targetRangeLo, targetRangeHi)
	log.Info("session statistics",
		zap.Int("steps", stats.Count),
		zap.Int("fallbacks", stats.Fallbacks),
		zap.Float64("rate_min", stats.RateMin),
		zap.Float64("rate_max", stats.RateMax),
		zap.Float64("rate_mean", stats.RateMean),
		zap.Float64("rate_median", stats.RateMedian),
		zap.Float64("time_in_range", tir),
	)
}

func runSimulate(configFile string, steps int, interval time.Duration,
	journalFile string, historyCap int) {
	p := loadProfile(configFile)
	cfg := simulate.Config{
		Engine:     p.Engine(),
		Steps:      steps,
		Interval:   interval,
		HistoryCap: historyCap,
	}
	if journalFile != "" {
		j, err := journal.Open(journalFile)
		if err != nil {
			log.Fatal("failed to open journal", zap.Error(err))
		}
		defer j.Close()
		cfg.Recorder = j
	}

	go runMonitor(log)

	hist, err := simulate.Run(context.Background(), log, cfg)
	if err != nil {
		log.Fatal("failed to run simulation", zap.Error(err))
	}
	logSessionStats(hist)
}

func runCurves(configFile string) {
	p := loadProfile(configFile)
	fmt.Println("variable,term,x,degree")
	for _, v := range p.Registry.Variables() {
		for _, t := range v.Terms() {
			for i := 0; i <= 100; i++ {
				x := v.Min() + (v.Max()-v.Min())*float64(i)/100
				fmt.Printf("%s,%s,%g,%g\n", v.Name(), t.Name, x, t.Shape.Degree(x))
			}
		}
	}
}

func runSurface(configFile string, samples int) {
	p := loadProfile(configFile)
	g, ok := p.Registry.Lookup("glycemia")
	if !ok {
		log.Fatal("profile has no glycemia variable")
	}
	tr, ok := p.Registry.Lookup("trend")
	if !ok {
		log.Fatal("profile has no trend variable")
	}
	e := p.Engine()
	fmt.Println("glycemia,trend,rate")
	for i := 0; i <= samples; i++ {
		x := g.Min() + (g.Max()-g.Min())*float64(i)/float64(samples)
		for j := 0; j <= samples; j++ {
			y := tr.Min() + (tr.Max()-tr.Min())*float64(j)/float64(samples)
			res, err := e.Evaluate(map[string]float64{
				"glycemia": x, "trend": y, "exercise": 2, "stress": 2, "carbs": 10,
			})
			if err != nil {
				if errors.Is(err, inference.ErrNoRuleFired) {
					fmt.Printf("%g,%g,\n", x, y)
					continue
				}
				log.Fatal("failed to evaluate grid cell", zap.Error(err))
			}
			fmt.Printf("%g,%g,%g\n", x, y, res.Value)
		}
	}
}

func runBenchmark(configFile string, goroutines, iterations int) {
	p := loadProfile(configFile)
	benchmark.RunEvalBenchmark(p.Engine(), goroutines, iterations)
}

func runReport(journalFile string) {
	j, err := journal.Open(journalFile)
	if err != nil {
		log.Fatal("failed to open journal", zap.Error(err))
	}
	defer j.Close()
	entries, err := j.Entries()
	if err != nil {
		log.Fatal("failed to read journal", zap.Error(err))
	}
	hist := session.NewHistory(len(entries))
	for _, e := range entries {
		hist.Add(e)
	}
	logSessionStats(hist)
}

func exitWithUsage() {
	fmt.Println("<usage>")
	os.Exit(1)
}

func main() {
	var (
		verbose     bool
		configFile  string
		inputsStr   string
		trace       bool
		resolution  int
		steps       int
		interval    time.Duration
		journalFile string
		historyCap  int
		samples     int
		goroutines  int
		iterations  int
	)

	evalFlags := flag.NewFlagSet("eval", flag.ExitOnError)
	simulateFlags := flag.NewFlagSet("simulate", flag.ExitOnError)
	curvesFlags := flag.NewFlagSet("curves", flag.ExitOnError)
	surfaceFlags := flag.NewFlagSet("surface", flag.ExitOnError)
	benchmarkFlags := flag.NewFlagSet("benchmark", flag.ExitOnError)
	reportFlags := flag.NewFlagSet("report", flag.ExitOnError)

	evalFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	evalFlags.StringVar(&configFile, "config", "", "Config file")
	evalFlags.StringVar(&inputsStr, "in", "", "Comma-separated name=value inputs")
	evalFlags.IntVar(&resolution, "resolution", 0, "Defuzzification resolution")
	evalFlags.BoolVar(&trace, "trace", false, "Print the evaluation trace")

	simulateFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	simulateFlags.StringVar(&configFile, "config", "", "Config file")
	simulateFlags.IntVar(&steps, "steps", 0, "Number of control steps")
	simulateFlags.DurationVar(&interval, "interval", 0, "Wall-clock pacing between steps")
	simulateFlags.StringVar(&journalFile, "journal", "", "Journal file")
	simulateFlags.IntVar(&historyCap, "history", 0, "History window")

	curvesFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	curvesFlags.StringVar(&configFile, "config", "", "Config file")

	surfaceFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	surfaceFlags.StringVar(&configFile, "config", "", "Config file")
	surfaceFlags.IntVar(&samples, "samples", 40, "Grid samples per axis")

	benchmarkFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	benchmarkFlags.StringVar(&configFile, "config", "", "Config file")
	benchmarkFlags.IntVar(&goroutines, "goroutines", 4, "Concurrent evaluation goroutines")
	benchmarkFlags.IntVar(&iterations, "iterations", 100_000, "Evaluations per goroutine")
	prof := profiler.New(profiler.CPUProfile, profiler.MemProfile)
	prof.SetFlags(benchmarkFlags)

	reportFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	reportFlags.StringVar(&journalFile, "journal", "", "Journal file")

	if len(os.Args) < 2 {
		exitWithUsage()
	}

	switch os.Args[1] {
	case evalFlags.Name():
		err := evalFlags.Parse(os.Args[2:])
		if err != nil || evalFlags.NArg() != 0 {
			exitWithUsage()
		}
		if inputsStr == "" {
			exitWithUsage()
		}
		if resolution < 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		runEval(configFile, inputsStr, resolution, trace)
	case simulateFlags.Name():
		err := simulateFlags.Parse(os.Args[2:])
		if err != nil || simulateFlags.NArg() != 0 {
			exitWithUsage()
		}
		if steps < 0 || historyCap < 0 || interval < 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		runSimulate(configFile, steps, interval, journalFile, historyCap)
	case curvesFlags.Name():
		err := curvesFlags.Parse(os.Args[2:])
		if err != nil || curvesFlags.NArg() != 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		runCurves(configFile)
	case surfaceFlags.Name():
		err := surfaceFlags.Parse(os.Args[2:])
		if err != nil || surfaceFlags.NArg() != 0 {
			exitWithUsage()
		}
		if samples < 1 {
			exitWithUsage()
		}
		initLogger(verbose)
		runSurface(configFile, samples)
	case benchmarkFlags.Name():
		err := benchmarkFlags.Parse(os.Args[2:])
		if err != nil || benchmarkFlags.NArg() != 0 {
			exitWithUsage()
		}
		if goroutines < 1 || iterations < 1 {
			exitWithUsage()
		}
		initLogger(verbose)
		defer prof.Start().Stop()
		runBenchmark(configFile, goroutines, iterations)
	case reportFlags.Name():
		err := reportFlags.Parse(os.Args[2:])
		if err != nil || reportFlags.NArg() != 0 {
			exitWithUsage()
		}
		if journalFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		runReport(journalFile)
	case "x":
		runX()
	default:
		exitWithUsage()
	}
}
