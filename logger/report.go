package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Pipeline counters, accumulated across runs for the periodic report.
var (
	fetchAttempts   int64
	fetchSuccesses  int64
	rowsExtracted   int64
	envelopeWrites  int64
	parquetWrites   int64
	warnsByComp     sync.Map // map[string]*int64
	errorsByComp    sync.Map // map[string]*int64
	matchesByMethod sync.Map // map[string]*int64
)

func bump(m *sync.Map, key string) {
	v, _ := m.LoadOrStore(key, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

func snapshot(m *sync.Map) map[string]int64 {
	out := map[string]int64{}
	m.Range(func(k, v any) bool {
		out[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	return out
}

func recordWarn(component string)  { bump(&warnsByComp, component) }
func recordError(component string) { bump(&errorsByComp, component) }

// RecordFetchAttempt counts one candidate-location request; success
// marks the attempt that produced a usable archive.
func RecordFetchAttempt(success bool) {
	atomic.AddInt64(&fetchAttempts, 1)
	if success {
		atomic.AddInt64(&fetchSuccesses, 1)
	}
}

// RecordRowsExtracted accumulates raw rows pulled out of archives.
func RecordRowsExtracted(n int) {
	atomic.AddInt64(&rowsExtracted, int64(n))
}

// RecordInstrumentMatch counts a matched instrument by match strategy.
func RecordInstrumentMatch(method string) {
	bump(&matchesByMethod, method)
}

// RecordEnvelopeWrite counts one persisted envelope.
func RecordEnvelopeWrite() {
	atomic.AddInt64(&envelopeWrites, 1)
}

// RecordParquetWrite counts one archived parquet object.
func RecordParquetWrite() {
	atomic.AddInt64(&parquetWrites, 1)
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and pipeline statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"fetch_attempts":  atomic.LoadInt64(&fetchAttempts),
		"fetch_successes": atomic.LoadInt64(&fetchSuccesses),
		"rows_extracted":  atomic.LoadInt64(&rowsExtracted),
		"envelope_writes": atomic.LoadInt64(&envelopeWrites),
		"parquet_writes":  atomic.LoadInt64(&parquetWrites),
		"matches":         snapshot(&matchesByMethod),
		"warns":           snapshot(&warnsByComp),
		"errors":          snapshot(&errorsByComp),
		"goroutines":      runtime.NumGoroutine(),
		"cpu_percent":     cpuPct,
		"memory_mb":       int64(memStats.Used) / 1024 / 1024,
		"disk_mb":         int64(diskStats.Used) / 1024 / 1024,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		{MetricName: aws.String("FetchAttempts"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&fetchAttempts)))},
		{MetricName: aws.String("FetchSuccesses"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&fetchSuccesses)))},
		{MetricName: aws.String("RowsExtracted"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&rowsExtracted)))},
		{MetricName: aws.String("EnvelopeWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&envelopeWrites)))},
		{MetricName: aws.String("ParquetWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&parquetWrites)))},
	}

	for method, count := range snapshot(&matchesByMethod) {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("InstrumentMatches"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Strategy"), Value: aws.String(method)}},
			Value:      aws.Float64(float64(count)),
		})
	}

	publishMetrics(ctx, data)
}
