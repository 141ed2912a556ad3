package processor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	appconfig "cotflow/config"
	"cotflow/logger"
	"cotflow/models"
)

// RecordSource supplies the raw records for one report family. The
// fetch/extract collaborators absorb their own failures, so an empty
// slice is the only absence signal that crosses this boundary.
type RecordSource interface {
	Records(ctx context.Context, family models.ReportFamily) []models.RawRecord
}

// Pipeline runs the full normalization and derivation pass: fetch the
// record pools per report family, match each configured instrument
// against its family pool, window and normalize the matches and
// assemble the output envelope. Each run is a pure batch transform;
// nothing persists between runs.
type Pipeline struct {
	config *appconfig.Config
	source RecordSource
	log    *logger.Log
}

func NewPipeline(cfg *appconfig.Config, source RecordSource) *Pipeline {
	return &Pipeline{
		config: cfg,
		source: source,
		log:    logger.GetLogger(),
	}
}

// Run executes one pipeline pass and always returns a well-formed
// envelope. Total absence of the primary family's records yields an
// error envelope; individual unmatched instruments are just omitted.
func (p *Pipeline) Run(ctx context.Context) *models.Envelope {
	runID := uuid.New().String()
	log := p.log.WithComponent("pipeline").WithFields(logger.Fields{"run_id": runID})

	start := time.Now()
	log.Info("starting pipeline run")

	pools := make(map[models.ReportFamily][]models.RawRecord)
	for _, family := range p.familiesInUse() {
		records := p.source.Records(ctx, family)
		pools[family] = records
		logger.RecordRowsExtracted(len(records))
		log.WithFields(logger.Fields{
			"family": family,
			"rows":   len(records),
		}).Info("record pool loaded")
	}

	if primary := p.config.Fetcher.PrimarySource(); primary != nil {
		if records, fetched := pools[primary.Family]; fetched && len(records) == 0 {
			log.WithFields(logger.Fields{"family": primary.Family}).Error("no usable upstream data")
			return models.NewErrorEnvelope(time.Now(), "could not fetch CFTC data")
		}
	}

	envelope := models.NewEnvelope(time.Now())

	numWorkers := p.config.Pipeline.MaxWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, numWorkers)
	)

	// Instruments read independent filtered views of the shared pools,
	// so they can be processed concurrently without locking the input.
	for _, inst := range p.config.Instruments {
		wg.Add(1)
		go func(inst models.Instrument) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			series := p.processInstrument(log, pools[inst.Family], inst)
			if series == nil {
				return
			}
			mu.Lock()
			envelope.Data[inst.Symbol] = series
			mu.Unlock()
		}(inst)
	}
	wg.Wait()

	logger.LogPerformanceEntry(log, "pipeline", "run", time.Since(start), logger.Fields{
		"instruments": len(envelope.Data),
	})

	return envelope
}

func (p *Pipeline) processInstrument(log *logger.Entry, pool []models.RawRecord, inst models.Instrument) *models.InstrumentSeries {
	log = log.WithFields(logger.Fields{"symbol": inst.Symbol, "family": inst.Family})

	matched, method := MatchRecords(pool, inst)
	if len(matched) == 0 {
		log.Warn("no records matched, instrument omitted from output")
		return nil
	}
	logger.RecordInstrumentMatch(method)
	log.WithFields(logger.Fields{
		"rows":     len(matched),
		"strategy": method,
	}).Info("instrument matched")

	windowed := DedupeAndWindow(matched, p.config.Pipeline.WindowWeeks)
	series := BuildSeries(windowed, inst.Family)
	if series == nil {
		return nil
	}

	log.WithFields(logger.Fields{
		"weeks":     len(series.Weeks),
		"cot_index": series.CotIndex,
	}).Info("series assembled")

	return series
}

// familiesInUse lists the report families referenced by at least one
// configured instrument, in first-use order.
func (p *Pipeline) familiesInUse() []models.ReportFamily {
	seen := make(map[models.ReportFamily]struct{}, 2)
	var families []models.ReportFamily
	for _, inst := range p.config.Instruments {
		if _, ok := seen[inst.Family]; ok {
			continue
		}
		seen[inst.Family] = struct{}{}
		families = append(families, inst.Family)
	}
	return families
}
