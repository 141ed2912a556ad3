package cftc

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	appconfig "cotflow/config"
	"cotflow/logger"
	"cotflow/models"
)

const defaultUserAgent = "cotflow/1.0"

// Fetcher retrieves the published yearly report archives and turns them
// into raw records. Every failure short of a total miss is absorbed
// here: a bad candidate URL, an undersized body or a corrupt archive
// all just mean "try the next one".
type Fetcher struct {
	config  *appconfig.Config
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// NewFetcher builds a fetcher with a pooled HTTP transport and a
// request rate limiter.
func NewFetcher(cfg *appconfig.Config) *Fetcher {
	log := logger.GetLogger()

	transport := &http.Transport{
		MaxIdleConns:        cfg.Fetcher.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Fetcher.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     cfg.Fetcher.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Fetcher.ConnectionPool.IdleConnTimeout,
		DisableCompression:  false,
	}

	agent := cfg.Fetcher.UserAgent
	if agent == "" {
		agent = defaultUserAgent
	}

	httpClient := &http.Client{
		Transport: userAgentTransport{agent: agent, base: transport},
		Timeout:   cfg.Fetcher.Timeout,
	}

	rps := cfg.Fetcher.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Fetcher.RateLimit.BurstSize
	if burst <= 0 {
		burst = 1
	}

	fetcher := &Fetcher{
		config:  cfg,
		client:  httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}

	log.WithComponent("cftc_fetcher").WithFields(logger.Fields{
		"timeout":            cfg.Fetcher.Timeout,
		"min_response_bytes": cfg.Fetcher.MinResponseBytes,
		"years_back":         cfg.Fetcher.YearsBack,
	}).Info("cftc fetcher initialized")

	return fetcher
}

// Records fetches and extracts every available archive for one report
// family, covering the current publication year and the configured
// number of years back. Sources that yield nothing contribute nothing.
func (f *Fetcher) Records(ctx context.Context, family models.ReportFamily) []models.RawRecord {
	log := f.log.WithComponent("cftc_fetcher").WithFields(logger.Fields{"family": family})

	src := f.config.Fetcher.SourceFor(family)
	if src == nil {
		log.Warn("no source configured for report family")
		return nil
	}

	yearsBack := f.config.Fetcher.YearsBack
	if yearsBack < 0 {
		yearsBack = 0
	}

	currentYear := time.Now().Year()
	var all []models.RawRecord
	for offset := 0; offset <= yearsBack; offset++ {
		year := currentYear - offset
		body := f.fetchArchive(ctx, src.URLTemplates, year)
		if body == nil {
			continue
		}
		records := ExtractRecords(body)
		if len(records) == 0 {
			log.WithFields(logger.Fields{"year": year}).Warn("archive yielded no records")
			continue
		}
		logger.LogDataFlowEntry(log, "cftc_archive", "record_pool", len(records), string(family))
		all = append(all, records...)
	}
	return all
}

// fetchArchive tries each candidate location for one publication year
// and returns the first acceptable response body. A response counts
// only when it is a 200 with at least the configured minimum size;
// anything else moves on to the next candidate.
func (f *Fetcher) fetchArchive(ctx context.Context, templates []string, year int) []byte {
	log := f.log.WithComponent("cftc_fetcher").WithFields(logger.Fields{"year": year})

	for _, template := range templates {
		reqURL := strings.ReplaceAll(template, "{year}", strconv.Itoa(year))
		attempt := log.WithFields(logger.Fields{"url": reqURL})

		if err := f.limiter.Wait(ctx); err != nil {
			return nil
		}

		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			attempt.WithError(err).Warn("failed to build request")
			logger.RecordFetchAttempt(false)
			continue
		}

		resp, err := f.client.Do(req)
		if err != nil {
			attempt.WithError(err).Warn("request failed, trying next candidate")
			logger.RecordFetchAttempt(false)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		logger.LogPerformanceEntry(attempt, "cftc_fetcher", "archive_request", time.Since(start), nil)

		if resp.StatusCode != http.StatusOK {
			attempt.WithFields(logger.Fields{"status": resp.StatusCode}).Warn("non-success status, trying next candidate")
			logger.RecordFetchAttempt(false)
			continue
		}
		if err != nil {
			attempt.WithError(err).Warn("failed to read response body")
			logger.RecordFetchAttempt(false)
			continue
		}
		if len(body) < f.config.Fetcher.MinResponseBytes {
			attempt.WithFields(logger.Fields{"size": len(body)}).Warn("response body undersized, trying next candidate")
			logger.RecordFetchAttempt(false)
			continue
		}

		logger.RecordFetchAttempt(true)
		attempt.WithFields(logger.Fields{"size": len(body)}).Info("archive fetched")
		return body
	}

	log.Warn("no candidate location produced an archive")
	return nil
}
