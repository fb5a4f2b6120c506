package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	reportTimeout = 10 * time.Second

	mib = 1024 * 1024
	gib = 1024 * 1024 * 1024
)

// Reporter runs the agent's sample → send → sleep loop. It never exits on a
// failed cycle; a dropped report is simply retried implicitly next interval.
type Reporter struct {
	cfg      Config
	client   *http.Client
	logger   *logrus.Entry
	sampler  Sampler
	hostname string
	ip       string
	meta     map[string]any

	// Byte counters observed at the previous cycle boundary. Initialized at
	// construction, so the very first reported speed is measured against the
	// process-start baseline rather than a full elapsed interval. Known
	// approximation, kept from the original protocol.
	prevSent uint64
	prevRecv uint64
}

// NewReporter builds a reporter backed by live host sampling. The static meta
// block and source address are captured once, at startup.
func NewReporter(cfg Config, logger *logrus.Entry) *Reporter {
	r := newReporter(cfg, SystemSampler{}, logger)
	r.hostname = Hostname()
	r.ip = DetectIP()
	r.meta = CollectMeta(cfg.Flag)
	return r
}

func newReporter(cfg Config, sampler Sampler, logger *logrus.Entry) *Reporter {
	r := &Reporter{
		cfg:     cfg,
		sampler: sampler,
		logger:  logger.WithField("component", "reporter"),
		client:  &http.Client{Timeout: reportTimeout},
		meta:    map[string]any{},
	}

	if s, err := sampler.Sample(); err == nil {
		r.prevSent = s.BytesSent
		r.prevRecv = s.BytesRecv
	}
	return r
}

// Run loops until the context is cancelled. Each cycle samples, sends, and
// sleeps for the configured interval; all per-cycle failures are logged and
// swallowed.
func (r *Reporter) Run(ctx context.Context) {
	r.logger.Infof("Reporting to %s every %ds", r.cfg.ReportURL(), r.cfg.IntervalSec)

	interval := time.Duration(r.cfg.IntervalSec) * time.Second
	for {
		if err := r.reportOnce(ctx); err != nil {
			r.logger.Warnf("Failed to push metrics: %v", err)
		}

		select {
		case <-ctx.Done():
			r.logger.Info("Reporter stopping")
			return
		case <-time.After(interval):
		}
	}
}

func (r *Reporter) reportOnce(ctx context.Context) error {
	sample, err := r.sampler.Sample()
	if err != nil {
		return fmt.Errorf("sampling failed: %w", err)
	}

	metrics := buildMetrics(sample, r.prevSent, r.prevRecv, r.cfg.IntervalSec)
	r.prevSent = sample.BytesSent
	r.prevRecv = sample.BytesRecv

	payload := map[string]any{
		"token":      r.cfg.Token,
		"hostname":   r.hostname,
		"ip_address": r.ip,
		"meta":       r.meta,
		"metrics":    metrics,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.cfg.ReportURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server rejected payload: %d %s", resp.StatusCode, respBody)
	}

	return nil
}

// buildMetrics composes the metrics block from the current sample and the
// byte counters observed at the previous cycle boundary. Speeds are MiB/s
// over the nominal interval; totals are cumulative GiB.
func buildMetrics(s *Sample, prevSent, prevRecv uint64, intervalSec int) map[string]any {
	var deltaSent, deltaRecv uint64
	if s.BytesSent > prevSent {
		deltaSent = s.BytesSent - prevSent
	}
	if s.BytesRecv > prevRecv {
		deltaRecv = s.BytesRecv - prevRecv
	}

	interval := float64(intervalSec)
	return map[string]any{
		"cpu":            round2(s.CPUPercent),
		"memory_percent": round2(s.MemoryPercent),
		"disk_percent":   round2(s.DiskPercent),
		"net_sent_speed": round3(float64(deltaSent) / interval / mib),
		"net_recv_speed": round3(float64(deltaRecv) / interval / mib),
		"total_sent":     round3(float64(s.BytesSent) / gib),
		"total_recv":     round3(float64(s.BytesRecv) / gib),
		"load_avg":       []float64{round2(s.LoadAvg[0]), round2(s.LoadAvg[1]), round2(s.LoadAvg[2])},
		"uptime":         s.UptimeSec,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
