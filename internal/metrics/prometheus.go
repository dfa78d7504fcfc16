package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implementa ports.Metrics con Prometheus.
type Recorder struct {
	scansTotal      prometheus.Counter
	scansSkipped    *prometheus.CounterVec
	scanDuration    prometheus.Histogram
	lastScan        prometheus.Gauge
	walletsScanned  prometheus.Gauge
	positionsFound  prometheus.Gauge
	signalsDetected prometheus.Gauge
	walletFailures  prometheus.Counter
	signalsTotal    *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
}

// New crea un Recorder registrado en reg. Con reg nil usa el registry global.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		scansTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "consensus_scans_total",
			Help: "Total number of completed scan cycles",
		}),
		scansSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consensus_scans_skipped_total",
			Help: "Scan triggers that did not complete, by reason",
		}, []string{"reason"}),
		scanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "consensus_scan_duration_seconds",
			Help:    "Duration of completed scan cycles in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		lastScan: f.NewGauge(prometheus.GaugeOpts{
			Name: "consensus_last_scan_timestamp_seconds",
			Help: "Unix time of the last completed scan cycle",
		}),
		walletsScanned: f.NewGauge(prometheus.GaugeOpts{
			Name: "consensus_last_scan_wallets",
			Help: "Wallets successfully scanned in the last cycle",
		}),
		positionsFound: f.NewGauge(prometheus.GaugeOpts{
			Name: "consensus_last_scan_positions",
			Help: "Netted positions found in the last cycle",
		}),
		signalsDetected: f.NewGauge(prometheus.GaugeOpts{
			Name: "consensus_last_scan_signals",
			Help: "Consensus signals detected in the last cycle",
		}),
		walletFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "consensus_wallet_fetch_failures_total",
			Help: "Wallets skipped because their positions could not be fetched",
		}),
		signalsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consensus_signals_persisted_total",
			Help: "New signals persisted to the ledger, by confidence level",
		}, []string{"level"}),
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consensus_deliveries_total",
			Help: "Per-recipient message deliveries, by result",
		}, []string{"result"}),
	}
}

// ScanCompleted registra un ciclo terminado.
func (r *Recorder) ScanCompleted(duration time.Duration, wallets, positions, signals int) {
	r.scansTotal.Inc()
	r.scanDuration.Observe(duration.Seconds())
	r.lastScan.SetToCurrentTime()
	r.walletsScanned.Set(float64(wallets))
	r.positionsFound.Set(float64(positions))
	r.signalsDetected.Set(float64(signals))
}

// ScanSkipped registra un trigger descartado o abortado.
func (r *Recorder) ScanSkipped(reason string) {
	r.scansSkipped.WithLabelValues(reason).Inc()
}

// WalletFetchFailed registra una wallet saltada.
func (r *Recorder) WalletFetchFailed() {
	r.walletFailures.Inc()
}

// SignalPersisted registra una señal nueva.
func (r *Recorder) SignalPersisted(level string) {
	r.signalsTotal.WithLabelValues(level).Inc()
}

// DeliveryResult registra el resultado de un envío.
func (r *Recorder) DeliveryResult(ok bool) {
	result := "failed"
	if ok {
		result = "delivered"
	}
	r.deliveries.WithLabelValues(result).Inc()
}
