package metrics

import (
	"sync"

	"github.com/behark/car-wash-premium-migrated-sub002/pkg/telemetry"
)

// Service metrics. Init is idempotent; instruments created before the
// meter provider is installed fall back to no-op implementations.
var (
	HoldsCreated  *telemetry.Counter
	HoldsReleased *telemetry.Counter
	HoldsExpired  *telemetry.Counter
	HoldsConsumed *telemetry.Counter

	BroadcastsSent    *telemetry.Counter
	BroadcastsDropped *telemetry.Counter

	RateLimitRejections *telemetry.Counter

	ActiveConnections *telemetry.UpDownCounter

	AvailabilityComputeDuration *telemetry.Histogram
)

var initOnce sync.Once

// Init creates all metric instruments
func Init() error {
	var err error
	initOnce.Do(func() {
		err = create()
	})
	return err
}

func create() error {
	var err error

	if HoldsCreated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "holds_created_total",
		Description: "Number of booking holds created",
		Unit:        "1",
	}); err != nil {
		return err
	}

	if HoldsReleased, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "holds_released_total",
		Description: "Number of booking holds explicitly released",
		Unit:        "1",
	}); err != nil {
		return err
	}

	if HoldsExpired, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "holds_expired_total",
		Description: "Number of booking holds that lapsed unconfirmed",
		Unit:        "1",
	}); err != nil {
		return err
	}

	if HoldsConsumed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "holds_consumed_total",
		Description: "Number of booking holds converted by confirmations",
		Unit:        "1",
	}); err != nil {
		return err
	}

	if BroadcastsSent, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "broadcasts_sent_total",
		Description: "Number of availability snapshots delivered to subscribers",
		Unit:        "1",
	}); err != nil {
		return err
	}

	if BroadcastsDropped, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "broadcasts_dropped_total",
		Description: "Number of snapshots dropped on full send buffers",
		Unit:        "1",
	}); err != nil {
		return err
	}

	if RateLimitRejections, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "rate_limit_rejections_total",
		Description: "Number of client actions rejected inside a cooldown window",
		Unit:        "1",
	}); err != nil {
		return err
	}

	if ActiveConnections, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "active_connections",
		Description: "Number of open client connections",
		Unit:        "1",
	}); err != nil {
		return err
	}

	if AvailabilityComputeDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "availability_compute_duration_seconds",
		Description: "Time spent computing a day's availability snapshot",
		Unit:        "s",
	}); err != nil {
		return err
	}

	return nil
}
