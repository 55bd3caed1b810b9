package transfer

import "time"

// speedMeter reports throughput over a sliding window. Until the first
// window closes it falls back to the average since the start.
type speedMeter struct {
	started     time.Time
	window      time.Duration
	markAt      time.Time
	markBytes   int64
	lastSpeed   float64
	haveSamples bool
}

func newSpeedMeter(started time.Time, window time.Duration) *speedMeter {
	return &speedMeter{started: started, window: window, markAt: started}
}

func (m *speedMeter) sample(now time.Time, total int64) float64 {
	since := now.Sub(m.markAt)
	if since >= m.window {
		m.lastSpeed = float64(total-m.markBytes) / since.Seconds()
		m.markAt = now
		m.markBytes = total
		m.haveSamples = true
		return m.lastSpeed
	}
	if m.haveSamples {
		return m.lastSpeed
	}
	elapsed := now.Sub(m.started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(total) / elapsed
}
