package quoter

// Metric units.
const (
	UnitMilliseconds = "ms"
	UnitCount        = "count"
)

// MetricSink receives fire-and-forget timing events from the quote and
// approval fetch paths. It is threaded in explicitly at construction; the
// default sink discards everything.
type MetricSink interface {
	PutMetric(key string, value float64, unit string)
}

type nopSink struct{}

func (nopSink) PutMetric(string, float64, string) {}

// NopSink returns a sink that drops all metrics.
func NopSink() MetricSink { return nopSink{} }
