package throttle

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// TableCollector exports the state of every record at scrape time.
type TableCollector struct {
	table *Table

	rateLimit    *prometheus.Desc
	quota        *prometheus.Desc
	totalAllowed *prometheus.Desc
	lastWait     *prometheus.Desc
	records      *prometheus.Desc
}

// NewTableCollector creates a collector for table. table may be nil, in which
// case only the record count (zero) is exported.
func NewTableCollector(table *Table, namespace string) *TableCollector {
	return &TableCollector{
		table: table,
		rateLimit: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "uid", "rate_limit_bytes"),
			"Configured bytes per window (negative when disabled)",
			[]string{"uid"}, nil,
		),
		quota: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "uid", "quota_bytes"),
			"Bytes left in the current window",
			[]string{"uid"}, nil,
		),
		totalAllowed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "uid", "allowed_bytes"),
			"Bytes debited since the rate was last set",
			[]string{"uid"}, nil,
		),
		lastWait: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "uid", "last_wait_seconds"),
			"Last pacing sleep computed for the uid",
			[]string{"uid"}, nil,
		),
		records: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "table", "records"),
			"Number of tracked uids",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *TableCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.rateLimit
	ch <- c.quota
	ch <- c.totalAllowed
	ch <- c.lastWait
	ch <- c.records
}

// Collect implements prometheus.Collector.
func (c *TableCollector) Collect(ch chan<- prometheus.Metric) {
	if c.table == nil {
		ch <- prometheus.MustNewConstMetric(c.records, prometheus.GaugeValue, 0)
		return
	}

	snapshots := c.table.Enumerate()
	ch <- prometheus.MustNewConstMetric(c.records, prometheus.GaugeValue, float64(len(snapshots)))

	for _, s := range snapshots {
		uid := strconv.FormatInt(s.UID, 10)
		ch <- prometheus.MustNewConstMetric(c.rateLimit, prometheus.GaugeValue, float64(s.RateLimit), uid)
		ch <- prometheus.MustNewConstMetric(c.quota, prometheus.GaugeValue, float64(s.Quota), uid)
		ch <- prometheus.MustNewConstMetric(c.totalAllowed, prometheus.GaugeValue, float64(s.TotalAllowed), uid)
		ch <- prometheus.MustNewConstMetric(c.lastWait, prometheus.GaugeValue, s.LastWait.Seconds(), uid)
	}
}
