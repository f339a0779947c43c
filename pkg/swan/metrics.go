package swan

import (
	"sync"

	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ipsecman"

// StatusSource is what the collector scrapes.
type StatusSource interface {
	GetStatus() (map[string]schema.ConnectionStatus, error)
	GetStats() (schema.Stats, error)
}

// Collector exports connection status on every scrape, without caching.
type Collector struct {
	source StatusSource
	lock   sync.Mutex

	Up          prometheus.Gauge
	Scrapes     *prometheus.CounterVec
	Established *prometheus.GaugeVec
	Uptime      *prometheus.GaugeVec
	BytesIn     *prometheus.GaugeVec
	BytesOut    *prometheus.GaugeVec
	PacketsIn   *prometheus.GaugeVec
	PacketsOut  *prometheus.GaugeVec
	IkeSAs      prometheus.Gauge
	HalfOpen    prometheus.Gauge
}

func NewCollector(source StatusSource) *Collector {
	label := []string{"name"}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      name,
			Help:      help,
		}, label)
	}
	return &Collector{
		source: source,
		Up: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "up",
			Help:      "Whether the IKE daemon answered the last scrape",
		}),
		Scrapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrapes_total",
			Help:      "Scrapes by result kind",
		}, []string{"kind"}),
		Established: gauge("established", "1 when an IKE SA of the connection is up"),
		Uptime:      gauge("established_seconds", "Seconds since the IKE SA was established"),
		BytesIn:     gauge("bytes_in", "Inbound bytes summed over child SAs"),
		BytesOut:    gauge("bytes_out", "Outbound bytes summed over child SAs"),
		PacketsIn:   gauge("packets_in", "Inbound packets summed over child SAs"),
		PacketsOut:  gauge("packets_out", "Outbound packets summed over child SAs"),
		IkeSAs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ikesas",
			Help:      "IKE SAs known to the daemon",
		}),
		HalfOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ikesas_half_open",
			Help:      "Half open IKE SAs",
		}),
	}
}

func (c *Collector) vectors() []*prometheus.GaugeVec {
	return []*prometheus.GaugeVec{c.Established, c.Uptime, c.BytesIn, c.BytesOut, c.PacketsIn, c.PacketsOut}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.Up.Describe(ch)
	c.Scrapes.Describe(ch)
	c.IkeSAs.Describe(ch)
	c.HalfOpen.Describe(ch)
	for _, v := range c.vectors() {
		v.Describe(ch)
	}
}

func (c *Collector) refresh() {
	for _, v := range c.vectors() {
		v.Reset()
	}
	status, err := c.source.GetStatus()
	kind := string(KindOf(err))
	if kind == "" {
		kind = "ok"
	}
	c.Scrapes.WithLabelValues(kind).Inc()
	if err != nil && status == nil {
		c.Up.Set(0)
		return
	}
	c.Up.Set(1)
	for name, obj := range status {
		established := 0.0
		if obj.State == schema.StateEstablished {
			established = 1
		}
		c.Established.WithLabelValues(name).Set(established)
		c.Uptime.WithLabelValues(name).Set(float64(obj.EstablishedTime))
		c.BytesIn.WithLabelValues(name).Set(float64(obj.BytesIn))
		c.BytesOut.WithLabelValues(name).Set(float64(obj.BytesOut))
		c.PacketsIn.WithLabelValues(name).Set(float64(obj.PacketsIn))
		c.PacketsOut.WithLabelValues(name).Set(float64(obj.PacketsOut))
	}
	if stats, err := c.source.GetStats(); err == nil {
		c.IkeSAs.Set(float64(stats.IkeSAs.Total))
		c.HalfOpen.Set(float64(stats.IkeSAs.HalfOpen))
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.refresh()
	c.Up.Collect(ch)
	c.Scrapes.Collect(ch)
	c.IkeSAs.Collect(ch)
	c.HalfOpen.Collect(ch)
	for _, v := range c.vectors() {
		v.Collect(ch)
	}
}

// NewRegistry returns a private registry holding c.
func NewRegistry(c *Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(c)
	return registry
}
