// Package metrics exposes Prometheus collectors for the chat client.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups the chat client counters. A nil *Collector is valid and
// records nothing.
type Collector struct {
	opens      prometheus.Counter
	closes     *prometheus.CounterVec
	reconnects prometheus.Counter
	giveUps    prometheus.Counter
	events     *prometheus.CounterVec
	malformed  prometheus.Counter
	sent       prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		opens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat_client",
			Name:      "connections_opened_total",
			Help:      "Streaming connections that reached the open state.",
		}),
		closes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat_client",
			Name:      "connections_closed_total",
			Help:      "Streaming connection closes by close code.",
		}, []string{"code"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat_client",
			Name:      "reconnects_scheduled_total",
			Help:      "Automatic reconnect attempts scheduled after an abnormal close.",
		}),
		giveUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat_client",
			Name:      "reconnect_give_ups_total",
			Help:      "Times the reconnect loop exhausted its attempts.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat_client",
			Name:      "events_received_total",
			Help:      "Inbound events applied to the session state, by type.",
		}, []string{"type"}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat_client",
			Name:      "malformed_frames_total",
			Help:      "Inbound frames dropped because they could not be decoded.",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat_client",
			Name:      "messages_sent_total",
			Help:      "User messages transmitted to the agent service.",
		}),
	}

	for _, col := range []prometheus.Collector{c.opens, c.closes, c.reconnects, c.giveUps, c.events, c.malformed, c.sent} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.opens.Inc()
}

func (c *Collector) ConnectionClosed(code int) {
	if c == nil {
		return
	}
	c.closes.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (c *Collector) ReconnectScheduled() {
	if c == nil {
		return
	}
	c.reconnects.Inc()
}

func (c *Collector) ReconnectGaveUp() {
	if c == nil {
		return
	}
	c.giveUps.Inc()
}

func (c *Collector) EventReceived(eventType string) {
	if c == nil {
		return
	}
	c.events.WithLabelValues(eventType).Inc()
}

func (c *Collector) MalformedFrame() {
	if c == nil {
		return
	}
	c.malformed.Inc()
}

func (c *Collector) MessageSent() {
	if c == nil {
		return
	}
	c.sent.Inc()
}
