// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors fed by the reactor dispatch cycle and by poll tasks.
// Metrics implements api.ReactorObserver and api.TaskObserver.

package control

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/momentics/polltask/api"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "polltask"

// Metrics holds the collectors of one scheduler.
type Metrics struct {
	registrations prometheus.Gauge
	dispatches    prometheus.Counter
	delivered     prometheus.Counter
	reads         *prometheus.CounterVec
	readBytes     prometheus.Counter
	finished      *prometheus.CounterVec

	mu      sync.RWMutex
	last    map[string]any
	updated time.Time
}

var (
	_ api.ReactorObserver = (*Metrics)(nil)
	_ api.TaskObserver    = (*Metrics)(nil)
)

// NewMetrics creates the collectors under namespace and registers them on
// reg. A nil reg leaves them unregistered. Collectors that already exist on
// reg are reused.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &Metrics{
		registrations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "registrations",
			Help:      "Descriptors currently registered with the multiplexer.",
		}),
		dispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "dispatches_total",
			Help:      "Dispatch cycles run.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "events_total",
			Help:      "Readiness events delivered to callbacks.",
		}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "reads_total",
			Help:      "Bounded reads by outcome.",
		}, []string{"outcome"}),
		readBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "read_bytes_total",
			Help:      "Bytes read by poll tasks.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "finished_total",
			Help:      "Finished tasks by result.",
		}, []string{"result"}),
		last: make(map[string]any),
	}
	if reg == nil {
		return m, nil
	}
	var errs []error
	m.registrations = register(reg, m.registrations, &errs)
	m.dispatches = register(reg, m.dispatches, &errs)
	m.delivered = register(reg, m.delivered, &errs)
	m.reads = register(reg, m.reads, &errs)
	m.readBytes = register(reg, m.readBytes, &errs)
	m.finished = register(reg, m.finished, &errs)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, returning the collector already registered under
// the same descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, errs *[]error) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	*errs = append(*errs, err)
	return c
}

// ObserveDispatch implements api.ReactorObserver.
func (m *Metrics) ObserveDispatch(delivered, registered int) {
	m.dispatches.Inc()
	m.delivered.Add(float64(delivered))
	m.registrations.Set(float64(registered))
	m.set("reactor.registered", registered)
}

// ObserveRead implements api.TaskObserver.
func (m *Metrics) ObserveRead(outcome string, n int) {
	m.reads.WithLabelValues(outcome).Inc()
	if n > 0 {
		m.readBytes.Add(float64(n))
	}
}

// ObserveFinish implements api.TaskObserver.
func (m *Metrics) ObserveFinish(result string) {
	m.finished.WithLabelValues(result).Inc()
	m.set("task.last_result", result)
}

func (m *Metrics) set(key string, value any) {
	m.mu.Lock()
	m.last[key] = value
	m.updated = time.Now()
	m.mu.Unlock()
}

// GetSnapshot returns the last values seen by the observers.
func (m *Metrics) GetSnapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.last)+1)
	for k, v := range m.last {
		out[k] = v
	}
	if !m.updated.IsZero() {
		out["updated"] = m.updated
	}
	return out
}

// Registrations returns the registered-descriptor gauge.
func (m *Metrics) Registrations() prometheus.Gauge { return m.registrations }

// Dispatches returns the dispatch cycle counter.
func (m *Metrics) Dispatches() prometheus.Counter { return m.dispatches }

// Reads returns the read counter, labelled by outcome.
func (m *Metrics) Reads() *prometheus.CounterVec { return m.reads }

// Finished returns the finished-task counter, labelled by result.
func (m *Metrics) Finished() *prometheus.CounterVec { return m.finished }
