// metrics описывает prometheus-метрики ядра сессии.
//
// Все методы безопасны для nil-получателя: компоненты, собранные без
// метрик (например, в юнит-тестах), просто ничего не считают.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "webads"

// Значения метки result для RefreshTotal.
const (
	RefreshOK      = "ok"
	RefreshFailed  = "failed"
	RefreshNoToken = "no_token"
	RefreshStale   = "stale"
)

// Metrics - набор коллекторов ядра.
type Metrics struct {
	// RefreshTotal - обмены refresh-токена по результату.
	RefreshTotal *prometheus.CounterVec
	// RetryTotal - повторы исходного запроса после обновления, по статусу повтора.
	RetryTotal *prometheus.CounterVec
	// SessionTransitions - переходы автомата сессии по целевому состоянию.
	SessionTransitions *prometheus.CounterVec
	// ThrottleWait - время ожидания клиентского лимитера.
	ThrottleWait prometheus.Histogram
}

// New создаёт коллекторы и регистрирует их в reg (если reg != nil).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "refresh_total", Help: "Refresh-token exchanges by result."},
			[]string{"result"},
		),
		RetryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "retry_total", Help: "Requests replayed after a refresh, by replay status class."},
			[]string{"status"},
		),
		SessionTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "session_transitions_total", Help: "Session state transitions by target state."},
			[]string{"state"},
		),
		ThrottleWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "throttle_wait_seconds",
			Help:      "Time outbound requests spent waiting for the client-side rate limiter.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}

	if reg != nil {
		reg.MustRegister(m.RefreshTotal, m.RetryTotal, m.SessionTransitions, m.ThrottleWait)
	}

	return m
}

// ObserveRefresh учитывает результат обмена refresh-токена.
func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
}

// ObserveRetry учитывает повтор запроса; status - класс ответа ("2xx", "4xx", "error").
func (m *Metrics) ObserveRetry(status string) {
	if m == nil {
		return
	}
	m.RetryTotal.WithLabelValues(status).Inc()
}

// ObserveTransition учитывает переход сессии в state.
func (m *Metrics) ObserveTransition(state string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(state).Inc()
}

// ObserveThrottle учитывает ожидание лимитера в секундах.
func (m *Metrics) ObserveThrottle(seconds float64) {
	if m == nil {
		return
	}
	m.ThrottleWait.Observe(seconds)
}

// StatusClass возвращает "2xx".."5xx" для кода ответа и "error" для 0.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "error"
	}
}
