package domain

import "time"

// ResponseTimeSample — один замер времени ответа. После вставки не меняется.
type ResponseTimeSample struct {
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
}

// AlertLevel — уровень по среднему за окно.
type AlertLevel string

const (
	LevelNormal   AlertLevel = "NORMAL"
	LevelWarning  AlertLevel = "WARNING"
	LevelCritical AlertLevel = "CRITICAL"
)

// Gauge переводит уровень в число для Prometheus.
func (l AlertLevel) Gauge() float64 {
	switch l {
	case LevelWarning:
		return 1
	case LevelCritical:
		return 2
	default:
		return 0
	}
}

// AlertEdge — граничное событие: вход в CRITICAL или выход из него.
type AlertEdge string

const (
	EdgeNone            AlertEdge = ""
	EdgeCriticalEntered AlertEdge = "critical_entered"
	EdgeCriticalCleared AlertEdge = "critical_cleared"
)

// WindowSnapshot — неизменяемый срез состояния скользящего окна.
type WindowSnapshot struct {
	Samples     []ResponseTimeSample `json:"samples"`
	Window      time.Duration        `json:"-"`
	WindowMs    int64                `json:"window_ms"`
	AverageMs   float64              `json:"average_ms"`
	Level       AlertLevel           `json:"level"`
	AlertActive bool                 `json:"alert_active"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Transition — результат одной вставки.
type Transition struct {
	Snapshot WindowSnapshot
	Previous AlertLevel
	Edge     AlertEdge
}
