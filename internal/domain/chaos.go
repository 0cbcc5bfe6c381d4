package domain

import (
	"fmt"
	"math"
	"time"
)

// MaxLatencyMs — предел latency_ms, при котором задержка еще помещается в time.Duration.
const MaxLatencyMs int64 = math.MaxInt64 / int64(time.Millisecond)

// ChaosConfig — текущая конфигурация внедрения сбоев.
// Значение всегда полностью определено: заменяется целиком, частичных патчей нет.
type ChaosConfig struct {
	LatencyEnabled     bool    `json:"latency"`
	LatencyMs          int     `json:"latency_ms"`
	CrashRate          float64 `json:"crash_rate"`
	PartialFailureRate float64 `json:"partial_failure_rate"`
}

// DefaultChaosConfig — всё выключено, всё по нулям.
func DefaultChaosConfig() ChaosConfig {
	return ChaosConfig{}
}

// IsActive сообщает, влияет ли конфигурация хоть на один запрос.
func (c ChaosConfig) IsActive() bool {
	return c.LatencyEnabled || c.CrashRate > 0 || c.PartialFailureRate > 0
}

// Validate проверяет диапазоны полей. Ошибка оборачивает ErrInvalidConfiguration.
func (c ChaosConfig) Validate() error {
	if c.LatencyMs < 0 {
		return fmt.Errorf("%w: latency_ms must be >= 0, got %d", ErrInvalidConfiguration, c.LatencyMs)
	}
	if int64(c.LatencyMs) > MaxLatencyMs {
		return fmt.Errorf("%w: latency_ms must be <= %d, got %d", ErrInvalidConfiguration, MaxLatencyMs, c.LatencyMs)
	}
	if !isProbability(c.CrashRate) {
		return fmt.Errorf("%w: crash_rate must be within [0, 1], got %v", ErrInvalidConfiguration, c.CrashRate)
	}
	if !isProbability(c.PartialFailureRate) {
		return fmt.Errorf("%w: partial_failure_rate must be within [0, 1], got %v", ErrInvalidConfiguration, c.PartialFailureRate)
	}
	return nil
}

// Latency — задержка, которую гейт добавляет к запросу. Ноль, если
// задержка выключена.
func (c ChaosConfig) Latency() time.Duration {
	if !c.LatencyEnabled || c.LatencyMs <= 0 {
		return 0
	}
	return time.Duration(min(int64(c.LatencyMs), MaxLatencyMs)) * time.Millisecond
}

func isProbability(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// ChaosStatus — ответ GET /admin/chaos.
type ChaosStatus struct {
	ChaosConfig
	IsActive bool `json:"isActive"`
}

// ChaosEffect — исход прохода запроса через гейт.
type ChaosEffect string

const (
	EffectNone     ChaosEffect = "none"
	EffectCrash    ChaosEffect = "crash"
	EffectDegraded ChaosEffect = "degraded"
)

// ChaosPreset — готовые сценарии из панели управления.
type ChaosPreset struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Config      ChaosConfig `json:"config"`
}

var chaosPresets = []ChaosPreset{
	{
		Name:        "mild",
		Description: "2s latency, 10% crash rate, 5% partial failures",
		Config:      ChaosConfig{LatencyEnabled: true, LatencyMs: 2000, CrashRate: 0.1, PartialFailureRate: 0.05},
	},
	{
		Name:        "moderate",
		Description: "5s latency, 30% crash rate, 20% partial failures",
		Config:      ChaosConfig{LatencyEnabled: true, LatencyMs: 5000, CrashRate: 0.3, PartialFailureRate: 0.2},
	},
	{
		Name:        "severe",
		Description: "10s latency, 50% crash rate, 30% partial failures",
		Config:      ChaosConfig{LatencyEnabled: true, LatencyMs: 10000, CrashRate: 0.5, PartialFailureRate: 0.3},
	},
}

// ChaosPresets возвращает копию списка пресетов.
func ChaosPresets() []ChaosPreset {
	out := make([]ChaosPreset, len(chaosPresets))
	copy(out, chaosPresets)
	return out
}

// FindChaosPreset ищет пресет по имени.
func FindChaosPreset(name string) (ChaosPreset, bool) {
	for _, p := range chaosPresets {
		if p.Name == name {
			return p, true
		}
	}
	return ChaosPreset{}, false
}
