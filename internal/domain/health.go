package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Статусы подпроверок.
const (
	CheckOK            = "ok"
	CheckAccessible    = "accessible"
	CheckFailed        = "failed"
	CheckNotAccessible = "not accessible"
	CheckUnknown       = "unknown"
	CheckDegraded      = "degraded"
)

// Check — одна именованная подпроверка.
type Check struct {
	Name   string
	Status string
}

// Checks — упорядоченный набор подпроверок. В JSON сериализуется объектом
// с сохранением порядка добавления.
type Checks []Check

// Get возвращает статус подпроверки по имени.
func (c Checks) Get(name string) (string, bool) {
	for _, ch := range c {
		if ch.Name == name {
			return ch.Status, true
		}
	}
	return "", false
}

func (c Checks) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ch := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(ch.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(ch.Status)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Checks) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("checks: expected object, got %v", tok)
	}

	out := Checks{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		// Чужие сервисы могут прислать не строку — сохраняем как есть
		var status string
		if err := json.Unmarshal(raw, &status); err != nil {
			status = string(raw)
		}
		out = append(out, Check{Name: key, Status: status})
	}
	*c = out
	return nil
}

// ProbeResult — вердикт по одной зависимости. Создается заново на каждый
// прогон и после создания не меняется. Error заполнен тогда и только тогда,
// когда Healthy == false.
type ProbeResult struct {
	Healthy    bool           `json:"healthy"`
	Checks     Checks         `json:"checks"`
	Details    map[string]any `json:"details,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// HealthyResult собирает успешный результат.
func HealthyResult(checks Checks, details map[string]any) ProbeResult {
	return ProbeResult{Healthy: true, Checks: checks, Details: details}
}

// UnhealthyResult собирает провальный результат; пустая причина заменяется
// на ErrDependencyUnavailable, чтобы инвариант error<=>!healthy не нарушался.
func UnhealthyResult(reason string, checks Checks, details map[string]any) ProbeResult {
	if reason == "" {
		reason = ErrDependencyUnavailable.Error()
	}
	return ProbeResult{Healthy: false, Checks: checks, Details: details, Error: reason}
}

// WithDuration возвращает копию с проставленной длительностью прогона.
func (r ProbeResult) WithDuration(d time.Duration) ProbeResult {
	r.DurationMs = d.Milliseconds()
	return r
}

// LatencyAttribution — разбивка времени ответа /health/deep по компонентам.
type LatencyAttribution struct {
	TotalMs    int64            `json:"total_ms"`
	Components map[string]int64 `json:"components"`
}

// HealthDocument — композитный документ здоровья сервиса.
type HealthDocument struct {
	ProbeResult
	Service      string                 `json:"service"`
	RunID        string                 `json:"run_id,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	Dependencies map[string]ProbeResult `json:"dependencies,omitempty"`
	Latency      *LatencyAttribution    `json:"latency,omitempty"`
}

// UnreachableDocument — документ для сервиса, до которого не достучались.
// Выглядит так же, как healthy=false, присланный самим сервисом.
func UnreachableDocument(service string, err error, at time.Time) HealthDocument {
	reason := ErrDependencyUnavailable.Error()
	if err != nil {
		reason = err.Error()
	}
	return HealthDocument{
		ProbeResult: UnhealthyResult(reason, Checks{{Name: "connection", Status: CheckFailed}}, nil),
		Service:     service,
		Timestamp:   at,
	}
}
