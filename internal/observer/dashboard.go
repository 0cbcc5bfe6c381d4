package observer

import (
	"time"

	"github.com/xela07ax/resilience-control-plane/internal/domain"
)

// Dashboard — то, что рисует фронтенд. Собирается всегда, даже когда
// все сервисы лежат.
type Dashboard struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Services    []ServiceView `json:"services"`
}

// ServiceView — состояние одного сервиса на дашборде.
type ServiceView struct {
	Name      string                 `json:"name"`
	Endpoint  string                 `json:"endpoint"`
	Polled    bool                   `json:"polled"`
	Healthy   bool                   `json:"healthy"`
	Health    *domain.HealthDocument `json:"health,omitempty"`
	RTTMs     int64                  `json:"rtt_ms"`
	CheckedAt *time.Time             `json:"checked_at,omitempty"`
	Window    *domain.WindowSnapshot `json:"window,omitempty"`
}

// Dashboard собирает снимок по всем целям в порядке конфигурации.
func (o *Observer) Dashboard() Dashboard {
	o.mu.RLock()
	latest := make(map[string]Status, len(o.latest))
	for k, v := range o.latest {
		latest[k] = v
	}
	o.mu.RUnlock()

	d := Dashboard{GeneratedAt: o.now(), Services: make([]ServiceView, 0, len(o.targets))}
	for _, t := range o.targets {
		view := ServiceView{Name: t.Name, Endpoint: endpoint(t)}
		if st, ok := latest[t.Name]; ok {
			doc := st.Document
			at := st.CheckedAt
			view.Polled = true
			view.Healthy = doc.Healthy
			view.Health = &doc
			view.RTTMs = st.RTT.Milliseconds()
			view.CheckedAt = &at
		}
		if w, ok := o.windows[t.Name]; ok {
			snap := w.Snapshot()
			view.Window = &snap
		}
		d.Services = append(d.Services, view)
	}
	return d
}
