package api

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

const healthTimeout = 3 * time.Second

// HealthReport is the /health response body.
type HealthReport struct {
	Healthy bool                    `json:"healthy"`
	Modules map[string]ModuleHealth `json:"modules"`
}

// ModuleHealth is one checker's status.
type ModuleHealth struct {
	Healthy bool           `json:"healthy"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// healthProbe runs all checkers. Concurrent probes share one run.
type healthProbe struct {
	checkers map[string]HealthChecker
	group    singleflight.Group
}

func newHealthProbe(checkers map[string]HealthChecker) *healthProbe {
	return &healthProbe{checkers: checkers}
}

func (p *healthProbe) check() HealthReport {
	v, _, _ := p.group.Do("health", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()
		return p.run(ctx), nil
	})
	return v.(HealthReport)
}

func (p *healthProbe) run(ctx context.Context) HealthReport {
	report := HealthReport{
		Healthy: true,
		Modules: make(map[string]ModuleHealth, len(p.checkers)),
	}
	for name, checker := range p.checkers {
		status := checker.Health(ctx)
		report.Modules[name] = ModuleHealth{
			Healthy: status.Healthy,
			Message: status.Message,
			Details: status.Details,
		}
		if !status.Healthy {
			report.Healthy = false
		}
	}
	return report
}
