// health.go - Reachability checks for the services the CLI depends on
package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"poofkit/internal/circuits"
	"poofkit/internal/keys"
	"poofkit/internal/relayer"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Degraded  HealthStatus = "degraded"
	Unhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents the health of a specific component
type ComponentHealth struct {
	Name      string        `json:"name"`
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message"`
	LastCheck time.Time     `json:"last_check"`
	Latency   time.Duration `json:"latency,omitempty"`
}

// SystemHealth represents the overall health
type SystemHealth struct {
	OverallStatus HealthStatus      `json:"overall_status"`
	Timestamp     time.Time         `json:"timestamp"`
	Components    []ComponentHealth `json:"components"`
	Version       string            `json:"version"`
}

type check struct {
	run func(ctx context.Context) error
	// optional components only degrade the overall status
	optional bool
}

// HealthChecker runs registered checks concurrently
type HealthChecker struct {
	mu      sync.Mutex
	version string
	checks  map[string]check
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{version: version, checks: make(map[string]check)}
}

// RegisterComponent registers a check that makes the system unhealthy when it fails
func (hc *HealthChecker) RegisterComponent(name string, run func(ctx context.Context) error) {
	hc.register(name, check{run: run})
}

// RegisterOptional registers a check that only degrades the system when it fails
func (hc *HealthChecker) RegisterOptional(name string, run func(ctx context.Context) error) {
	hc.register(name, check{run: run, optional: true})
}

func (hc *HealthChecker) register(name string, c check) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = c
}

// CheckHealth performs every registered check
func (hc *HealthChecker) CheckHealth(ctx context.Context) *SystemHealth {
	hc.mu.Lock()
	checks := make(map[string]check, len(hc.checks))
	for name, c := range hc.checks {
		checks[name] = c
	}
	hc.mu.Unlock()

	var wg sync.WaitGroup
	results := make(chan ComponentHealth, len(checks))
	for name, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := c.run(ctx)
			component := ComponentHealth{Name: name, Status: Healthy, Message: "OK", LastCheck: time.Now(), Latency: time.Since(start)}
			if err != nil {
				component.Status = Unhealthy
				if c.optional {
					component.Status = Degraded
				}
				component.Message = err.Error()
			}
			results <- component
		}()
	}
	wg.Wait()
	close(results)

	overallStatus := Healthy
	components := make([]ComponentHealth, 0, len(checks))
	for component := range results {
		if component.Status == Unhealthy {
			overallStatus = Unhealthy
		} else if component.Status == Degraded && overallStatus == Healthy {
			overallStatus = Degraded
		}
		components = append(components, component)
	}
	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })

	return &SystemHealth{
		OverallStatus: overallStatus,
		Timestamp:     time.Now(),
		Components:    components,
		Version:       hc.version,
	}
}

// newHealthChecks registers the node, the relayer and the proving material of a.
func newHealthChecks(a *app) *HealthChecker {
	hc := NewHealthChecker(version)
	hc.RegisterComponent("rpc", func(ctx context.Context) error {
		if _, err := a.connect(ctx); err != nil {
			return err
		}
		_, err := a.client.BlockNumber(ctx)
		return err
	})
	if a.cfg.RelayerURL != "" {
		hc.RegisterOptional("relayer", func(ctx context.Context) error {
			_, err := relayer.NewClient(a.cfg.RelayerURL, a.log).Status(ctx)
			return err
		})
	}
	hc.RegisterOptional("proving-keys", func(ctx context.Context) error {
		rc, err := keys.NewSource(a.cfg.KeysLocation).Open(ctx, keys.CircuitFile(circuits.Deposit))
		if err != nil {
			return err
		}
		return rc.Close()
	})
	return hc
}
