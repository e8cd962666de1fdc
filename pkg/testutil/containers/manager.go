//go:build integration

// Package containers manages shared testcontainers instances for integration
// suites. Containers are started once per test binary and shared across
// suites; Ryuk reaps them when the run ends.
package containers

import (
	"sync"
	"testing"
)

// Manager lazily starts and caches one container per backing service.
type Manager struct {
	pgOnce  sync.Once
	pg      *PostgresContainer
	rdOnce  sync.Once
	rd      *RedisContainer
	rpOnce  sync.Once
	rp      *RedpandaContainer
}

var manager = &Manager{}

// GetManager returns the process-wide container manager.
func GetManager() *Manager { return manager }

// GetPostgres returns the shared Postgres container, starting it on first use
// and applying the service schema.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.pgOnce.Do(func() {
		m.pg = NewPostgresContainer(t)
	})
	if m.pg == nil {
		t.Fatal("postgres container failed to start earlier in this run")
	}
	return m.pg
}

// GetRedis returns the shared Redis container, starting it on first use.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	m.rdOnce.Do(func() {
		m.rd = NewRedisContainer(t)
	})
	if m.rd == nil {
		t.Fatal("redis container failed to start earlier in this run")
	}
	return m.rd
}

// GetRedpanda returns the shared Redpanda container, starting it on first use.
func (m *Manager) GetRedpanda(t *testing.T) *RedpandaContainer {
	t.Helper()
	m.rpOnce.Do(func() {
		m.rp = NewRedpandaContainer(t)
	})
	if m.rp == nil {
		t.Fatal("redpanda container failed to start earlier in this run")
	}
	return m.rp
}
