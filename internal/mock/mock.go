// Package mock implements a synthetic fixture data source: three
// tables (services, deployments, incidents) held as in-memory slices
// of rows, with a Trace implementation that hops between them on a
// shared key value.
package mock

import (
	"context"
	"fmt"

	"github.com/infraql/infraql/internal/plugin"
	"github.com/infraql/infraql/internal/rowset"
)

const sourceName = "mock"

// Source is the in-process fixture plugin. It requires no
// configuration and its only failing call is Query on a table it does
// not hold, making it a stable target for exercising the executor and
// registry in tests.
type Source struct {
	tables map[string]table
}

type table struct {
	columns []rowset.ColumnInfo
	rows    []rowset.Row
}

// New builds the mock source with its fixture data already populated;
// Initialise is a no-op.
func New() *Source {
	return &Source{tables: fixtureTables()}
}

func (s *Source) Name() string { return sourceName }

func (s *Source) Initialise(ctx context.Context, config interface{}) error {
	return nil
}

func (s *Source) Tables(ctx context.Context) ([]plugin.TableInfo, error) {
	names := []string{"services", "deployments", "incidents"}
	out := make([]plugin.TableInfo, 0, len(names))
	for _, name := range names {
		t := s.tables[name]
		rowCount := len(t.rows)
		out = append(out, plugin.TableInfo{
			Name:        name,
			Description: tableDescriptions[name],
			Columns:     t.columns,
			RowCount:    &rowCount,
		})
	}
	return out, nil
}

func (s *Source) Query(ctx context.Context, tableName string, filters []plugin.Filter, options plugin.QueryOptions) (*rowset.QueryResult, error) {
	t, ok := s.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("mock: unknown table %q", tableName)
	}

	rows := make([]rowset.Row, len(t.rows))
	for i, r := range t.rows {
		clone := r.Clone()
		delete(clone, "timestamp") // internal bookkeeping for Trace, not a declared column
		rows[i] = clone
	}

	return &rowset.QueryResult{
		Columns:    t.columns,
		Rows:       rows,
		RowCount:   len(rows),
		TotalCount: len(rows),
		Source:     sourceName,
	}, nil
}

// Trace implements plugin.TraceCapable: it scans every fixture table
// for rows whose identifier field — or, for the services table, whose
// "id" field when identifier is "service_id" — equals value.
func (s *Source) Trace(ctx context.Context, identifier string, value interface{}) ([]rowset.Hop, error) {
	var hops []rowset.Hop
	for _, name := range []string{"services", "deployments", "incidents"} {
		t := s.tables[name]
		for _, row := range t.rows {
			matched := false
			if v, ok := row[identifier]; ok && v == value {
				matched = true
			}
			if name == "services" && identifier == "service_id" {
				if v, ok := row["id"]; ok && v == value {
					matched = true
				}
			}
			if !matched {
				continue
			}
			ts, _ := row["timestamp"].(string)
			hops = append(hops, rowset.Hop{
				Source:    sourceName,
				Table:     name,
				Timestamp: ts,
				Data:      row.Clone(),
			})
		}
	}
	return hops, nil
}

// HealthCheck implements plugin.HealthCapable: the mock source is
// always healthy.
func (s *Source) HealthCheck(ctx context.Context) (plugin.HealthStatus, error) {
	return plugin.HealthStatus{Healthy: true, Message: "mock source is synthetic and always reachable"}, nil
}

var tableDescriptions = map[string]string{
	"services":    "logical services known to the fixture fleet",
	"deployments": "deployment records, one per service revision",
	"incidents":   "operational incidents opened against services",
}

func fixtureTables() map[string]table {
	servicesColumns := []rowset.ColumnInfo{
		{Name: "id", Type: rowset.TypeString, Description: "service identifier"},
		{Name: "name", Type: rowset.TypeString, Description: "human-readable service name"},
		{Name: "environment", Type: rowset.TypeString, Description: "deployment environment"},
		{Name: "version", Type: rowset.TypeString, Description: "deployed semantic version"},
		{Name: "status", Type: rowset.TypeString, Description: "current health status"},
		{Name: "cpu_usage", Type: rowset.TypeNumber, Description: "CPU utilisation percentage"},
		{Name: "memory_usage", Type: rowset.TypeNumber, Description: "memory utilisation percentage"},
	}
	servicesRows := []rowset.Row{
		{"id": "svc-1", "name": "api-gateway", "environment": "production", "version": "1.2.0", "status": "active", "cpu_usage": 45.2, "memory_usage": 60.1, "timestamp": "2026-01-01T00:00:00Z"},
		{"id": "svc-2", "name": "auth-service", "environment": "production", "version": "2.0.1", "status": "active", "cpu_usage": 30.0, "memory_usage": 50.0, "timestamp": "2026-01-01T00:05:00Z"},
		{"id": "svc-3", "name": "data-processor", "environment": "staging", "version": "0.9.5", "status": "degraded", "cpu_usage": 80.0, "memory_usage": 90.0, "timestamp": "2026-01-01T00:10:00Z"},
	}

	deploymentsColumns := []rowset.ColumnInfo{
		{Name: "id", Type: rowset.TypeString},
		{Name: "service_id", Type: rowset.TypeString},
		{Name: "replicas", Type: rowset.TypeNumber},
		{Name: "image", Type: rowset.TypeString},
	}
	deploymentsRows := []rowset.Row{
		{"id": "dep-1", "service_id": "svc-1", "replicas": int64(2), "image": "api-gateway:1.2.0", "timestamp": "2026-01-02T00:00:00Z"},
		{"id": "dep-2", "service_id": "svc-2", "replicas": int64(3), "image": "auth-service:2.0.1", "timestamp": "2026-01-02T00:05:00Z"},
		{"id": "dep-3", "service_id": "svc-3", "replicas": int64(1), "image": "data-processor:0.9.5", "timestamp": "2026-01-02T00:10:00Z"},
	}

	incidentsColumns := []rowset.ColumnInfo{
		{Name: "id", Type: rowset.TypeString},
		{Name: "service_id", Type: rowset.TypeString},
		{Name: "severity", Type: rowset.TypeString},
		{Name: "resolved", Type: rowset.TypeBoolean},
	}
	incidentsRows := []rowset.Row{
		{"id": "inc-1", "service_id": "svc-1", "severity": "low", "resolved": true, "timestamp": "2026-01-03T00:00:00Z"},
		{"id": "inc-2", "service_id": "svc-3", "severity": "high", "resolved": false, "timestamp": "2026-01-03T01:00:00Z"},
	}

	return map[string]table{
		"services":    {columns: servicesColumns, rows: servicesRows},
		"deployments": {columns: deploymentsColumns, rows: deploymentsRows},
		"incidents":   {columns: incidentsColumns, rows: incidentsRows},
	}
}
