package nerdgraph

import (
	"fmt"

	"github.com/saturnines/newrelic-mcp/pkg/response"
	"github.com/saturnines/newrelic-mcp/pkg/validate"
)

// ApplicationsNRQL lists application names seen in the last day
const ApplicationsNRQL = "SELECT uniques(appName) as 'applications' FROM Transaction SINCE 1 day ago LIMIT 100"

// PerformanceNRQL reports latency and throughput for one application
func PerformanceNRQL(app string, hours int) string {
	return fmt.Sprintf("SELECT average(duration) as avg_duration, percentile(duration, 95) as p95_duration, "+
		"rate(count(*), 1 minute) as throughput FROM Transaction WHERE appName = '%s' SINCE %d hours ago",
		validate.Quote(app), hours)
}

// ErrorsNRQL counts TransactionError events for one application
func ErrorsNRQL(app string, hours int) string {
	return fmt.Sprintf("SELECT count(*) as error_count, average(duration) as avg_duration FROM TransactionError "+
		"WHERE appName = '%s' SINCE %d hours ago", validate.Quote(app), hours)
}

// ErrorsFallbackNRQL counts errored transactions when TransactionError is empty
func ErrorsFallbackNRQL(app string, hours int) string {
	return fmt.Sprintf("SELECT count(*) as error_count FROM Transaction WHERE appName = '%s' "+
		"AND error IS TRUE SINCE %d hours ago", validate.Quote(app), hours)
}

// IncidentsNRQL reads recent NrAiIncident events
func IncidentsNRQL(hours int) string {
	return fmt.Sprintf("SELECT * FROM NrAiIncident SINCE %d hours ago LIMIT 50", hours)
}

// IncidentsFallbackNRQL reads legacy Alert events
func IncidentsFallbackNRQL(hours int) string {
	return fmt.Sprintf("SELECT * FROM Alert SINCE %d hours ago LIMIT 50", hours)
}

// HostsNRQL reports the latest resource usage per host
func HostsNRQL(hours int) string {
	return fmt.Sprintf("SELECT latest(cpuPercent) as cpu_percent, latest(memoryUsedPercent) as memory_percent, "+
		"latest(diskUsedPercent) as disk_percent FROM SystemSample FACET hostname SINCE %d hours ago LIMIT 50", hours)
}

// HostsFallbackNRQL lists host names only
func HostsFallbackNRQL(hours int) string {
	return fmt.Sprintf("SELECT uniques(hostname) as hosts FROM SystemSample SINCE %d hours ago LIMIT 50", hours)
}

// ViolationsNRQL reads activated and closed incidents
func ViolationsNRQL(hours int) string {
	return fmt.Sprintf("SELECT * FROM NrAiIncident WHERE state IN ('ACTIVATED', 'CLOSED') SINCE %d hours ago LIMIT 50", hours)
}

// ViolationsFallbackNRQL reads AlertEvent records
func ViolationsFallbackNRQL(hours int) string {
	return fmt.Sprintf("SELECT * FROM AlertEvent SINCE %d hours ago LIMIT 50", hours)
}

// DeploymentsNRQL reads deployment markers, optionally for one application
func DeploymentsNRQL(app string, hours int) string {
	if app == "" {
		return fmt.Sprintf("SELECT * FROM Deployment SINCE %d hours ago LIMIT 50", hours)
	}
	return fmt.Sprintf("SELECT * FROM Deployment WHERE appName = '%s' SINCE %d hours ago LIMIT 20",
		validate.Quote(app), hours)
}

// DeploymentsFallbackNRQL approximates deployments from transaction facets
func DeploymentsFallbackNRQL(app string, hours int) string {
	if app == "" {
		return fmt.Sprintf("SELECT count(*) as transaction_count, average(duration) as avg_duration FROM Transaction "+
			"FACET appName SINCE %d hours ago LIMIT 20", hours)
	}
	return fmt.Sprintf("SELECT count(*) as transaction_count, average(duration) as avg_duration FROM Transaction "+
		"WHERE appName = '%s' FACET timestamp SINCE %d hours ago LIMIT 20", validate.Quote(app), hours)
}

// NRQLResults returns data.actor.account.nrql.results from a QueryNRQL body
func NRQLResults(body map[string]any) []any {
	v, _ := response.Dig(body, "data", "actor", "account", "nrql", "results")
	return response.Items(v)
}
