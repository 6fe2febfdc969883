package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/saturnines/newrelic-mcp/pkg/args"
	"github.com/saturnines/newrelic-mcp/pkg/nerdgraph"
	"github.com/saturnines/newrelic-mcp/pkg/response"
	"github.com/saturnines/newrelic-mcp/pkg/validate"
)

func hoursArg(a args.Args, def int) (int, error) {
	h, err := a.Int("hours", def)
	if err != nil {
		return 0, err
	}
	return validate.Hours(h)
}

// nrqlWithFallback runs primary, then fallback if primary fails. When both
// fail the result is an empty list unless the context itself is done.
func (b base) nrqlWithFallback(ctx context.Context, accountID, primary, fallback, what string) ([]any, error) {
	rows, err := b.nrql(ctx, accountID, primary)
	if err == nil {
		return rows, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	b.logger.Warn("query failed, trying fallback", zap.String("query", what), zap.Error(err))

	rows, err = b.nrql(ctx, accountID, fallback)
	if err == nil {
		return rows, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	b.logger.Warn("fallback query failed, returning empty list", zap.String("query", what), zap.Error(err))
	return []any{}, nil
}

func firstRow(rows []any) map[string]any {
	if len(rows) == 0 {
		return nil
	}
	row, _ := rows[0].(map[string]any)
	return row
}

// QueryNRQL runs a caller-written NRQL query
type QueryNRQL struct{ base }

func (h *QueryNRQL) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	raw, err := a.RequiredString("query")
	if err != nil {
		return response.FromError("", err)
	}
	query, err := validate.NRQL(raw)
	if err != nil {
		return response.FromError("", err)
	}

	rows, err := h.nrql(ctx, accountID, query)
	if err != nil {
		return response.FromError("running NRQL query", err)
	}
	return response.FormatList("results", rows)
}

// AppPerformance reports latency and throughput for one application
type AppPerformance struct{ base }

func (h *AppPerformance) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	app, hours, env := appAndHours(a)
	if env != nil {
		return env
	}

	rows, err := h.nrql(ctx, accountID, nerdgraph.PerformanceNRQL(app, hours))
	if err != nil {
		return response.FromError(fmt.Sprintf("getting performance metrics for %s", app), err)
	}

	row := firstRow(rows)
	if row == nil {
		h.logger.Warn("no performance data", zap.String("app", app))
	}
	return response.Success(map[string]any{
		"app_name":     app,
		"hours":        hours,
		"avg_duration": row["avg_duration"],
		"p95_duration": row["p95_duration"],
		"throughput":   row["throughput"],
		"has_data":     row != nil,
	})
}

// AppErrors reports error counts for one application
type AppErrors struct{ base }

func (h *AppErrors) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	app, hours, env := appAndHours(a)
	if env != nil {
		return env
	}
	action := fmt.Sprintf("getting error metrics for %s", app)

	rows, err := h.nrql(ctx, accountID, nerdgraph.ErrorsNRQL(app, hours))
	if err != nil {
		return response.FromError(action, err)
	}
	row := firstRow(rows)
	if row == nil {
		rows, err = h.nrql(ctx, accountID, nerdgraph.ErrorsFallbackNRQL(app, hours))
		if err != nil {
			return response.FromError(action, err)
		}
		row = firstRow(rows)
	}
	if row == nil {
		row = map[string]any{"error_count": 0, "avg_duration": nil}
	}

	return response.Success(map[string]any{
		"app_name":     app,
		"hours":        hours,
		"error_count":  row["error_count"],
		"avg_duration": row["avg_duration"],
	})
}

func appAndHours(a args.Args) (string, int, response.Envelope) {
	raw, err := a.RequiredString("app_name")
	if err != nil {
		return "", 0, response.FromError("", err)
	}
	app, err := validate.AppName(raw)
	if err != nil {
		return "", 0, response.FromError("", err)
	}
	hours, err := hoursArg(a, 1)
	if err != nil {
		return "", 0, response.FromError("", err)
	}
	return app, hours, nil
}

// Incidents lists recent incidents
type Incidents struct{ base }

func (h *Incidents) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	hours, err := hoursArg(a, 24)
	if err != nil {
		return response.FromError("", err)
	}
	rows, err := h.nrqlWithFallback(ctx, accountID,
		nerdgraph.IncidentsNRQL(hours), nerdgraph.IncidentsFallbackNRQL(hours), "incidents")
	if err != nil {
		return response.FromError("getting incidents", err)
	}
	return response.FormatList("incidents", rows)
}

// InfrastructureHosts lists hosts with their latest resource usage
type InfrastructureHosts struct{ base }

func (h *InfrastructureHosts) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	hours, err := hoursArg(a, 1)
	if err != nil {
		return response.FromError("", err)
	}
	rows, err := h.nrqlWithFallback(ctx, accountID,
		nerdgraph.HostsNRQL(hours), nerdgraph.HostsFallbackNRQL(hours), "infrastructure hosts")
	if err != nil {
		return response.FromError("getting infrastructure hosts", err)
	}
	return response.FormatList("hosts", rows)
}

// AlertViolations lists recent alert violations
type AlertViolations struct{ base }

func (h *AlertViolations) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	hours, err := hoursArg(a, 24)
	if err != nil {
		return response.FromError("", err)
	}
	rows, err := h.nrqlWithFallback(ctx, accountID,
		nerdgraph.ViolationsNRQL(hours), nerdgraph.ViolationsFallbackNRQL(hours), "alert violations")
	if err != nil {
		return response.FromError("getting alert violations", err)
	}
	return response.FormatList("violations", rows)
}

// Deployments lists deployment markers, optionally for one application
type Deployments struct{ base }

func (h *Deployments) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	app := a.String("app_name", "")
	if app != "" {
		var err error
		if app, err = validate.AppName(app); err != nil {
			return response.FromError("", err)
		}
	}
	hours, err := hoursArg(a, 168)
	if err != nil {
		return response.FromError("", err)
	}

	rows, err := h.nrqlWithFallback(ctx, accountID,
		nerdgraph.DeploymentsNRQL(app, hours), nerdgraph.DeploymentsFallbackNRQL(app, hours), "deployments")
	if err != nil {
		return response.FromError("getting deployments", err)
	}
	return response.FormatList("deployments", rows)
}

// ListApplications lists application names reporting transactions
type ListApplications struct{ base }

func (h *ListApplications) Handle(ctx context.Context, _ args.Args, accountID string) response.Envelope {
	rows, err := h.nrql(ctx, accountID, nerdgraph.ApplicationsNRQL)
	if err != nil {
		return response.FromError("listing applications", err)
	}

	apps := []any{}
	for _, r := range rows {
		row, _ := r.(map[string]any)
		names, _ := row["applications"].([]any)
		for _, n := range names {
			apps = append(apps, map[string]any{"name": n, "appName": n})
		}
	}
	return response.FormatList("applications", apps)
}
