// Package handlers implements one strategy per operation. A handler turns
// tool arguments into NerdGraph calls and maps the result onto an envelope;
// failures are returned as error envelopes, never as Go errors.
package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/saturnines/newrelic-mcp/pkg/args"
	"github.com/saturnines/newrelic-mcp/pkg/nerdgraph"
	"github.com/saturnines/newrelic-mcp/pkg/response"
	"github.com/saturnines/newrelic-mcp/pkg/transport/graphql"
)

// Handler runs one named operation for an account
type Handler interface {
	Handle(ctx context.Context, a args.Args, accountID string) response.Envelope
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, a args.Args, accountID string) response.Envelope

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	return f(ctx, a, accountID)
}

// base carries what every handler shares
type base struct {
	transport graphql.Transport
	logger    *zap.Logger
}

func newBase(transport graphql.Transport, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{transport: transport, logger: logger.Named("handlers")}
}

func (b base) execute(ctx context.Context, query string, variables map[string]any) (map[string]any, error) {
	return b.transport.Execute(ctx, query, variables)
}

func (b base) nrql(ctx context.Context, accountID, query string) ([]any, error) {
	body, err := b.transport.QueryNRQL(ctx, accountID, query)
	if err != nil {
		return nil, err
	}
	return nerdgraph.NRQLResults(body), nil
}

// Monitoring returns the NRQL-backed handlers keyed by operation name
func Monitoring(transport graphql.Transport, logger *zap.Logger) map[string]Handler {
	b := newBase(transport, logger)
	return map[string]Handler{
		"query_nrql":               &QueryNRQL{b},
		"get_app_performance":      &AppPerformance{b},
		"get_app_errors":           &AppErrors{b},
		"get_incidents":            &Incidents{b},
		"get_infrastructure_hosts": &InfrastructureHosts{b},
		"get_alert_violations":     &AlertViolations{b},
		"get_deployments":          &Deployments{b},
		"list_applications":        &ListApplications{b},
	}
}

// Dashboards returns the dashboard handlers keyed by operation name
func Dashboards(transport graphql.Transport, logger *zap.Logger) map[string]Handler {
	b := newBase(transport, logger)
	return map[string]Handler{
		"get_dashboards":          &GetDashboards{b},
		"create_dashboard":        &CreateDashboard{b},
		"add_widget_to_dashboard": &AddWidget{b},
		"search_all_dashboards":   &SearchDashboards{b},
		"get_dashboard_widgets":   &GetWidgets{b},
		"update_widget":           &UpdateWidget{b},
		"delete_widget":           &DeleteWidget{b},
	}
}

// Alerts returns the alerting and notification handlers keyed by operation name
func Alerts(transport graphql.Transport, logger *zap.Logger) map[string]Handler {
	b := newBase(transport, logger)
	return map[string]Handler{
		"create_alert_policy":             &CreateAlertPolicy{b},
		"create_nrql_condition":           &CreateNrqlCondition{b},
		"create_notification_destination": &CreateDestination{b},
		"create_notification_channel":     &CreateChannel{b},
		"create_workflow":                 &CreateWorkflow{b},
		"list_alert_policies":             &ListAlertPolicies{b},
		"list_alert_conditions":           &ListAlertConditions{b},
		"list_notification_destinations":  &ListDestinations{b},
		"list_notification_channels":      &ListChannels{b},
		"list_workflows":                  &ListWorkflows{b},
	}
}

// All merges every handler group
func All(transport graphql.Transport, logger *zap.Logger) map[string]Handler {
	all := map[string]Handler{}
	for _, group := range []map[string]Handler{
		Monitoring(transport, logger),
		Dashboards(transport, logger),
		Alerts(transport, logger),
	} {
		for name, h := range group {
			all[name] = h
		}
	}
	return all
}
