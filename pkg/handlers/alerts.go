package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/saturnines/newrelic-mcp/pkg/args"
	"github.com/saturnines/newrelic-mcp/pkg/errors"
	"github.com/saturnines/newrelic-mcp/pkg/nerdgraph"
	"github.com/saturnines/newrelic-mcp/pkg/response"
	"github.com/saturnines/newrelic-mcp/pkg/transport/graphql"
	"github.com/saturnines/newrelic-mcp/pkg/validate"
)

// CreateAlertPolicy creates an alert policy
type CreateAlertPolicy struct{ base }

func (h *CreateAlertPolicy) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	name, err := a.RequiredString("name")
	if err != nil {
		return response.FromError("", err)
	}
	account, err := graphql.AccountIDInt(accountID)
	if err != nil {
		return response.FromError("", err)
	}
	preference := a.String("incident_preference", nerdgraph.DefaultIncidentPreference)

	body, err := h.execute(ctx, nerdgraph.PolicyCreateMutation, map[string]any{
		"accountId": account,
		"policy":    nerdgraph.PolicyInput(name, preference),
	})
	if err != nil {
		return response.FromError(fmt.Sprintf("creating alert policy '%s'", name), err)
	}

	policy := response.Object(body, "data", "alertsPolicyCreate")
	if len(policy) == 0 {
		return response.Error("Failed to create alert policy")
	}
	return response.FormatCreate(policy, "id",
		response.F("policy_id", "id"),
		response.F("name", "name"),
		response.F("incident_preference", "incidentPreference"))
}

// CreateNrqlCondition creates a static NRQL alert condition on a policy
type CreateNrqlCondition struct{ base }

func (h *CreateNrqlCondition) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	cond, policyID, err := conditionArgs(a)
	if err != nil {
		return response.FromError("", err)
	}
	account, err := graphql.AccountIDInt(accountID)
	if err != nil {
		return response.FromError("", err)
	}

	body, err := h.execute(ctx, nerdgraph.NrqlConditionCreateMutation, map[string]any{
		"accountId": account,
		"policyId":  policyID,
		"condition": nerdgraph.ConditionInput(cond),
	})
	if err != nil {
		return response.FromError(fmt.Sprintf("creating NRQL condition '%s'", cond.Name), err)
	}

	result := response.Object(body, "data", "alertsNrqlConditionStaticCreate")
	if len(result) == 0 {
		return response.Error("Failed to create NRQL condition")
	}
	return response.FormatCreate(result, "id",
		response.F("condition_id", "id"),
		response.F("name", "name"),
		response.F("enabled", "enabled"),
		response.F("query", "nrql.query"),
		response.F("terms", "terms"))
}

func conditionArgs(a args.Args) (nerdgraph.Condition, string, error) {
	var c nerdgraph.Condition

	policyID, err := a.RequiredString("policy_id")
	if err != nil {
		return c, "", err
	}
	if c.Name, err = a.RequiredString("name"); err != nil {
		return c, "", err
	}
	raw, err := a.RequiredString("nrql_query")
	if err != nil {
		return c, "", err
	}
	if c.Query, err = validate.NRQL(raw); err != nil {
		return c, "", err
	}
	if c.Threshold, err = a.RequiredFloat("threshold"); err != nil {
		return c, "", err
	}
	if c.Duration, err = a.Int("threshold_duration", nerdgraph.DefaultThresholdDuration); err != nil {
		return c, "", err
	}
	if c.AggregationWindow, err = a.Int("aggregation_window", nerdgraph.DefaultAggregationWindow); err != nil {
		return c, "", err
	}
	c.Operator = a.String("threshold_operator", nerdgraph.DefaultThresholdOperator)
	c.Priority = a.String("priority", nerdgraph.DefaultPriority)
	c.Description = a.String("description", "")
	return c, policyID, nil
}

// CreateDestination creates a notification destination
type CreateDestination struct{ base }

func (h *CreateDestination) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	name, err := a.RequiredString("name")
	if err != nil {
		return response.FromError("", err)
	}
	destType, err := a.RequiredString("type")
	if err != nil {
		return response.FromError("", err)
	}
	props, err := a.Map("properties")
	if err != nil {
		return response.FromError("", err)
	}
	account, err := graphql.AccountIDInt(accountID)
	if err != nil {
		return response.FromError("", err)
	}
	action := fmt.Sprintf("creating notification destination '%s'", name)

	body, err := h.execute(ctx, nerdgraph.DestinationCreateMutation, map[string]any{
		"accountId":   account,
		"destination": nerdgraph.DestinationInput(name, destType, props),
	})
	if err != nil {
		return response.FromError(action, err)
	}

	payload := response.Object(body, "data", "aiNotificationsCreateDestination")
	if err := nerdgraph.MutationError(payload, "Destination creation"); err != nil {
		return response.FromError(action, err)
	}
	return response.FormatCreate(response.Object(payload, "destination"), "id",
		response.F("destination_id", "id"),
		response.F("name", "name"),
		response.F("type", "type"),
		response.F("properties", "properties"))
}

// CreateChannel creates a notification channel on a destination
type CreateChannel struct{ base }

func (h *CreateChannel) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	name, err := a.RequiredString("name")
	if err != nil {
		return response.FromError("", err)
	}
	destinationID, err := a.RequiredString("destination_id")
	if err != nil {
		return response.FromError("", err)
	}
	channelType, err := a.RequiredString("type")
	if err != nil {
		return response.FromError("", err)
	}
	props, err := a.Map("properties")
	if err != nil {
		return response.FromError("", err)
	}
	account, err := graphql.AccountIDInt(accountID)
	if err != nil {
		return response.FromError("", err)
	}
	action := fmt.Sprintf("creating notification channel '%s'", name)
	product := a.String("product", nerdgraph.DefaultChannelProduct)

	body, err := h.execute(ctx, nerdgraph.ChannelCreateMutation, map[string]any{
		"accountId": account,
		"channel":   nerdgraph.ChannelInput(name, destinationID, channelType, product, props),
	})
	if err != nil {
		return response.FromError(action, err)
	}

	payload := response.Object(body, "data", "aiNotificationsCreateChannel")
	if err := nerdgraph.MutationError(payload, "Channel creation"); err != nil {
		return response.FromError(action, err)
	}
	return response.FormatCreate(response.Object(payload, "channel"), "id",
		response.F("channel_id", "id"),
		response.F("name", "name"),
		response.F("type", "type"),
		response.F("destination_id", "destinationId"),
		response.F("product", "product"),
		response.F("properties", "properties"))
}

// CreateWorkflow routes issues to notification channels
type CreateWorkflow struct{ base }

func (h *CreateWorkflow) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	name, err := a.RequiredString("name")
	if err != nil {
		return response.FromError("", err)
	}
	channelIDs, err := a.Strings("channel_ids")
	if err != nil {
		return response.FromError("", err)
	}
	if len(channelIDs) == 0 {
		return response.Error("channel_ids must contain at least one channel id")
	}
	enabled, err := a.Bool("enabled", true)
	if err != nil {
		return response.FromError("", err)
	}
	predicates, err := listArg(a, "filter_predicates")
	if err != nil {
		return response.FromError("", err)
	}
	account, err := graphql.AccountIDInt(accountID)
	if err != nil {
		return response.FromError("", err)
	}
	action := fmt.Sprintf("creating workflow '%s'", name)

	body, err := h.execute(ctx, nerdgraph.WorkflowCreateMutation, map[string]any{
		"accountId": account,
		"createWorkflowData": nerdgraph.WorkflowInput(name, channelIDs, enabled,
			a.String("filter_name", nerdgraph.DefaultFilterName), predicates),
	})
	if err != nil {
		return response.FromError(action, err)
	}

	payload := response.Object(body, "data", "aiWorkflowsCreateWorkflow")
	if err := nerdgraph.MutationError(payload, "Workflow creation"); err != nil {
		return response.FromError(action, err)
	}
	return response.FormatCreate(response.Object(payload, "workflow"), "id",
		response.F("workflow_id", "id"),
		response.F("name", "name"),
		response.F("destination_configurations", "destinationConfigurations"),
		response.F("issues_filter", "issuesFilter"),
		response.F("enrichments", "enrichments"))
}

// listArg reads an array argument, accepting a JSON-encoded string
func listArg(a args.Args, key string) ([]any, error) {
	if !a.Has(key) {
		return nil, nil
	}
	switch v := a[key].(type) {
	case []any:
		return v, nil
	case string:
		var out []any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, errors.WrapError(err, errors.ErrValidation, "invalid argument "+key)
		}
		return out, nil
	default:
		return nil, errors.WrapError(fmt.Errorf("cannot convert %T to a list", v), errors.ErrValidation, "invalid argument "+key)
	}
}

// listing describes one cursor-paged NerdGraph collection
type listing struct {
	query     string
	path      []string
	itemsKey  string
	outKey    string
	action    string
	criteria  map[string]any
	extraOpts []response.ListOption
}

func (b base) list(ctx context.Context, a args.Args, accountID string, l listing) response.Envelope {
	account, err := graphql.AccountIDInt(accountID)
	if err != nil {
		return response.FromError("", err)
	}
	vars := map[string]any{"accountId": account}
	if cursor := a.String("cursor", ""); cursor != "" {
		vars["cursor"] = cursor
	}
	if l.criteria != nil {
		vars["criteria"] = l.criteria
	}

	body, err := b.execute(ctx, l.query, vars)
	if err != nil {
		return response.FromError(l.action, err)
	}

	data := response.Object(body, l.path...)
	opts := append([]response.ListOption{
		response.WithTotal(data["totalCount"]),
		response.WithCursor(data["nextCursor"]),
	}, l.extraOpts...)
	return response.FormatList(l.outKey, response.Items(data[l.itemsKey]), opts...)
}

// ListAlertPolicies lists alert policies
type ListAlertPolicies struct{ base }

func (h *ListAlertPolicies) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	return h.list(ctx, a, accountID, listing{
		query:    nerdgraph.PoliciesQuery,
		path:     []string{"data", "actor", "account", "alerts", "policiesSearch"},
		itemsKey: "policies",
		outKey:   "policies",
		action:   "listing alert policies",
	})
}

// ListAlertConditions lists NRQL conditions, optionally for one policy
type ListAlertConditions struct{ base }

func (h *ListAlertConditions) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	l := listing{
		query:    nerdgraph.ConditionsQuery,
		path:     []string{"data", "actor", "account", "alerts", "nrqlConditionsSearch"},
		itemsKey: "nrqlConditions",
		outKey:   "conditions",
		action:   "listing alert conditions",
	}
	if policyID := a.String("policy_id", ""); policyID != "" {
		l.criteria = map[string]any{"policyId": policyID}
		l.extraOpts = []response.ListOption{response.WithField("policy_id", policyID)}
	}
	return h.list(ctx, a, accountID, l)
}

// ListDestinations lists notification destinations
type ListDestinations struct{ base }

func (h *ListDestinations) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	return h.list(ctx, a, accountID, listing{
		query:    nerdgraph.DestinationsQuery,
		path:     []string{"data", "actor", "account", "aiNotifications", "destinations"},
		itemsKey: "entities",
		outKey:   "destinations",
		action:   "listing notification destinations",
	})
}

// ListChannels lists notification channels
type ListChannels struct{ base }

func (h *ListChannels) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	return h.list(ctx, a, accountID, listing{
		query:    nerdgraph.ChannelsQuery,
		path:     []string{"data", "actor", "account", "aiNotifications", "channels"},
		itemsKey: "entities",
		outKey:   "channels",
		action:   "listing notification channels",
	})
}

// ListWorkflows lists workflows
type ListWorkflows struct{ base }

func (h *ListWorkflows) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	return h.list(ctx, a, accountID, listing{
		query:    nerdgraph.WorkflowsQuery,
		path:     []string{"data", "actor", "account", "aiWorkflows", "workflows"},
		itemsKey: "entities",
		outKey:   "workflows",
		action:   "listing workflows",
	})
}
