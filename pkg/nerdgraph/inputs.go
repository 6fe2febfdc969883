package nerdgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/saturnines/newrelic-mcp/pkg/args"
	"github.com/saturnines/newrelic-mcp/pkg/errors"
	"github.com/saturnines/newrelic-mcp/pkg/validate"
)

// Defaults applied when a caller omits the argument
const (
	DefaultIncidentPreference = "PER_POLICY"
	DefaultThresholdOperator  = "ABOVE"
	DefaultThresholdDuration  = 300
	DefaultPriority           = "CRITICAL"
	DefaultAggregationWindow  = 60
	DefaultChannelProduct     = "IINT"
	DefaultFilterName         = "Filter-name"
	DefaultWidgetType         = "line"
	MaxDashboardResults       = 200

	evaluationOffset     = 3
	thresholdOccurrences = "AT_LEAST_ONCE"
)

// WidgetTypes lists the visualizations a widget can be built for
var WidgetTypes = []string{"area", "bar", "billboard", "line", "pie", "table"}

// PolicyInput builds an AlertsPolicyInput
func PolicyInput(name, incidentPreference string) map[string]any {
	if incidentPreference == "" {
		incidentPreference = DefaultIncidentPreference
	}
	return map[string]any{
		"name":               name,
		"incidentPreference": incidentPreference,
	}
}

// Condition describes a static NRQL alert condition
type Condition struct {
	Name              string
	Query             string
	Description       string
	Threshold         float64
	Operator          string
	Duration          int
	Priority          string
	AggregationWindow int
}

// Priority maps a caller priority onto the two levels NerdGraph accepts.
// HIGH, MEDIUM and LOW become WARNING.
func Priority(p string) string {
	switch p = strings.ToUpper(strings.TrimSpace(p)); p {
	case "":
		return DefaultPriority
	case "HIGH", "MEDIUM", "LOW":
		return "WARNING"
	default:
		return p
	}
}

// ConditionInput builds an AlertsNrqlConditionStaticInput
func ConditionInput(c Condition) map[string]any {
	operator := c.Operator
	if operator == "" {
		operator = DefaultThresholdOperator
	}
	duration := c.Duration
	if duration <= 0 {
		duration = DefaultThresholdDuration
	}
	window := c.AggregationWindow
	if window <= 0 {
		window = DefaultAggregationWindow
	}

	input := map[string]any{
		"name":    c.Name,
		"enabled": true,
		"nrql":    map[string]any{"query": c.Query},
		"signal": map[string]any{
			"aggregationWindow": window,
			"evaluationOffset":  evaluationOffset,
		},
		"terms": []any{
			map[string]any{
				"operator":             strings.ToUpper(operator),
				"priority":             Priority(c.Priority),
				"threshold":            c.Threshold,
				"thresholdDuration":    duration,
				"thresholdOccurrences": thresholdOccurrences,
			},
		},
	}
	if c.Description != "" {
		input["description"] = c.Description
	}
	return input
}

// Properties converts a property map into NerdGraph key/value pairs sorted
// by key.
func Properties(props map[string]any) []any {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		value, err := args.ToString(props[k])
		if err != nil {
			value = fmt.Sprint(props[k])
		}
		out = append(out, map[string]any{"key": k, "value": value})
	}
	return out
}

// DestinationInput builds an AiNotificationsDestinationInput
func DestinationInput(name, destinationType string, props map[string]any) map[string]any {
	return map[string]any{
		"name":       name,
		"type":       destinationType,
		"properties": Properties(props),
	}
}

// ChannelInput builds an AiNotificationsChannelInput
func ChannelInput(name, destinationID, channelType, product string, props map[string]any) map[string]any {
	if product == "" {
		product = DefaultChannelProduct
	}
	return map[string]any{
		"name":          name,
		"type":          channelType,
		"destinationId": destinationID,
		"product":       product,
		"properties":    Properties(props),
	}
}

// WorkflowInput builds an AiWorkflowsCreateWorkflowInput
func WorkflowInput(name string, channelIDs []string, enabled bool, filterName string, predicates []any) map[string]any {
	if filterName == "" {
		filterName = DefaultFilterName
	}
	if predicates == nil {
		predicates = []any{}
	}
	destinations := make([]any, 0, len(channelIDs))
	for _, id := range channelIDs {
		destinations = append(destinations, map[string]any{"channelId": id})
	}
	return map[string]any{
		"name":                      name,
		"enabled":                   enabled,
		"destinationConfigurations": destinations,
		"issuesFilter": map[string]any{
			"name":       filterName,
			"type":       "FILTER",
			"predicates": predicates,
		},
	}
}

// DashboardInput builds a single-page DashboardInput. The page takes the
// dashboard's name.
func DashboardInput(name, description string) map[string]any {
	return map[string]any{
		"name":        name,
		"description": description,
		"permissions": "PUBLIC_READ_WRITE",
		"pages": []any{
			map[string]any{
				"name":        name,
				"description": description,
				"widgets":     []any{},
			},
		},
	}
}

// WidgetType returns t when it is a supported visualization, else line
func WidgetType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	for _, known := range WidgetTypes {
		if t == known {
			return t
		}
	}
	return DefaultWidgetType
}

// WidgetConfiguration builds {<type>: {nrqlQueries: [{accountId, query}]}}
func WidgetConfiguration(widgetType string, accountID int, query string) map[string]any {
	return map[string]any{
		WidgetType(widgetType): map[string]any{
			"nrqlQueries": []any{
				map[string]any{"accountId": accountID, "query": query},
			},
		},
	}
}

// WidgetInput builds a DashboardWidgetInput
func WidgetInput(title, widgetType string, accountID int, query string) map[string]any {
	return map[string]any{
		"title":         title,
		"configuration": WidgetConfiguration(widgetType, accountID, query),
		"visualization": map[string]any{"id": "viz." + WidgetType(widgetType)},
	}
}

// NrqlQueries collects the query strings from a widget configuration
func NrqlQueries(configuration map[string]any) []string {
	queries := []string{}
	for _, viz := range []string{"line", "area", "bar", "pie", "table", "billboard"} {
		block, ok := configuration[viz].(map[string]any)
		if !ok {
			continue
		}
		list, _ := block["nrqlQueries"].([]any)
		for _, item := range list {
			q, _ := item.(map[string]any)
			if s, ok := q["query"].(string); ok && s != "" {
				queries = append(queries, s)
			}
		}
	}
	return queries
}

// EntitySearch builds the dashboard entity-search expression for an
// account. A guid takes precedence over a name search. The account id is
// the only unquoted term, so it must be all digits.
func EntitySearch(accountID, search, guid string) (string, error) {
	id, err := validate.AccountID(accountID)
	if err != nil {
		return "", err
	}
	q := fmt.Sprintf("accountId = %s AND type = 'DASHBOARD'", id)
	switch {
	case guid != "":
		q += fmt.Sprintf(" AND id = '%s'", validate.Quote(guid))
	case search != "":
		q += fmt.Sprintf(" AND name LIKE '%%%s%%'", validate.Quote(search))
	}
	return q, nil
}

// MutationError returns a DomainError for the first entry of a typed errors
// list in a mutation payload, or nil when there is none.
func MutationError(payload map[string]any, operation string) error {
	list, _ := payload["errors"].([]any)
	if len(list) == 0 {
		return nil
	}
	first, _ := list[0].(map[string]any)

	de := &errors.DomainError{Operation: operation}
	de.Description, _ = first["description"].(string)
	de.Type, _ = first["type"].(string)
	if de.Description == "" && de.Type == "" {
		typename, _ := first["__typename"].(string)
		if typename == "" {
			typename = "Unknown"
		}
		de.Description = "Error type: " + typename
	}
	return de
}
