package registry

type props map[string]any

func object(p props, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": map[string]any(p),
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func strDefault(desc, def string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "default": def}
}

func enum(desc string, def string, values ...string) map[string]any {
	s := map[string]any{"type": "string", "description": desc, "enum": values}
	if def != "" {
		s["default"] = def
	}
	return s
}

func integer(desc string, def int) map[string]any {
	return map[string]any{"type": "integer", "description": desc, "default": def}
}

func bounded(desc string, def, lo, hi int) map[string]any {
	s := integer(desc, def)
	s["minimum"] = lo
	s["maximum"] = hi
	return s
}

func stringMap(desc string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"description":          desc,
		"additionalProperties": map[string]any{"type": "string"},
	}
}

var cursorProp = str("Pagination cursor returned as next_cursor by a previous call (optional)")

var destinationTypes = []string{"EMAIL", "WEBHOOK", "SLACK", "PAGERDUTY", "SERVICE_NOW"}

// Monitoring returns the NRQL-backed operations
func Monitoring() []Descriptor {
	appName := str("Name of the application")
	return []Descriptor{
		{
			Name:        "query_nrql",
			Description: "Execute a NRQL query against New Relic",
			InputSchema: object(props{"query": str("NRQL query to execute")}, "query"),
		},
		{
			Name:        "get_app_performance",
			Description: "Get performance metrics for a specific application",
			InputSchema: object(props{
				"app_name": appName,
				"hours":    integer("Number of hours to look back (default: 1)", 1),
			}, "app_name"),
		},
		{
			Name:        "get_app_errors",
			Description: "Get error metrics for a specific application",
			InputSchema: object(props{
				"app_name": appName,
				"hours":    integer("Number of hours to look back (default: 1)", 1),
			}, "app_name"),
		},
		{
			Name:        "get_incidents",
			Description: "Get recent incidents from New Relic",
			InputSchema: object(props{"hours": integer("Number of hours to look back (default: 24)", 24)}),
		},
		{
			Name:        "get_infrastructure_hosts",
			Description: "Get infrastructure hosts and their metrics",
			InputSchema: object(props{"hours": integer("Number of hours to look back (default: 1)", 1)}),
		},
		{
			Name:        "get_alert_violations",
			Description: "Get recent alert violations and incidents",
			InputSchema: object(props{"hours": integer("Number of hours to look back (default: 24)", 24)}),
		},
		{
			Name:        "get_deployments",
			Description: "Get deployment markers and their impact",
			InputSchema: object(props{
				"app_name": str("Name of the application (optional, gets all deployments if not provided)"),
				"hours":    integer("Number of hours to look back (default: 168 = 1 week)", 168),
			}),
		},
		{
			Name:        "list_applications",
			Description: "List applications that reported transactions in the last day",
			InputSchema: object(props{}),
		},
	}
}

// Dashboards returns the dashboard operations
func Dashboards() []Descriptor {
	widgetType := "Type of widget (line, area, bar, pie, table, billboard)"
	return []Descriptor{
		{
			Name:        "get_dashboards",
			Description: "Get New Relic dashboards (max 200 per page due to API limits). Use search to find specific dashboards efficiently.",
			InputSchema: object(props{
				"search": str("Search term to filter dashboards by name (case-insensitive). Recommended for large accounts."),
				"guid":   str("Specific dashboard GUID to retrieve"),
				"limit": map[string]any{
					"type":        "integer",
					"description": "Number of dashboards to retrieve (default: 200, API max: 200)",
					"default":     200,
					"maximum":     200,
				},
				"cursor": cursorProp,
			}),
		},
		{
			Name:        "create_dashboard",
			Description: "Create a new New Relic dashboard",
			InputSchema: object(props{
				"name":        str("Name of the dashboard"),
				"description": str("Description of the dashboard (optional)"),
			}, "name"),
		},
		{
			Name:        "add_widget_to_dashboard",
			Description: "Add a widget to the first page of an existing dashboard",
			InputSchema: object(props{
				"dashboard_guid": str("GUID of the dashboard to add widget to"),
				"widget_title":   str("Title for the widget"),
				"widget_query":   str("NRQL query for the widget"),
				"widget_type":    strDefault(widgetType, "line"),
			}, "dashboard_guid", "widget_title", "widget_query"),
		},
		{
			Name:        "search_all_dashboards",
			Description: "Search through dashboards with local filtering (retrieves up to 200 from the API, then filters locally)",
			InputSchema: object(props{
				"search": str("Search term to filter dashboards by name (case-insensitive)"),
				"guid":   str("Specific dashboard GUID to find"),
			}),
		},
		{
			Name:        "get_dashboard_widgets",
			Description: "Get all widgets from a dashboard with their details and IDs",
			InputSchema: object(props{"dashboard_guid": str("Dashboard GUID to get widgets from")}, "dashboard_guid"),
		},
		{
			Name:        "update_widget",
			Description: "Update an existing widget on a dashboard",
			InputSchema: object(props{
				"page_guid":    str("Page GUID where the widget is located"),
				"widget_id":    str("Widget ID to update"),
				"widget_title": str("New title for the widget"),
				"widget_query": str("New NRQL query for the widget"),
				"widget_type":  strDefault(widgetType, "line"),
			}, "page_guid", "widget_id"),
		},
		{
			Name:        "delete_widget",
			Description: "Delete a widget from a dashboard",
			InputSchema: object(props{
				"page_guid": str("Page GUID where the widget is located"),
				"widget_id": str("Widget ID to delete"),
			}, "page_guid", "widget_id"),
		},
	}
}

// Alerts returns the alerting, notification and workflow operations
func Alerts() []Descriptor {
	return []Descriptor{
		{
			Name:        "create_alert_policy",
			Description: "Create a new alert policy",
			InputSchema: object(props{
				"name": str("Name of the alert policy"),
				"incident_preference": enum("How incidents are created (PER_POLICY, PER_CONDITION, PER_CONDITION_AND_TARGET)",
					"PER_POLICY", "PER_POLICY", "PER_CONDITION", "PER_CONDITION_AND_TARGET"),
			}, "name"),
		},
		{
			Name:        "create_nrql_condition",
			Description: "Create a NRQL alert condition",
			InputSchema: object(props{
				"policy_id":          str("Alert policy ID to attach the condition to"),
				"name":               str("Name of the alert condition"),
				"description":        str("Description of the alert condition (optional)"),
				"nrql_query":         str("NRQL query for the condition"),
				"threshold":          map[string]any{"type": "number", "description": "Alert threshold value"},
				"threshold_operator": enum("Threshold operator (ABOVE, BELOW, EQUAL)", "ABOVE", "ABOVE", "BELOW", "EQUAL"),
				"threshold_duration": bounded("Duration in seconds for threshold breach (60-7200)", 300, 60, 7200),
				"priority":           enum("Alert priority (CRITICAL, HIGH, MEDIUM, LOW)", "CRITICAL", "CRITICAL", "HIGH", "MEDIUM", "LOW"),
				"aggregation_window": bounded("Aggregation window in seconds (30-1200)", 60, 30, 1200),
			}, "policy_id", "name", "nrql_query", "threshold"),
		},
		{
			Name:        "create_notification_destination",
			Description: "Create a notification destination (email, webhook, Slack, etc.)",
			InputSchema: object(props{
				"name":       str("Name of the destination"),
				"type":       enum("Type of destination (EMAIL, WEBHOOK, SLACK, etc.)", "", destinationTypes...),
				"properties": stringMap("Destination-specific properties (e.g., email address, webhook URL)"),
			}, "name", "type", "properties"),
		},
		{
			Name:        "create_notification_channel",
			Description: "Create a notification channel linked to a destination",
			InputSchema: object(props{
				"name":           str("Name of the notification channel"),
				"destination_id": str("ID of the destination to link to"),
				"product":        strDefault("Product type (IINT for Applied Intelligence)", "IINT"),
				"type":           enum("Channel type (EMAIL, WEBHOOK, SLACK, etc.)", "", destinationTypes...),
				"properties":     stringMap("Channel-specific properties"),
			}, "name", "destination_id", "type"),
		},
		{
			Name:        "create_workflow",
			Description: "Create a workflow to connect alert policies to notification channels",
			InputSchema: object(props{
				"name": str("Name of the workflow"),
				"channel_ids": map[string]any{
					"type":        "array",
					"description": "List of notification channel IDs to send alerts to",
					"items":       map[string]any{"type": "string"},
				},
				"filter_name": strDefault("Name for the issues filter (optional)", "Filter-name"),
				"filter_predicates": map[string]any{
					"type":        "array",
					"description": "Filter predicates to determine which alerts trigger this workflow",
					"items": object(props{
						"attribute": map[string]any{"type": "string"},
						"operator": map[string]any{
							"type": "string",
							"enum": []string{"EQUAL", "NOT_EQUAL", "IN", "NOT_IN", "CONTAINS", "DOES_NOT_CONTAIN"},
						},
						"values": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					}, "attribute", "operator", "values"),
				},
				"enabled": map[string]any{"type": "boolean", "description": "Whether the workflow is enabled", "default": true},
			}, "name", "channel_ids"),
		},
		{
			Name:        "list_alert_policies",
			Description: "List alert policies in the account",
			InputSchema: object(props{"cursor": cursorProp}),
		},
		{
			Name:        "list_alert_conditions",
			Description: "List alert conditions, optionally filtered by policy",
			InputSchema: object(props{
				"policy_id": str("Policy ID to filter conditions (optional, shows all if not provided)"),
				"cursor":    cursorProp,
			}),
		},
		{
			Name:        "list_notification_destinations",
			Description: "List notification destinations",
			InputSchema: object(props{"cursor": cursorProp}),
		},
		{
			Name:        "list_notification_channels",
			Description: "List notification channels",
			InputSchema: object(props{"cursor": cursorProp}),
		},
		{
			Name:        "list_workflows",
			Description: "List alert workflows",
			InputSchema: object(props{"cursor": cursorProp}),
		},
	}
}
