package handlers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/saturnines/newrelic-mcp/pkg/args"
	"github.com/saturnines/newrelic-mcp/pkg/nerdgraph"
	"github.com/saturnines/newrelic-mcp/pkg/response"
	"github.com/saturnines/newrelic-mcp/pkg/transport/graphql"
	"github.com/saturnines/newrelic-mcp/pkg/validate"
)

var (
	searchItemsPath  = []string{"data", "actor", "entitySearch", "results", "entities"}
	searchCursorPath = []string{"data", "actor", "entitySearch", "results", "nextCursor"}
)

func guidArg(a args.Args, key string) (string, error) {
	raw, err := a.RequiredString(key)
	if err != nil {
		return "", err
	}
	return validate.GUID(raw)
}

func optionalGUID(a args.Args) (string, error) {
	guid := a.String("guid", "")
	if guid == "" {
		return "", nil
	}
	return validate.GUID(guid)
}

// GetDashboards runs one page of the dashboard entity search
type GetDashboards struct{ base }

func (h *GetDashboards) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	guid, err := optionalGUID(a)
	if err != nil {
		return response.FromError("", err)
	}
	limit, err := a.Int("limit", nerdgraph.MaxDashboardResults)
	if err != nil {
		return response.FromError("", err)
	}
	if limit < 1 {
		return response.Error("limit must be at least 1")
	}
	limit = min(limit, nerdgraph.MaxDashboardResults)

	query, err := nerdgraph.EntitySearch(accountID, a.String("search", ""), guid)
	if err != nil {
		return response.FromError("", err)
	}
	vars := map[string]any{
		"query": query,
		"limit": limit,
	}
	if cursor := a.String("cursor", ""); cursor != "" {
		vars["cursor"] = cursor
	}

	body, err := h.execute(ctx, nerdgraph.DashboardSearchQuery, vars)
	if err != nil {
		return response.FromError("retrieving dashboards", err)
	}

	search := response.Object(body, "data", "actor", "entitySearch")
	if len(search) == 0 {
		h.logger.Warn("no entity search data", zap.String("account_id", accountID))
		return response.Errorf("No entity search data for account %s. Check account ID and permissions.", accountID)
	}
	results := response.Object(search, "results")
	entities := response.Items(results["entities"])
	h.logger.Debug("dashboards found", zap.Int("count", len(entities)), zap.Any("next_cursor", results["nextCursor"]))

	return response.FormatList("dashboards", entities,
		response.WithCursor(results["nextCursor"]),
		response.WithHasMore())
}

// SearchDashboards walks every entity-search page, up to 200 dashboards,
// and filters the result locally.
type SearchDashboards struct{ base }

func (h *SearchDashboards) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	guid, err := optionalGUID(a)
	if err != nil {
		return response.FromError("", err)
	}
	search := a.String("search", "")
	query, err := nerdgraph.EntitySearch(accountID, search, guid)
	if err != nil {
		return response.FromError("", err)
	}

	pager, err := graphql.NewPager(h.transport, nerdgraph.DashboardSearchQuery,
		map[string]any{
			"query": query,
			"limit": nerdgraph.MaxDashboardResults,
		},
		"cursor", searchItemsPath, searchCursorPath)
	if err != nil {
		return response.FromError("searching dashboards", err)
	}

	entities, err := pager.Collect(ctx, nerdgraph.MaxDashboardResults)
	if err != nil {
		return response.FromError("searching dashboards", err)
	}

	matches := []any{}
	needle := strings.ToLower(search)
	for _, e := range entities {
		d, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if guid != "" && d["guid"] != guid {
			continue
		}
		name, _ := d["name"].(string)
		if needle != "" && !strings.Contains(strings.ToLower(name), needle) {
			continue
		}
		matches = append(matches, d)
	}
	return response.FormatList("dashboards", matches)
}

// CreateDashboard creates a single-page dashboard
type CreateDashboard struct{ base }

func (h *CreateDashboard) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	name, err := a.RequiredString("name")
	if err != nil {
		return response.FromError("", err)
	}
	account, err := graphql.AccountIDInt(accountID)
	if err != nil {
		return response.FromError("", err)
	}
	action := fmt.Sprintf("creating dashboard '%s'", name)

	body, err := h.execute(ctx, nerdgraph.DashboardCreateMutation, map[string]any{
		"accountId": account,
		"dashboard": nerdgraph.DashboardInput(name, a.String("description", "")),
	})
	if err != nil {
		return response.FromError(action, err)
	}

	payload := response.Object(body, "data", "dashboardCreate")
	if err := nerdgraph.MutationError(payload, "Dashboard creation"); err != nil {
		return response.FromError(action, err)
	}
	entity := response.Object(payload, "entityResult")
	if len(entity) == 0 {
		return response.Error("Failed to create dashboard")
	}
	return response.FormatCreate(entity, "guid", response.F("name", "name"))
}

// AddWidget adds a widget to the first page of a dashboard. The page GUID is
// looked up first; the mutation is only sent once that lookup succeeds.
type AddWidget struct{ base }

func (h *AddWidget) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	dashboardGUID, err := guidArg(a, "dashboard_guid")
	if err != nil {
		return response.FromError("", err)
	}
	title, err := a.RequiredString("widget_title")
	if err != nil {
		return response.FromError("", err)
	}
	rawQuery, err := a.RequiredString("widget_query")
	if err != nil {
		return response.FromError("", err)
	}
	query, err := validate.NRQL(rawQuery)
	if err != nil {
		return response.FromError("", err)
	}
	account, err := graphql.AccountIDInt(accountID)
	if err != nil {
		return response.FromError("", err)
	}
	widgetType := nerdgraph.WidgetType(a.String("widget_type", nerdgraph.DefaultWidgetType))

	body, err := h.execute(ctx, nerdgraph.DashboardPagesQuery, map[string]any{"guid": dashboardGUID})
	if err != nil {
		return response.FromError("adding widget to dashboard", err)
	}
	v, _ := response.Dig(body, "data", "actor", "entity", "pages")
	pages := response.Items(v)
	if len(pages) == 0 {
		return response.Error("No pages found in dashboard")
	}
	page, _ := pages[0].(map[string]any)
	pageGUID, _ := page["guid"].(string)
	pageName, _ := page["name"].(string)
	if pageName == "" {
		pageName = "Page 1"
	}

	body, err = h.execute(ctx, nerdgraph.WidgetsAddMutation, map[string]any{
		"guid":    pageGUID,
		"widgets": []any{nerdgraph.WidgetInput(title, widgetType, account, query)},
	})
	if err != nil {
		return response.FromError("adding widget to dashboard", err)
	}
	if err := nerdgraph.MutationError(response.Object(body, "data", "dashboardAddWidgetsToPage"), "Widget addition"); err != nil {
		return response.FromError("adding widget to dashboard", err)
	}

	return response.Success(map[string]any{
		"message":     fmt.Sprintf("Widget '%s' (%s) added successfully to page '%s' of dashboard", title, widgetType, pageName),
		"page_guid":   pageGUID,
		"page_name":   pageName,
		"widget_type": widgetType,
	})
}

// GetWidgets lists every widget on every page of a dashboard
type GetWidgets struct{ base }

func (h *GetWidgets) Handle(ctx context.Context, a args.Args, _ string) response.Envelope {
	guid, err := guidArg(a, "dashboard_guid")
	if err != nil {
		return response.FromError("", err)
	}

	body, err := h.execute(ctx, nerdgraph.DashboardWidgetsQuery, map[string]any{"guid": guid})
	if err != nil {
		return response.FromError("getting dashboard widgets", err)
	}
	entity := response.Object(body, "data", "actor", "entity")
	if len(entity) == 0 {
		return response.Error("Dashboard not found")
	}

	name, _ := entity["name"].(string)
	if name == "" {
		name = "Unknown"
	}

	pages := response.Items(entity["pages"])
	outPages := make([]any, 0, len(pages))
	total := 0
	for _, p := range pages {
		page, _ := p.(map[string]any)
		if page == nil {
			continue
		}
		pageName, _ := page["name"].(string)
		if pageName == "" {
			pageName = "Unnamed Page"
		}

		widgets := []any{}
		for _, w := range response.Items(page["widgets"]) {
			widget, _ := w.(map[string]any)
			if widget == nil {
				continue
			}
			widgets = append(widgets, widgetInfo(widget))
		}
		total += len(widgets)

		outPages = append(outPages, map[string]any{
			"page_guid": page["guid"],
			"page_name": pageName,
			"widgets":   widgets,
		})
	}

	return response.Success(map[string]any{
		"dashboard_name": name,
		"dashboard_guid": guid,
		"total_pages":    len(pages),
		"total_widgets":  total,
		"pages":          outPages,
	})
}

func widgetInfo(widget map[string]any) map[string]any {
	title, _ := widget["title"].(string)
	if title == "" {
		title = "Untitled Widget"
	}
	vizType, _ := response.Object(widget, "visualization")["id"].(string)
	if vizType == "" {
		vizType = "unknown"
	}
	configuration := response.Object(widget, "configuration")
	if configuration == nil {
		configuration = map[string]any{}
	}
	return map[string]any{
		"widget_id":          widget["id"],
		"title":              title,
		"visualization_type": vizType,
		"configuration":      configuration,
		"nrql_queries":       nerdgraph.NrqlQueries(configuration),
	}
}

// UpdateWidget replaces a widget's title, query and visualization
type UpdateWidget struct{ base }

func (h *UpdateWidget) Handle(ctx context.Context, a args.Args, accountID string) response.Envelope {
	pageGUID, err := guidArg(a, "page_guid")
	if err != nil {
		return response.FromError("", err)
	}
	widgetID, err := a.RequiredString("widget_id")
	if err != nil {
		return response.FromError("", err)
	}
	account, err := graphql.AccountIDInt(accountID)
	if err != nil {
		return response.FromError("", err)
	}

	input := map[string]any{"id": widgetID}
	widgetType := nerdgraph.WidgetType(a.String("widget_type", nerdgraph.DefaultWidgetType))
	if title := a.String("widget_title", ""); title != "" {
		input["title"] = title
	}
	if raw := a.String("widget_query", ""); raw != "" {
		query, err := validate.NRQL(raw)
		if err != nil {
			return response.FromError("", err)
		}
		input["configuration"] = nerdgraph.WidgetConfiguration(widgetType, account, query)
		input["visualization"] = map[string]any{"id": "viz." + widgetType}
	}

	body, err := h.execute(ctx, nerdgraph.WidgetsUpdateMutation, map[string]any{
		"guid":    pageGUID,
		"widgets": []any{input},
	})
	if err != nil {
		return response.FromError("updating widget", err)
	}
	if err := nerdgraph.MutationError(response.Object(body, "data", "dashboardUpdateWidgetsInPage"), "Widget update"); err != nil {
		return response.FromError("updating widget", err)
	}

	return response.Success(map[string]any{
		"message":   fmt.Sprintf("Widget '%s' updated successfully", widgetID),
		"widget_id": widgetID,
	})
}

// DeleteWidget removes a widget from a dashboard page
type DeleteWidget struct{ base }

func (h *DeleteWidget) Handle(ctx context.Context, a args.Args, _ string) response.Envelope {
	pageGUID, err := guidArg(a, "page_guid")
	if err != nil {
		return response.FromError("", err)
	}
	widgetID, err := a.RequiredString("widget_id")
	if err != nil {
		return response.FromError("", err)
	}

	body, err := h.execute(ctx, nerdgraph.WidgetsDeleteMutation, map[string]any{
		"guid":      pageGUID,
		"widgetIds": []any{widgetID},
	})
	if err != nil {
		return response.FromError("deleting widget", err)
	}
	if err := nerdgraph.MutationError(response.Object(body, "data", "dashboardDeleteWidgetsFromPage"), "Widget deletion"); err != nil {
		return response.FromError("deleting widget", err)
	}

	return response.Success(map[string]any{
		"message":   fmt.Sprintf("Widget '%s' deleted successfully", widgetID),
		"widget_id": widgetID,
	})
}
