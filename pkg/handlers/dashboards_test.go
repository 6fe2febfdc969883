package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnines/newrelic-mcp/pkg/args"
	"github.com/saturnines/newrelic-mcp/pkg/errors"
	"github.com/saturnines/newrelic-mcp/pkg/nerdgraph"
)

const (
	dashGUID = "MXxWSVp8REFTSEJPQVJEfDEyMzQ1"
	pageGUID = "MXxWSVp8REFTSEJPQVJEfDk5OTk5"
)

func TestGetDashboards(t *testing.T) {
	ctx := context.Background()

	t.Run("missing entity search", func(t *testing.T) {
		f := newFake(ok(t, `{"data":{"actor":{"entitySearch":null}}}`))
		env := testHandlers(t, f)["get_dashboards"].Handle(ctx, args.Args{}, testAccount)
		assert.Equal(t, "No entity search data for account 123456. Check account ID and permissions.", env.ErrorMessage())
	})

	t.Run("page with cursor", func(t *testing.T) {
		f := newFake(ok(t, `{"data":{"actor":{"entitySearch":{"results":{
			"entities":[{"name":"Ops","guid":"g1"}],"nextCursor":"c2"}}}}}`))
		env := testHandlers(t, f)["get_dashboards"].Handle(ctx, args.Args{"search": "O'ps", "limit": float64(500)}, testAccount)

		require.False(t, env.IsError(), env.ErrorMessage())
		assert.Equal(t, 1, env["total_count"])
		assert.Equal(t, "c2", env["next_cursor"])
		assert.Equal(t, true, env["has_more"])

		vars := f.calls[0].vars
		assert.Equal(t, 200, vars["limit"])
		assert.Equal(t, `accountId = 123456 AND type = 'DASHBOARD' AND name LIKE '%O\'ps%'`, vars["query"])
	})

	t.Run("last page", func(t *testing.T) {
		f := newFake(ok(t, `{"data":{"actor":{"entitySearch":{"results":{"entities":[],"nextCursor":null}}}}}`))
		env := testHandlers(t, f)["get_dashboards"].Handle(ctx, args.Args{"cursor": "c2"}, testAccount)
		assert.Equal(t, false, env["has_more"])
		assert.Equal(t, "c2", f.calls[0].vars["cursor"])
	})

	t.Run("invalid guid", func(t *testing.T) {
		f := newFake()
		env := testHandlers(t, f)["get_dashboards"].Handle(ctx, args.Args{"guid": `x" } }`}, testAccount)
		assert.True(t, env.IsError())
		assert.Empty(t, f.calls)
	})
}

func TestDashboardSearchRejectsNonNumericAccount(t *testing.T) {
	for _, name := range []string{"get_dashboards", "search_all_dashboards"} {
		t.Run(name, func(t *testing.T) {
			f := newFake(ok(t, `{"data":{"actor":{"entitySearch":{"results":{"entities":[],"nextCursor":null}}}}}`))
			env := testHandlers(t, f)[name].Handle(context.Background(), args.Args{}, "1 OR accountId > 0")

			assert.True(t, env.IsError())
			assert.Contains(t, env.ErrorMessage(), "must be 6 to 12 digits")
			assert.Empty(t, f.calls)
		})
	}
}

func TestSearchAllDashboards(t *testing.T) {
	f := newFake(
		ok(t, `{"data":{"actor":{"entitySearch":{"results":{
			"entities":[{"name":"Checkout Ops","guid":"g1"},{"name":"Billing","guid":"g2"}],"nextCursor":"c2"}}}}}`),
		ok(t, `{"data":{"actor":{"entitySearch":{"results":{
			"entities":[{"name":"ops overview","guid":"g3"}],"nextCursor":null}}}}}`),
	)
	env := testHandlers(t, f)["search_all_dashboards"].Handle(context.Background(), args.Args{"search": "OPS"}, testAccount)

	require.False(t, env.IsError(), env.ErrorMessage())
	assert.Equal(t, 2, env["total_count"])
	require.Len(t, f.calls, 2)
	assert.Equal(t, "c2", f.calls[1].vars["cursor"])
}

func TestCreateDashboard(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFake(ok(t, `{"data":{"dashboardCreate":{"entityResult":{"guid":"`+dashGUID+`","name":"Ops"},"errors":[]}}}`))
		env := testHandlers(t, f)["create_dashboard"].Handle(context.Background(), args.Args{"name": "Ops"}, testAccount)

		assert.Equal(t, dashGUID, env["id"])
		assert.Equal(t, dashGUID, env["guid"])
		assert.Equal(t, "Ops", env["name"])
		dashboard := f.calls[0].vars["dashboard"].(map[string]any)
		assert.Equal(t, "PUBLIC_READ_WRITE", dashboard["permissions"])
	})

	t.Run("typed error", func(t *testing.T) {
		f := newFake(ok(t, `{"data":{"dashboardCreate":{"entityResult":null,"errors":[{"description":"name taken","type":"INVALID_INPUT"}]}}}`))
		env := testHandlers(t, f)["create_dashboard"].Handle(context.Background(), args.Args{"name": "Ops"}, testAccount)
		assert.Equal(t, "Dashboard creation failed: name taken", env.ErrorMessage())
	})
}

func TestAddWidget(t *testing.T) {
	widgetArgs := args.Args{
		"dashboard_guid": dashGUID,
		"widget_title":   "Throughput",
		"widget_query":   "SELECT rate(count(*), 1 minute) FROM Transaction TIMESERIES",
		"widget_type":    "area",
	}

	t.Run("adds to first page", func(t *testing.T) {
		f := newFake(
			ok(t, `{"data":{"actor":{"entity":{"pages":[{"guid":"`+pageGUID+`","name":"Main"},{"guid":"other","name":"Second"}]}}}}`),
			ok(t, `{"data":{"dashboardAddWidgetsToPage":{"errors":[]}}}`),
		)
		env := testHandlers(t, f)["add_widget_to_dashboard"].Handle(context.Background(), widgetArgs, testAccount)

		require.False(t, env.IsError(), env.ErrorMessage())
		assert.Equal(t, pageGUID, env["page_guid"])
		assert.Equal(t, "Main", env["page_name"])

		require.Len(t, f.calls, 2)
		assert.Equal(t, nerdgraph.DashboardPagesQuery, f.calls[0].query)
		assert.Equal(t, dashGUID, f.calls[0].vars["guid"])
		assert.Equal(t, pageGUID, f.calls[1].vars["guid"])
		widget := f.calls[1].vars["widgets"].([]any)[0].(map[string]any)
		assert.Equal(t, map[string]any{"id": "viz.area"}, widget["visualization"])
	})

	t.Run("no pages", func(t *testing.T) {
		f := newFake(ok(t, `{"data":{"actor":{"entity":{"pages":[]}}}}`))
		env := testHandlers(t, f)["add_widget_to_dashboard"].Handle(context.Background(), widgetArgs, testAccount)
		assert.Equal(t, "No pages found in dashboard", env.ErrorMessage())
		assert.Len(t, f.calls, 1)
	})

	t.Run("lookup failure stops before mutation", func(t *testing.T) {
		f := newFake(fail(&errors.TransportError{StatusCode: 503}))
		env := testHandlers(t, f)["add_widget_to_dashboard"].Handle(context.Background(), widgetArgs, testAccount)
		assert.True(t, env.IsError())
		assert.Len(t, f.calls, 1)
	})

	t.Run("typed error", func(t *testing.T) {
		f := newFake(
			ok(t, `{"data":{"actor":{"entity":{"pages":[{"guid":"`+pageGUID+`","name":"Main"}]}}}}`),
			ok(t, `{"data":{"dashboardAddWidgetsToPage":{"errors":[{"description":"bad query","type":"INVALID_INPUT"}]}}}`),
		)
		env := testHandlers(t, f)["add_widget_to_dashboard"].Handle(context.Background(), widgetArgs, testAccount)
		assert.Equal(t, "Widget addition failed: bad query", env.ErrorMessage())
	})
}

func TestGetDashboardWidgets(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		f := newFake(ok(t, `{"data":{"actor":{"entity":null}}}`))
		env := testHandlers(t, f)["get_dashboard_widgets"].Handle(context.Background(), args.Args{"dashboard_guid": dashGUID}, testAccount)
		assert.Equal(t, "Dashboard not found", env.ErrorMessage())
	})

	t.Run("widgets across pages", func(t *testing.T) {
		f := newFake(ok(t, `{"data":{"actor":{"entity":{"name":"Ops","pages":[
			{"guid":"p1","name":"Main","widgets":[
				{"id":"w1","title":"Errors","visualization":{"id":"viz.line"},
				 "configuration":{"line":{"nrqlQueries":[{"accountId":123456,"query":"SELECT count(*) FROM TransactionError"}]}}},
				{"id":"w2","title":null,"visualization":null,"configuration":null}
			]},
			{"guid":"p2","name":null,"widgets":[]}
		]}}}}`))
		env := testHandlers(t, f)["get_dashboard_widgets"].Handle(context.Background(), args.Args{"dashboard_guid": dashGUID}, testAccount)

		require.False(t, env.IsError(), env.ErrorMessage())
		assert.Equal(t, "Ops", env["dashboard_name"])
		assert.Equal(t, 2, env["total_pages"])
		assert.Equal(t, 2, env["total_widgets"])

		pages := env["pages"].([]any)
		first := pages[0].(map[string]any)["widgets"].([]any)
		assert.Equal(t, []string{"SELECT count(*) FROM TransactionError"}, first[0].(map[string]any)["nrql_queries"])
		assert.Equal(t, "Untitled Widget", first[1].(map[string]any)["title"])
		assert.Equal(t, "unknown", first[1].(map[string]any)["visualization_type"])
		assert.Equal(t, "Unnamed Page", pages[1].(map[string]any)["page_name"])
	})
}

func TestUpdateAndDeleteWidget(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		f := newFake(ok(t, `{"data":{"dashboardUpdateWidgetsInPage":{"errors":[]}}}`))
		env := testHandlers(t, f)["update_widget"].Handle(context.Background(), args.Args{
			"page_guid":    pageGUID,
			"widget_id":    "w1",
			"widget_title": "Renamed",
			"widget_query": "SELECT count(*) FROM Transaction",
			"widget_type":  "pie",
		}, testAccount)

		require.False(t, env.IsError(), env.ErrorMessage())
		assert.Equal(t, "Widget 'w1' updated successfully", env["message"])
		input := f.calls[0].vars["widgets"].([]any)[0].(map[string]any)
		assert.Equal(t, "w1", input["id"])
		assert.Equal(t, "Renamed", input["title"])
		assert.Contains(t, input["configuration"], "pie")
	})

	t.Run("update typed error", func(t *testing.T) {
		f := newFake(ok(t, `{"data":{"dashboardUpdateWidgetsInPage":{"errors":[{"description":"widget not found"}]}}}`))
		env := testHandlers(t, f)["update_widget"].Handle(context.Background(), args.Args{"page_guid": pageGUID, "widget_id": "w9"}, testAccount)
		assert.Equal(t, "Widget update failed: widget not found", env.ErrorMessage())
	})

	t.Run("delete", func(t *testing.T) {
		f := newFake(ok(t, `{"data":{"dashboardDeleteWidgetsFromPage":{"errors":[]}}}`))
		env := testHandlers(t, f)["delete_widget"].Handle(context.Background(), args.Args{"page_guid": pageGUID, "widget_id": "w1"}, testAccount)

		assert.Equal(t, "w1", env["widget_id"])
		assert.Equal(t, []any{"w1"}, f.calls[0].vars["widgetIds"])
	})

	t.Run("delete typed error", func(t *testing.T) {
		f := newFake(ok(t, `{"data":{"dashboardDeleteWidgetsFromPage":{"errors":[{"type":"NOT_FOUND"}]}}}`))
		env := testHandlers(t, f)["delete_widget"].Handle(context.Background(), args.Args{"page_guid": pageGUID, "widget_id": "w1"}, testAccount)
		assert.Equal(t, "Widget deletion failed: NOT_FOUND", env.ErrorMessage())
	})
}
