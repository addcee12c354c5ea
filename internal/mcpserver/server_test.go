package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/laguz/internal/engine"
	"github.com/starford/laguz/internal/journal"
	"github.com/starford/laguz/internal/reports"
	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/internal/testutil"
	"github.com/starford/laguz/internal/tracker"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	_, vault := testutil.TestJournal(t)
	db := testutil.TestCatalogDB(t)
	srv := New(tracker.NewService(db, nil), journal.NewService(vault, db), reports.NewStore(vault))
	return srv, vault
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"get_dashboard":      srv.getDashboard,
		"list_markers":       srv.listMarkers,
		"get_marker_history": srv.getMarkerHistory,
		"log_measurement":    srv.logMeasurement,
		"add_marker_note":    srv.addMarkerNote,
		"list_todos":         srv.listTodos,
		"create_todo":        srv.createTodo,
		"list_plans":         srv.listPlans,
		"read_plan":          srv.readPlan,
		"create_plan":        srv.createPlan,
		"search_plans":       srv.searchPlans,
		"get_goal_progress":  srv.getGoalProgress,
		"get_plan_contract":  srv.getPlanContract,
		"upload_report":      srv.uploadReport,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestLogMeasurementAndDashboard(t *testing.T) {
	srv, _ := testServer(t)

	for _, args := range []map[string]any{
		{"marker_id": "ldl", "value": 3.6, "date": "2024-01-10"},
		{"marker_id": "ldl", "value": 2.7, "date": "2024-03-01", "note": "after diet"},
	} {
		if r := callTool(t, srv, "log_measurement", args); r.IsError {
			t.Fatalf("log_measurement: %s", resultText(r))
		}
	}

	r := callTool(t, srv, "get_dashboard", map[string]any{})
	if r.IsError {
		t.Fatalf("get_dashboard: %s", resultText(r))
	}
	var d engine.Dashboard
	if err := json.Unmarshal([]byte(resultText(r)), &d); err != nil {
		t.Fatal(err)
	}
	if d.Summary.Tracked != 1 || d.Summary.HealthScore != 100 {
		t.Errorf("summary = %+v", d.Summary)
	}
	if len(d.Optimizations) != 1 {
		t.Errorf("optimizations = %+v", d.Optimizations)
	}

	r = callTool(t, srv, "get_marker_history", map[string]any{"marker_id": "ldl"})
	var detail engine.MarkerDetail
	if err := json.Unmarshal([]byte(resultText(r)), &detail); err != nil {
		t.Fatal(err)
	}
	if detail.History == nil || len(detail.History.Measurements) != 2 {
		t.Errorf("history = %+v", detail.History)
	}
}

func TestLogMeasurement_Rejects(t *testing.T) {
	srv, _ := testServer(t)

	cases := map[string]map[string]any{
		"unknown marker": {"marker_id": "nope", "value": 1.0, "date": "2024-01-01"},
		"bad date":       {"marker_id": "ldl", "value": 1.0, "date": "yesterday"},
		"missing value":  {"marker_id": "ldl", "date": "2024-01-01"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if r := callTool(t, srv, "log_measurement", args); !r.IsError {
				t.Errorf("expected error, got %s", resultText(r))
			}
		})
	}
}

func TestGetMarkerHistoryMissing(t *testing.T) {
	srv, _ := testServer(t)
	if r := callTool(t, srv, "get_marker_history", map[string]any{"marker_id": "nope"}); !r.IsError {
		t.Error("expected error for unknown marker")
	}
}

func TestAddNoteAndTodos(t *testing.T) {
	srv, _ := testServer(t)

	if r := callTool(t, srv, "add_marker_note", map[string]any{"marker_id": "tsh", "body": "Started levothyroxine"}); r.IsError {
		t.Fatalf("add_marker_note: %s", resultText(r))
	}

	r := callTool(t, srv, "create_todo", map[string]any{"title": "Retest TSH", "due_date": "2024-06-01", "marker_ids": "tsh, ft4"})
	if r.IsError {
		t.Fatalf("create_todo: %s", resultText(r))
	}
	r = callTool(t, srv, "list_todos", map[string]any{"open": true})
	if !strings.Contains(resultText(r), "Retest TSH") || !strings.Contains(resultText(r), "ft4") {
		t.Errorf("list_todos = %s", resultText(r))
	}

	if r := callTool(t, srv, "create_todo", map[string]any{"title": "x", "due_date": "soon"}); !r.IsError {
		t.Error("expected error for bad due date")
	}
}

const planContent = "---\ntitle: Lipid reset\ngoals:\n  - marker: ldl\n    direction: lower\n    target: 2.6\n---\nMore oats.\n"

func TestCreateAndReadPlan(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_plan", map[string]any{"path": "lipids.md", "content": planContent})
	if got := resultText(r); got != "created: lipids.md (1 goals)" {
		t.Errorf("create result = %q", got)
	}

	r = callTool(t, srv, "read_plan", map[string]any{"path": "lipids.md"})
	if resultText(r) != planContent {
		t.Errorf("read result = %q", resultText(r))
	}

	r = callTool(t, srv, "list_plans", map[string]any{})
	if resultText(r) != "lipids.md\tLipid reset" {
		t.Errorf("list_plans = %q", resultText(r))
	}

	r = callTool(t, srv, "search_plans", map[string]any{"query": "oats"})
	if !strings.Contains(resultText(r), "lipids.md") {
		t.Errorf("search_plans = %s", resultText(r))
	}

	_ = callTool(t, srv, "log_measurement", map[string]any{"marker_id": "ldl", "value": 2.9, "date": "2024-03-01"})
	r = callTool(t, srv, "get_goal_progress", map[string]any{"plan": "lipids.md"})
	var goals []engine.GoalProgress
	if err := json.Unmarshal([]byte(resultText(r)), &goals); err != nil {
		t.Fatal(err)
	}
	if len(goals) != 1 || goals[0].Achieved || goals[0].Progress != 0.5 {
		t.Errorf("goals = %+v", goals)
	}
}

func TestCreatePlan_Rejects(t *testing.T) {
	srv, vault := testServer(t)
	_ = vault.Write("taken.md", []byte("# taken"))

	cases := map[string]map[string]any{
		"exists":       {"path": "taken.md", "content": "# x"},
		"invalid goal": {"path": "a.md", "content": "---\ngoals:\n  - {marker: ldl, direction: sideways, target: 1}\n---\n"},
		"reports dir":  {"path": "reports/a.md", "content": "# x"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if r := callTool(t, srv, "create_plan", args); !r.IsError {
				t.Errorf("expected error, got %s", resultText(r))
			}
		})
	}
}

func TestReadPlanMissing(t *testing.T) {
	srv, _ := testServer(t)
	if r := callTool(t, srv, "read_plan", map[string]any{"path": "nope.md"}); !r.IsError {
		t.Error("expected error for missing plan")
	}
}

func TestPlanContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_plan_contract", map[string]any{})
	if !strings.Contains(resultText(r), "direction: lower") {
		t.Error("contract should document goal directions")
	}

	res, err := srv.readPlanFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(res) != 1 {
		t.Fatalf("resource = %v, %v", res, err)
	}
}

func TestUploadReport_DataURI(t *testing.T) {
	srv, vault := testServer(t)

	pdf := []byte("%PDF-1.4\n%%EOF\n")
	uri := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf)
	r := callTool(t, srv, "upload_report", map[string]any{"url": uri, "filename": "march.pdf"})
	if r.IsError {
		t.Fatalf("upload_report: %s", resultText(r))
	}
	var rep reports.Report
	if err := json.Unmarshal([]byte(resultText(r)), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.URL != "/api/reports/march.pdf" {
		t.Errorf("report = %+v", rep)
	}
	if data, err := vault.Read("reports/march.pdf"); err != nil || string(data) != string(pdf) {
		t.Errorf("stored = %q, %v", data, err)
	}

	if r := callTool(t, srv, "upload_report", map[string]any{"url": "ftp://example.com/a.pdf"}); !r.IsError {
		t.Error("expected error for unsupported scheme")
	}
}

func TestLogMeasurement_OffsetTimestamp(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "log_measurement", map[string]any{"marker_id": "ldl", "value": 3.0, "date": "2024-03-01T00:30:00+02:00"})
	if r.IsError {
		t.Fatalf("log_measurement: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"date": "2024-03-01T00:00:00Z"`) {
		t.Errorf("result = %s", resultText(r))
	}
}
