// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Laguz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/laguz/internal/engine"
	"github.com/starford/laguz/internal/journal"
	"github.com/starford/laguz/internal/parser"
	"github.com/starford/laguz/internal/reports"
	"github.com/starford/laguz/internal/tracker"
)

const planFormatURI = "laguz://plan-format"

// Server wraps the MCP server with Laguz tools.
type Server struct {
	mcp     *server.MCPServer
	tracker *tracker.Service
	journal *journal.Service
	reports *reports.Store
}

// New creates a new MCP server with all Laguz tools registered.
func New(tr *tracker.Service, jr *journal.Service, rp *reports.Store) *Server {
	s := &Server{tracker: tr, journal: jr, reports: rp}

	s.mcp = server.NewMCPServer(
		"Laguz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_dashboard",
		mcp.WithDescription("Health score, markers needing attention, optimizations, focus areas, goal progress and open todos."),
		mcp.WithString("q", mcp.Description("Optional text filter over marker name, short name, category and unit")),
		mcp.WithString("status", mcp.Description("all, attention or normal")),
		mcp.WithString("sort", mcp.Description("attention, recent or alpha")),
		mcp.WithString("group", mcp.Description("first-seen, category or attention")),
	), s.getDashboard)

	s.mcp.AddTool(mcp.NewTool("list_markers",
		mcp.WithDescription("List the marker catalog with units and reference ranges."),
	), s.listMarkers)

	s.mcp.AddTool(mcp.NewTool("get_marker_history",
		mcp.WithDescription("Full history of one marker: measurements, notes, status, trend, optimizations and goals."),
		mcp.WithString("marker_id", mcp.Required(), mcp.Description("Catalog marker ID (e.g. ldl)")),
	), s.getMarkerHistory)

	s.mcp.AddTool(mcp.NewTool("log_measurement",
		mcp.WithDescription("Record a lab value for a catalog marker."),
		mcp.WithString("marker_id", mcp.Required(), mcp.Description("Catalog marker ID")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Measured value in the marker's unit")),
		mcp.WithString("date", mcp.Required(), mcp.Description("Sample date, YYYY-MM-DD")),
		mcp.WithString("note", mcp.Description("Optional free-text note")),
	), s.logMeasurement)

	s.mcp.AddTool(mcp.NewTool("add_marker_note",
		mcp.WithDescription("Attach a note to a marker (e.g. a medication change)."),
		mcp.WithString("marker_id", mcp.Required(), mcp.Description("Catalog marker ID")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Note text")),
	), s.addMarkerNote)

	s.mcp.AddTool(mcp.NewTool("list_todos",
		mcp.WithDescription("List health todos."),
		mcp.WithBoolean("open", mcp.Description("Only return todos that are not done")),
	), s.listTodos)

	s.mcp.AddTool(mcp.NewTool("create_todo",
		mcp.WithDescription("Create a health todo, optionally tied to markers or a plan."),
		mcp.WithString("title", mcp.Required(), mcp.Description("What to do")),
		mcp.WithString("due_date", mcp.Description("Optional due date, YYYY-MM-DD")),
		mcp.WithString("marker_ids", mcp.Description("Optional comma-separated marker IDs")),
		mcp.WithString("plan_id", mcp.Description("Optional plan path")),
	), s.createTodo)

	s.mcp.AddTool(mcp.NewTool("list_plans",
		mcp.WithDescription("List improvement plans, most recently updated first."),
	), s.listPlans)

	s.mcp.AddTool(mcp.NewTool("read_plan",
		mcp.WithDescription("Read the full Markdown document of a plan."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the plan (e.g. plans/lipids.md)")),
	), s.readPlan)

	s.mcp.AddTool(mcp.NewTool("create_plan",
		mcp.WithDescription("Create a new plan document. "+
			"Content MUST follow the plan format (YAML frontmatter with title, dates, markers and goals). "+
			"Read the contract first via the get_plan_contract tool or the "+planFormatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new plan (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the Laguz plan format")),
	), s.createPlan)

	s.mcp.AddTool(mcp.NewTool("search_plans",
		mcp.WithDescription("Full-text search through plan titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPlans)

	s.mcp.AddTool(mcp.NewTool("get_goal_progress",
		mcp.WithDescription("Evaluate plan goals against the latest measurements."),
		mcp.WithString("plan", mcp.Description("Optional plan path; all plans when empty")),
	), s.getGoalProgress)

	s.mcp.AddTool(mcp.NewTool("get_plan_contract",
		mcp.WithDescription("Returns the canonical Laguz plan format. "+
			"Call this before creating plans to ensure correct structure."),
	), s.getPlanContract)

	s.mcp.AddTool(mcp.NewTool("upload_report",
		mcp.WithDescription("Store a lab report (PDF or image) in the journal from an http(s) URL or a base64 data URI. "+
			"Returns a markdownLink to paste into a plan."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data> URI")),
		mcp.WithString("filename", mcp.Description("Optional target filename; derived from the URL when empty")),
	), s.uploadReport)

	s.mcp.AddResource(
		mcp.NewResource(planFormatURI, "Plan Format Contract",
			mcp.WithResourceDescription("Canonical Markdown plan format that all plans must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPlanFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func parseDay(field, s string) (time.Time, error) {
	t, err := parser.ParseDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", field, s)
	}
	return t, nil
}

func (s *Server) getDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := s.tracker.Dashboard(ctx, engine.Query{
		Text:     req.GetString("q", ""),
		Status:   engine.StatusFilter(req.GetString("status", "")),
		Sort:     engine.SortMode(req.GetString("sort", "")),
		Grouping: engine.Grouping(req.GetString("group", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) listMarkers(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markers, err := s.tracker.Markers(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(markers)
}

func (s *Server) getMarkerHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("marker_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.tracker.MarkerDetail(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marker %s: %v", id, err)), nil
	}
	return jsonResult(d)
}

func (s *Server) logMeasurement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markerID, err := req.RequireString("marker_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireFloat("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawDate, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := parseDay("date", rawDate)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.tracker.LogMeasurement(ctx, tracker.MeasurementInput{
		MarkerID: markerID,
		Value:    value,
		Date:     date,
		Note:     req.GetString("note", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(m)
}

func (s *Server) addMarkerNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markerID, err := req.RequireString("marker_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.tracker.AddNote(ctx, markerID, body)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(n)
}

func (s *Server) listTodos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	todos, err := s.tracker.Todos(ctx, req.GetBool("open", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(todos)
}

func (s *Server) createTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in := tracker.TodoInput{Title: title, PlanID: req.GetString("plan_id", "")}
	if raw := req.GetString("due_date", ""); raw != "" {
		due, err := parseDay("due_date", raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in.DueDate = &due
	}
	for _, id := range strings.Split(req.GetString("marker_ids", ""), ",") {
		if id = strings.TrimSpace(id); id != "" {
			in.MarkerIDs = append(in.MarkerIDs, id)
		}
	}
	todo, err := s.tracker.CreateTodo(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(todo)
}

func (s *Server) listPlans(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plans, err := s.journal.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(plans) == 0 {
		return mcp.NewToolResultText("no plans"), nil
	}
	lines := make([]string, 0, len(plans))
	for _, p := range plans {
		lines = append(lines, p.ID+"\t"+p.Title)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	plan, err := s.journal.Get(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(plan.Content), nil
}

func (s *Server) createPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	plan, err := s.journal.Create(ctx, path, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%d goals)", plan.ID, len(plan.Goals))), nil
}

func (s *Server) searchPlans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.journal.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getGoalProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goals, err := s.tracker.GoalProgress(ctx, req.GetString("plan", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(goals)
}

func (s *Server) getPlanContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PlanFormatContract), nil
}

func (s *Server) readPlanFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      planFormatURI,
			MIMEType: "text/markdown",
			Text:     PlanFormatContract,
		},
	}, nil
}
