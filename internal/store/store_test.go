package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "laguz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"markers", "measurements", "marker_notes", "todos", "todo_markers", "plans", "plan_markers", "goals"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestReplaceCatalogKeepsOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	markers := []models.Marker{
		{ID: "tsh", Name: "TSH", MinRef: 0.4, MaxRef: 4, Category: "Sköldkörtel"},
		{ID: "crp", Name: "CRP", MinRef: 0, MaxRef: 5},
	}
	if err := db.ReplaceCatalog(ctx, markers); err != nil {
		t.Fatalf("ReplaceCatalog: %v", err)
	}
	got, err := db.ListMarkers(ctx)
	if err != nil {
		t.Fatalf("ListMarkers: %v", err)
	}
	if len(got) != 2 || got[0].ID != "tsh" || got[1].ID != "crp" {
		t.Fatalf("markers = %+v", got)
	}
	if got[0].Category != "Sköldkörtel" || got[0].MaxRef != 4 {
		t.Errorf("tsh = %+v", got[0])
	}

	// A second load replaces rather than appends.
	if err := db.ReplaceCatalog(ctx, markers[1:]); err != nil {
		t.Fatalf("ReplaceCatalog: %v", err)
	}
	if _, err := db.GetMarker(ctx, "tsh"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetMarker(tsh) err = %v, want ErrNotFound", err)
	}
}

func TestMeasurementCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	m := models.Measurement{ID: "m1", MarkerID: "ldl", Value: 3.4, Date: day(2), Note: "fasting", CreatedAt: day(2).Add(time.Hour)}
	if err := db.InsertMeasurement(ctx, m); err != nil {
		t.Fatalf("InsertMeasurement: %v", err)
	}
	got, err := db.GetMeasurement(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMeasurement: %v", err)
	}
	if got.Value != 3.4 || !got.Date.Equal(day(2)) || got.Note != "fasting" {
		t.Errorf("got %+v", got)
	}

	m.Value = 2.9
	m.Date = day(5)
	if err := db.UpdateMeasurement(ctx, m); err != nil {
		t.Fatalf("UpdateMeasurement: %v", err)
	}
	all, err := db.ListMeasurements(ctx)
	if err != nil {
		t.Fatalf("ListMeasurements: %v", err)
	}
	if len(all) != 1 || all[0].Value != 2.9 || !all[0].Date.Equal(day(5)) {
		t.Errorf("after update: %+v", all)
	}

	if err := db.DeleteMeasurement(ctx, "m1"); err != nil {
		t.Fatalf("DeleteMeasurement: %v", err)
	}
	if err := db.DeleteMeasurement(ctx, "m1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	if err := db.UpdateMeasurement(ctx, m); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update missing err = %v, want ErrNotFound", err)
	}
}

func TestMarkerNotes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.InsertMarkerNote(ctx, models.MarkerNote{ID: "n1", MarkerID: "ldl", Body: "statin started", CreatedAt: day(1)})
	notes, err := db.ListMarkerNotes(ctx)
	if err != nil {
		t.Fatalf("ListMarkerNotes: %v", err)
	}
	if len(notes) != 1 || notes[0].Body != "statin started" {
		t.Fatalf("notes = %+v", notes)
	}
	if err := db.DeleteMarkerNote(ctx, "n1"); err != nil {
		t.Fatalf("DeleteMarkerNote: %v", err)
	}
	if err := db.DeleteMarkerNote(ctx, "n1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTodoCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	due := day(10)
	td := models.Todo{ID: "t1", Title: "Book lab", DueDate: &due, MarkerIDs: []string{"ldl", "apob"}, CreatedAt: day(1)}
	if err := db.InsertTodo(ctx, td); err != nil {
		t.Fatalf("InsertTodo: %v", err)
	}
	_ = db.InsertTodo(ctx, models.Todo{ID: "t2", Title: "Buy fish oil", CreatedAt: day(2)})

	got, err := db.GetTodo(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) || len(got.MarkerIDs) != 2 || got.MarkerIDs[1] != "apob" {
		t.Errorf("got %+v", got)
	}

	td.Done = true
	td.DueDate = nil
	td.MarkerIDs = []string{"ldl"}
	if err := db.UpdateTodo(ctx, td); err != nil {
		t.Fatalf("UpdateTodo: %v", err)
	}
	all, err := db.ListTodos(ctx)
	if err != nil {
		t.Fatalf("ListTodos: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d", len(all))
	}
	if !all[0].Done || all[0].DueDate != nil || len(all[0].MarkerIDs) != 1 {
		t.Errorf("t1 after update = %+v", all[0])
	}
	if all[1].MarkerIDs == nil {
		t.Error("MarkerIDs should be empty, not nil")
	}

	if err := db.DeleteTodo(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTodo: %v", err)
	}
	var n int
	_ = db.conn.QueryRow(`SELECT count(*) FROM todo_markers WHERE todo_id = 't1'`).Scan(&n)
	if n != 0 {
		t.Errorf("todo markers not cascaded: %d", n)
	}
	if _, err := db.GetTodo(ctx, "t1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func testPlan() models.Plan {
	target := day(30)
	upper := 2.5
	return models.Plan{
		ID:         "plans/lipids.md",
		Title:      "Lipid reset",
		Body:       "Cut saturated fat, walk daily.",
		TargetDate: &target,
		MarkerIDs:  []string{"ldl", "apob"},
		Goals: []models.Goal{
			{ID: "g1", PlanID: "plans/lipids.md", MarkerID: "ldl", Direction: models.GoalLower, TargetValue: 2.6},
			{ID: "g2", PlanID: "plans/lipids.md", MarkerID: "tsh", Direction: models.GoalRange, TargetValue: 1, TargetValueUpper: &upper},
		},
		Checksum:  "c1",
		UpdatedAt: day(3),
	}
}

func TestUpsertAndGetPlan(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if err := db.UpsertPlan(ctx, testPlan()); err != nil {
		t.Fatalf("UpsertPlan: %v", err)
	}
	p, err := db.GetPlan(ctx, "plans/lipids.md")
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if p.Title != "Lipid reset" || p.TargetDate == nil || !p.TargetDate.Equal(day(30)) || p.StartDate != nil {
		t.Errorf("plan = %+v", p)
	}
	if len(p.MarkerIDs) != 2 || p.MarkerIDs[0] != "ldl" {
		t.Errorf("markers = %v", p.MarkerIDs)
	}
	if len(p.Goals) != 2 || p.Goals[1].TargetValueUpper == nil || *p.Goals[1].TargetValueUpper != 2.5 {
		t.Errorf("goals = %+v", p.Goals)
	}
	if p.Goals[0].Direction != models.GoalLower || p.Goals[0].PlanID != "plans/lipids.md" {
		t.Errorf("goal[0] = %+v", p.Goals[0])
	}

	updated := testPlan()
	updated.Goals = updated.Goals[:1]
	updated.Checksum = "c2"
	if err := db.UpsertPlan(ctx, updated); err != nil {
		t.Fatalf("UpsertPlan: %v", err)
	}
	sums, err := db.PlanChecksums(ctx)
	if err != nil {
		t.Fatalf("PlanChecksums: %v", err)
	}
	if sums["plans/lipids.md"] != "c2" {
		t.Errorf("checksums = %v", sums)
	}
	plans, _ := db.ListPlans(ctx)
	if len(plans) != 1 || len(plans[0].Goals) != 1 {
		t.Errorf("plans = %+v", plans)
	}
}

func TestSameGoalIDInTwoPlans(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := testPlan()
	b := testPlan()
	b.ID = "plans/other.md"
	if err := db.UpsertPlan(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertPlan(ctx, b); err != nil {
		t.Fatalf("goal ids are scoped per plan: %v", err)
	}
}

func TestDeletePlanCascades(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.UpsertPlan(ctx, testPlan())
	if err := db.DeletePlan(ctx, "plans/lipids.md"); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}
	var n int
	_ = db.conn.QueryRow(`SELECT count(*) FROM goals`).Scan(&n)
	if n != 0 {
		t.Errorf("goals left: %d", n)
	}
	if _, err := db.GetPlan(ctx, "plans/lipids.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := db.DeletePlan(ctx, "plans/lipids.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchPlans(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.UpsertPlan(ctx, testPlan())

	results, err := db.SearchPlans(ctx, "saturated", 10)
	if err != nil {
		t.Fatalf("SearchPlans: %v", err)
	}
	if len(results) != 1 || results[0].Path != "plans/lipids.md" {
		t.Errorf("results = %+v", results)
	}
	results, _ = db.SearchPlans(ctx, "nothing-like-this", 10)
	if len(results) != 0 {
		t.Errorf("expected no results, got %+v", results)
	}
}
