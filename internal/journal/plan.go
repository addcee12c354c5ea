// Package journal keeps the plan vault and the plan index in step.
//
// Plans are Markdown documents on disk; the SQLite index is a cache that
// Sync and Watch rebuild from the files.
package journal

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/parser"
	"github.com/starford/laguz/internal/storage"
)

// goalNamespace seeds derived goal IDs so the same document always yields
// the same IDs.
var goalNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("laguz:goal"))

// BuildPlan parses a plan document into a models.Plan.
//
// A nil plan means the document could not be parsed at all. When only some
// goals are invalid the plan is returned without them and err lists what
// was dropped.
func BuildPlan(p string, data []byte, updatedAt time.Time) (*models.Plan, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}

	title := res.Title
	if title == "" {
		title = strings.TrimSuffix(path.Base(p), path.Ext(p))
	}

	plan := &models.Plan{
		ID:         p,
		Title:      title,
		Body:       res.Body,
		StartDate:  res.Start,
		TargetDate: res.Target,
		MarkerIDs:  res.Markers,
		Goals:      []models.Goal{},
		Checksum:   storage.Checksum(data),
		UpdatedAt:  updatedAt.UTC(),
	}

	var errs []error
	seen := make(map[string]struct{}, len(res.Goals))
	for i, spec := range res.Goals {
		g := models.Goal{
			ID:               strings.TrimSpace(spec.ID),
			PlanID:           p,
			MarkerID:         strings.TrimSpace(spec.Marker),
			Direction:        models.GoalDirection(strings.ToLower(strings.TrimSpace(spec.Direction))),
			TargetValue:      spec.Target,
			TargetValueUpper: spec.Upper,
		}
		if g.ID == "" {
			g.ID = goalID(p, i, g.MarkerID)
		}
		if err := g.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("goal %d (%s): %w", i, g.MarkerID, err))
			continue
		}
		if _, dup := seen[g.ID]; dup {
			errs = append(errs, fmt.Errorf("goal %d: duplicate id %q", i, g.ID))
			continue
		}
		seen[g.ID] = struct{}{}
		plan.Goals = append(plan.Goals, g)
	}
	return plan, errors.Join(errs...)
}

func goalID(planPath string, i int, markerID string) string {
	return uuid.NewSHA1(goalNamespace, []byte(planPath+"#"+strconv.Itoa(i)+":"+markerID)).String()
}

// isPlanPath reports whether a vault-relative path is a plan document.
// Uploaded reports live under reports/ and are never indexed.
func isPlanPath(p string) bool {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return strings.HasSuffix(p, ".md") && !strings.HasPrefix(p, ReportsDir+"/")
}

// ReportsDir is the vault subdirectory holding uploaded lab reports.
const ReportsDir = "reports"
