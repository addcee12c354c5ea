package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/parser"
	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/internal/store"
)

// PlanDetail is a plan together with its raw document.
type PlanDetail struct {
	models.Plan
	Content     string         `json:"content"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// Service coordinates vault writes and plan index updates.
type Service struct {
	vault    storage.Provider
	idx      store.PlanIndex
	now      func() time.Time
	onChange ChangeFunc
}

// Option configures a Service.
type Option func(*Service)

// WithChangeFunc registers a callback run after every successful write.
func WithChangeFunc(cb ChangeFunc) Option {
	return func(s *Service) { s.onChange = cb }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a plan service.
func NewService(vault storage.Provider, idx store.PlanIndex, opts ...Option) *Service {
	s := &Service{vault: vault, idx: idx, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List returns every indexed plan without bodies, newest first.
func (s *Service) List(ctx context.Context) ([]models.Plan, error) {
	plans, err := s.idx.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		plans[i].Body = ""
	}
	return plans, nil
}

// Get reads a plan document from the vault.
func (s *Service) Get(ctx context.Context, p string) (*PlanDetail, error) {
	p, err := cleanPlanPath(p)
	if err != nil {
		return nil, err
	}
	data, err := s.vault.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	updated := s.now()
	if indexed, err := s.idx.GetPlan(ctx, p); err == nil {
		updated = indexed.UpdatedAt
	}
	plan, _ := BuildPlan(p, data, updated)
	if plan == nil {
		// Unparseable on disk: still return the raw content so it can be fixed.
		plan = &models.Plan{ID: p, MarkerIDs: []string{}, Goals: []models.Goal{}, Checksum: storage.Checksum(data), UpdatedAt: updated}
	}
	return s.detail(*plan, data), nil
}

// Create writes a new plan document and indexes it.
func (s *Service) Create(ctx context.Context, p string, content []byte) (*PlanDetail, error) {
	p, err := cleanPlanPath(p)
	if err != nil {
		return nil, err
	}
	plan, err := s.build(p, content)
	if err != nil {
		return nil, err
	}
	if err := s.vault.Create(p, content); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, apperr.ErrAlreadyExists
		}
		return nil, err
	}
	if err := s.idx.UpsertPlan(ctx, *plan); err != nil {
		return nil, err
	}
	s.notify("created", p)
	return s.detail(*plan, content), nil
}

// Update replaces a plan document. A non-empty ifMatch must equal the
// checksum of the current content.
func (s *Service) Update(ctx context.Context, p string, content []byte, ifMatch string) (*PlanDetail, error) {
	p, err := cleanPlanPath(p)
	if err != nil {
		return nil, err
	}
	existing, err := s.vault.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && strings.Trim(ifMatch, `"`) != storage.Checksum(existing) {
		return nil, apperr.ErrConflict
	}
	plan, err := s.build(p, content)
	if err != nil {
		return nil, err
	}
	if err := s.vault.Write(p, content); err != nil {
		return nil, err
	}
	if err := s.idx.UpsertPlan(ctx, *plan); err != nil {
		return nil, err
	}
	s.notify("updated", p)
	return s.detail(*plan, content), nil
}

// Delete removes a plan from the vault and the index.
func (s *Service) Delete(ctx context.Context, p string) error {
	p, err := cleanPlanPath(p)
	if err != nil {
		return err
	}
	if err := s.vault.Delete(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	if err := s.idx.DeletePlan(ctx, p); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	s.notify("deleted", p)
	return nil
}

// Move renames a plan document. The destination must not exist.
func (s *Service) Move(ctx context.Context, from, to string) (*PlanDetail, error) {
	from, err := cleanPlanPath(from)
	if err != nil {
		return nil, err
	}
	to, err = cleanPlanPath(to)
	if err != nil {
		return nil, err
	}
	data, err := s.vault.Read(from)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if from == to {
		return s.Get(ctx, from)
	}
	if _, err := s.vault.Read(to); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.vault.Move(from, to); err != nil {
		return nil, err
	}
	if err := s.idx.DeletePlan(ctx, from); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	s.notify("deleted", from)

	plan, _ := BuildPlan(to, data, s.now())
	if plan == nil {
		return s.Get(ctx, to)
	}
	if err := s.idx.UpsertPlan(ctx, *plan); err != nil {
		return nil, err
	}
	s.notify("created", to)
	return s.detail(*plan, data), nil
}

// Search runs a full-text query over plan titles and bodies.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []store.SearchResult{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.idx.SearchPlans(ctx, query, limit)
}

// build parses content strictly: writes through the service reject
// documents with bad dates or invalid goals.
func (s *Service) build(p string, content []byte) (*models.Plan, error) {
	plan, err := BuildPlan(p, content, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return plan, nil
}

func (s *Service) detail(plan models.Plan, data []byte) *PlanDetail {
	d := &PlanDetail{Plan: plan, Content: string(data)}
	if res, err := parser.Parse(data); err == nil {
		d.Frontmatter = res.Frontmatter
	}
	return d
}

func (s *Service) notify(kind, p string) {
	if s.onChange != nil {
		s.onChange(kind, p)
	}
}

// cleanPlanPath normalizes a client-supplied path and rejects anything
// that is not a Markdown document inside the vault.
func cleanPlanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if p == "" || path.IsAbs(p) {
		return "", fmt.Errorf("%w: path must be relative", apperr.ErrInvalid)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: path escapes the journal", apperr.ErrInvalid)
	}
	if !isPlanPath(clean) {
		return "", fmt.Errorf("%w: plans must be .md files outside %s/", apperr.ErrInvalid, ReportsDir)
	}
	return clean, nil
}
