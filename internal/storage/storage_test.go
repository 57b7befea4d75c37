package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"webcalc/internal/config"
)

type fakeCache struct {
	data map[string][]byte
	dels int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (c *fakeCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.data[key] = data
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.dels++
	delete(c.data, key)
	return nil
}

// newTestStorage opens a migrated SQLite database in a temp dir. A file is
// used rather than :memory: so every pooled connection sees the same data.
func newTestStorage(t *testing.T, cache Cache) *Storage {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:         DriverSQLite,
		Path:           filepath.Join(t.TempDir(), "leads.db"),
		ConnectTimeout: 5 * time.Second,
	}
	s, err := New(context.Background(), cfg, cache, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func sampleLead() *Lead {
	return &Lead{
		ProjectType: "standard",
		Addons:      AddonList{"seo", "lead-generation"},
		Name:        "Jan Novák",
		Email:       "jan@example.cz",
		Phone:       "+420777123456",
		GDPRConsent: true,
		PriceMin:    28521,
		PriceMax:    43271,
		Currency:    "CZK",
	}
}

func TestSaveAndGetLead(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, nil)

	lead := sampleLead()
	if err := s.SaveLead(ctx, lead); err != nil {
		t.Fatalf("SaveLead: %v", err)
	}
	if lead.ID == "" || lead.Status != StatusNew || lead.Source != SourceCalculator {
		t.Fatalf("defaults not applied: %+v", lead)
	}

	got, err := s.GetLeadByID(ctx, lead.ID)
	if err != nil {
		t.Fatalf("GetLeadByID: %v", err)
	}
	if got.Name != "Jan Novák" || got.PriceMax != 43271 || !got.GDPRConsent {
		t.Fatalf("got %+v", got)
	}
	if len(got.Addons) != 2 || got.Addons[0] != "seo" {
		t.Fatalf("addons = %v", got.Addons)
	}
	if !got.CreatedAt.Equal(lead.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, lead.CreatedAt)
	}
}

func TestGetLeadByID_NotFound(t *testing.T) {
	s := newTestStorage(t, nil)
	if _, err := s.GetLeadByID(context.Background(), "missing"); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("err = %v, want ErrLeadNotFound", err)
	}
}

func TestSaveLead_NoAddons(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, nil)

	lead := sampleLead()
	lead.Addons = nil
	if err := s.SaveLead(ctx, lead); err != nil {
		t.Fatalf("SaveLead: %v", err)
	}
	got, _ := s.GetLeadByID(ctx, lead.ID)
	if got.Addons == nil || len(got.Addons) != 0 {
		t.Fatalf("addons = %#v, want empty", got.Addons)
	}
}

func TestListLeads_FilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, nil)

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	for i, pt := range []string{"basic", "eshop", "basic"} {
		l := sampleLead()
		l.ProjectType = pt
		l.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := s.SaveLead(ctx, l); err != nil {
			t.Fatalf("SaveLead: %v", err)
		}
	}

	all, err := s.ListLeads(ctx, LeadFilter{})
	if err != nil {
		t.Fatalf("ListLeads: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if !all[0].CreatedAt.After(all[1].CreatedAt) {
		t.Fatal("leads must be newest first")
	}

	basic, _ := s.ListLeads(ctx, LeadFilter{ProjectType: "basic"})
	if len(basic) != 2 {
		t.Fatalf("basic = %d, want 2", len(basic))
	}

	recent, _ := s.ListLeads(ctx, LeadFilter{Since: base.Add(90 * time.Minute)})
	if len(recent) != 1 {
		t.Fatalf("recent = %d, want 1", len(recent))
	}

	page, _ := s.ListLeads(ctx, LeadFilter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].ID != all[1].ID {
		t.Fatalf("page = %+v", page)
	}
}

func TestUpdateLeadStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, nil)

	lead := sampleLead()
	_ = s.SaveLead(ctx, lead)

	if err := s.UpdateLeadStatus(ctx, lead.ID, StatusContacted, "called back"); err != nil {
		t.Fatalf("UpdateLeadStatus: %v", err)
	}
	if err := s.UpdateLeadStatus(ctx, lead.ID, StatusConverted, ""); err != nil {
		t.Fatalf("UpdateLeadStatus: %v", err)
	}
	got, _ := s.GetLeadByID(ctx, lead.ID)
	if got.Status != StatusConverted || got.Note != "called back" {
		t.Fatalf("got status %q note %q", got.Status, got.Note)
	}

	if err := s.UpdateLeadStatus(ctx, lead.ID, "won", ""); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
	if err := s.UpdateLeadStatus(ctx, "missing", StatusNew, ""); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("err = %v, want ErrLeadNotFound", err)
	}
}

func TestGetLeadStatistics(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	s := newTestStorage(t, cache)

	now := time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	ages := []time.Duration{time.Hour, 3 * 24 * time.Hour, 20 * 24 * time.Hour, 60 * 24 * time.Hour}
	var ids []string
	for _, age := range ages {
		l := sampleLead()
		l.CreatedAt = now.Add(-age)
		_ = s.SaveLead(ctx, l)
		ids = append(ids, l.ID)
	}
	_ = s.UpdateLeadStatus(ctx, ids[3], StatusRejected, "")

	stats, err := s.GetLeadStatistics(ctx)
	if err != nil {
		t.Fatalf("GetLeadStatistics: %v", err)
	}
	if stats.TotalLeads != 4 || stats.TodayLeads != 1 || stats.WeekLeads != 2 || stats.MonthLeads != 3 {
		t.Fatalf("counts = %+v", stats)
	}
	if stats.PipelineMin != 3*28521 || stats.PipelineMax != 3*43271 {
		t.Fatalf("pipeline = %d-%d", stats.PipelineMin, stats.PipelineMax)
	}
	if stats.StatusCounts["new"] != 3 || stats.StatusCounts["rejected"] != 1 {
		t.Fatalf("status counts = %v", stats.StatusCounts)
	}
	if stats.ProjectTypeCounts["standard"] != 4 {
		t.Fatalf("project type counts = %v", stats.ProjectTypeCounts)
	}
	if _, ok := cache.data[statsCacheKey]; !ok {
		t.Fatal("statistics should be cached")
	}

	_ = s.SaveLead(ctx, sampleLead())
	if _, ok := cache.data[statsCacheKey]; ok {
		t.Fatal("saving a lead must invalidate the cache")
	}
	stats, _ = s.GetLeadStatistics(ctx)
	if stats.TotalLeads != 5 {
		t.Fatalf("total = %d after invalidation, want 5", stats.TotalLeads)
	}
}

func TestRollback(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, nil)

	if err := s.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate after rollback: %v", err)
	}
	if err := s.SaveLead(ctx, sampleLead()); err != nil {
		t.Fatalf("SaveLead: %v", err)
	}
}
