package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/db"
	"github.com/Simplici0/costbook/internal/migrations"
	"github.com/Simplici0/costbook/internal/model"
	"github.com/Simplici0/costbook/internal/pricing"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "store-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	s := New(database)
	s.now = func() time.Time { return testNow }
	return s
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustMaterial(t *testing.T, s *Store, code, price string) *model.Material {
	t.Helper()
	m := &model.Material{Code: code, Name: code + " name", Category: "Wire", CurrentPrice: d(price), Active: true}
	if err := s.CreateMaterial(context.Background(), m, "tester"); err != nil {
		t.Fatalf("create material %s: %v", code, err)
	}
	return m
}

func TestCreateMaterialWritesBaselineHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := mustMaterial(t, s, "W-122", "0.89")

	got, err := s.GetMaterial(ctx, m.ID)
	if err != nil {
		t.Fatalf("get material: %v", err)
	}
	if got.Code != "W-122" || !got.CurrentPrice.Equal(d("0.89")) || !got.Active || got.UnitOfMeasure != "EA" {
		t.Fatalf("unexpected material: %+v", got)
	}
	if !got.CreatedAt.Equal(testNow) {
		t.Fatalf("created_at = %s, want %s", got.CreatedAt, testNow)
	}

	history, err := s.QueryPriceHistory(ctx, m.ID, nil, nil)
	if err != nil {
		t.Fatalf("query history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected baseline entry, got %d entries", len(history))
	}
	h := history[0]
	if !h.Price.Equal(d("0.89")) || !h.PercentageChangeFromPrevious.IsZero() || h.AlertLevel != model.AlertNone || h.CreatedBy != "tester" {
		t.Fatalf("unexpected baseline: %+v", h)
	}
}

func TestCreateMaterialValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustMaterial(t, s, "DUP", "1")

	cases := []*model.Material{
		{Code: "", Name: "No code", CurrentPrice: d("1")},
		{Code: "NEG", Name: "Negative", CurrentPrice: d("-1")},
		{Code: "DUP", Name: "Duplicate", CurrentPrice: d("1")},
	}
	for _, m := range cases {
		if err := s.CreateMaterial(ctx, m, ""); !errors.Is(err, model.ErrInvalidValue) {
			t.Fatalf("create %q: expected ErrInvalidValue, got %v", m.Code, err)
		}
	}
}

func TestGetMaterialNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetMaterial(context.Background(), 404); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSavePriceChangeIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := mustMaterial(t, s, "BOX-4", "2.00")

	ghost := *m
	ghost.ID = 999
	ghost.CurrentPrice = d("3.00")
	entry := &model.PriceHistoryEntry{MaterialID: m.ID, Price: d("3.00"), EffectiveDate: testNow, CreatedBy: "x", AlertLevel: model.AlertImmediate}
	if err := s.SavePriceChange(ctx, &ghost, entry); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	history, err := s.QueryPriceHistory(ctx, m.ID, nil, nil)
	if err != nil {
		t.Fatalf("query history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("failed save left %d history entries, want 1", len(history))
	}
}

func TestQueryPriceHistoryInclusiveBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := mustMaterial(t, s, "PVC", "1")

	for i, p := range []string{"2", "3", "4"} {
		at := testNow.AddDate(0, 0, i+1)
		updated := *m
		updated.CurrentPrice = d(p)
		updated.UpdatedAt = at
		if err := s.SavePriceChange(ctx, &updated, &model.PriceHistoryEntry{
			MaterialID: m.ID, Price: d(p), EffectiveDate: at, CreatedBy: "t", AlertLevel: model.AlertImmediate,
		}); err != nil {
			t.Fatalf("save price change: %v", err)
		}
	}

	from, to := testNow.AddDate(0, 0, 1), testNow.AddDate(0, 0, 2)
	got, err := s.QueryPriceHistory(ctx, m.ID, &from, &to)
	if err != nil {
		t.Fatalf("query history: %v", err)
	}
	if len(got) != 2 || !got[0].Price.Equal(d("2")) || !got[1].Price.Equal(d("3")) {
		t.Fatalf("unexpected bounded history: %+v", got)
	}
}

func TestPricingEngineOverSQLite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := mustMaterial(t, s, "PANEL-200", "100.00")

	clock := testNow
	engine := pricing.NewEngine(s, pricing.DefaultSettings(),
		pricing.WithClock(func() time.Time { return clock }),
		pricing.WithLogger(zerolog.Nop()))

	var majors int
	engine.OnMajorChange(func(context.Context, pricing.PriceChangeEvent) error {
		majors++
		return nil
	})

	po := "PO-7781"
	qty := d("4")
	clock = clock.Add(time.Hour)
	res, err := engine.UpdatePrice(ctx, pricing.PriceUpdate{MaterialID: m.ID, NewPrice: d("85.00"), Actor: "erik", PurchaseOrder: &po, Quantity: &qty})
	if err != nil {
		t.Fatalf("update price: %v", err)
	}
	if res.Change.Level != model.AlertImmediate || majors != 1 {
		t.Fatalf("expected one immediate notification, got level=%s majors=%d", res.Change.Level, majors)
	}

	got, err := s.GetMaterial(ctx, m.ID)
	if err != nil {
		t.Fatalf("get material: %v", err)
	}
	if !got.CurrentPrice.Equal(d("85")) {
		t.Fatalf("current price = %s, want 85", got.CurrentPrice)
	}

	history, err := engine.GetPriceHistory(ctx, m.ID, nil, nil)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	latest := history[0]
	if !latest.PercentageChangeFromPrevious.Equal(d("-15")) || latest.PurchaseOrder == nil || *latest.PurchaseOrder != po {
		t.Fatalf("unexpected latest entry: %+v", latest)
	}
	if latest.QuantityPurchased == nil || !latest.QuantityPurchased.Equal(qty) || latest.VendorID != nil {
		t.Fatalf("unexpected purchase details: %+v", latest)
	}

	alerts, err := engine.GetPriceAlerts(ctx, 30)
	if err != nil {
		t.Fatalf("get alerts: %v", err)
	}
	if len(alerts) != 1 || !alerts[0].OldPrice.Equal(d("100")) {
		t.Fatalf("unexpected alerts: %+v", alerts)
	}
}

func TestAssemblyDefaultsAndComponents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	wire := mustMaterial(t, s, "W-142", "25.00")

	first := &model.AssemblyTemplate{Code: "DR", Name: "Duplex receptacle", Labor: model.Labor{RoughMinutes: 30, FinishMinutes: 20}, IsDefault: true, Active: true, CreatedBy: "t"}
	comp := &model.AssemblyComponent{Item: model.ItemRef{Kind: model.ItemMaterial, ID: wire.ID}, Quantity: d("1"), UnitPrice: wire.CurrentPrice, ItemName: wire.Name}
	if err := s.CreateAssembly(ctx, first, []*model.AssemblyComponent{comp}); err != nil {
		t.Fatalf("create assembly: %v", err)
	}
	second := &model.AssemblyTemplate{Code: "DR", Name: "Duplex receptacle GFCI", IsDefault: true, Active: true, CreatedBy: "t"}
	if err := s.CreateAssembly(ctx, second, nil); err != nil {
		t.Fatalf("create variant: %v", err)
	}

	group, err := s.ListAssembliesByCode(ctx, "DR")
	if err != nil {
		t.Fatalf("list assemblies: %v", err)
	}
	if len(group) != 2 || group[0].ID != second.ID || !group[0].IsDefault || group[1].IsDefault {
		t.Fatalf("expected the newest default to replace the old one: %+v", group)
	}

	if err := s.SetDefaultAssembly(ctx, first.ID); err != nil {
		t.Fatalf("set default: %v", err)
	}
	group, err = s.ListAssembliesByCode(ctx, "DR")
	if err != nil {
		t.Fatalf("list assemblies: %v", err)
	}
	if group[0].ID != first.ID || group[1].IsDefault {
		t.Fatalf("expected first to be the only default: %+v", group)
	}

	dup := &model.AssemblyComponent{AssemblyID: first.ID, Item: comp.Item, Quantity: d("2")}
	if err := s.AddComponent(ctx, dup); !errors.Is(err, model.ErrDuplicateComponent) {
		t.Fatalf("expected ErrDuplicateComponent, got %v", err)
	}

	deleted, err := s.DeleteComponent(ctx, comp.ID)
	if err != nil || !deleted {
		t.Fatalf("delete component: deleted=%v err=%v", deleted, err)
	}
	deleted, err = s.DeleteComponent(ctx, comp.ID)
	if err != nil || deleted {
		t.Fatalf("second delete should be a no-op: deleted=%v err=%v", deleted, err)
	}
}

func sampleEstimate() *model.Estimate {
	asmID := int64(7)
	return &model.Estimate{
		CustomerID:     3,
		JobName:        "Kitchen remodel",
		Status:         model.EstimateDraft,
		LaborRate:      d("75.00"),
		MaterialMarkup: d("22"),
		TaxPercent:     d("0"),
		Rooms: []*model.EstimateRoom{{
			Name:  "Kitchen",
			Order: 1,
			Items: []*model.LineItem{{
				Mode:             model.ModeAssembly,
				AssemblyID:       &asmID,
				Code:             "DR",
				Description:      "Duplex receptacle",
				Quantity:         3,
				UnitMaterialCost: d("29.00"),
				UnitPrice:        d("97.88"),
				StageLabor:       model.Labor{RoughMinutes: 30, FinishMinutes: 20},
			}},
		}},
	}
}

func TestEstimateRoundTripKeepsIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	est := sampleEstimate()
	if err := s.CreateEstimate(ctx, est); err != nil {
		t.Fatalf("create estimate: %v", err)
	}
	if est.Number != "EST-00001" {
		t.Fatalf("number = %q, want EST-00001", est.Number)
	}
	roomID, lineID := est.Rooms[0].ID, est.Rooms[0].Items[0].ID
	if roomID == 0 || lineID == 0 {
		t.Fatalf("expected ids to be assigned")
	}

	est.Rooms[0].Items[0].Quantity = 5
	est.Rooms = append(est.Rooms, &model.EstimateRoom{Name: "Garage", Order: 2})
	if err := s.SaveEstimate(ctx, est); err != nil {
		t.Fatalf("save estimate: %v", err)
	}

	got, err := s.GetEstimate(ctx, est.ID)
	if err != nil {
		t.Fatalf("get estimate: %v", err)
	}
	if len(got.Rooms) != 2 || got.Rooms[0].ID != roomID || got.Rooms[1].Name != "Garage" {
		t.Fatalf("unexpected rooms: %+v", got.Rooms)
	}
	li := got.Rooms[0].Items[0]
	if li.ID != lineID || li.Quantity != 5 || !li.UnitMaterialCost.Equal(d("29")) || li.StageLabor.RoughMinutes != 30 {
		t.Fatalf("unexpected line item: %+v", li)
	}
	if li.AssemblyID == nil || *li.AssemblyID != 7 || li.PriceListItemID != nil {
		t.Fatalf("unexpected line references: %+v", li)
	}
	if !got.LaborRate.Equal(d("75")) || got.Status != model.EstimateDraft {
		t.Fatalf("unexpected header: %+v", got)
	}
}

func TestConvertEstimateOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	est := sampleEstimate()
	est.Status = model.EstimateApproved
	if err := s.CreateEstimate(ctx, est); err != nil {
		t.Fatalf("create estimate: %v", err)
	}

	job := &model.Job{CustomerID: est.CustomerID, Name: est.JobName, Status: "active", LaborRate: est.LaborRate}
	stages := []*model.JobStage{{Name: model.StageRough, EstimatedMinutes: 90, EstimatedHours: d("1.5"), EstimatedMaterialCost: d("52.2")}}
	if err := s.ConvertEstimate(ctx, est.ID, job, stages); err != nil {
		t.Fatalf("convert estimate: %v", err)
	}
	if job.ID == 0 || job.Number != "JOB-00001" || stages[0].JobID != job.ID {
		t.Fatalf("unexpected job: %+v", job)
	}

	again := &model.Job{Name: "again", Status: "active"}
	if err := s.ConvertEstimate(ctx, est.ID, again, nil); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	got, err := s.GetEstimate(ctx, est.ID)
	if err != nil {
		t.Fatalf("get estimate: %v", err)
	}
	if got.Status != model.EstimateConverted || got.JobID == nil || *got.JobID != job.ID {
		t.Fatalf("estimate not linked to job: %+v", got)
	}

	st, err := s.AddStageActuals(ctx, job.ID, model.StageRough, d("1"), d("10"))
	if err != nil {
		t.Fatalf("add actuals: %v", err)
	}
	st, err = s.AddStageActuals(ctx, job.ID, model.StageRough, d("0.75"), d("5.50"))
	if err != nil {
		t.Fatalf("add actuals: %v", err)
	}
	if !st.ActualHours.Equal(d("1.75")) || !st.ActualMaterialCost.Equal(d("15.5")) {
		t.Fatalf("unexpected actuals: %+v", st)
	}

	if _, err := s.AddStageActuals(ctx, job.ID, model.StageOther, d("2"), decimal.Zero); err != nil {
		t.Fatalf("add actuals to unestimated stage: %v", err)
	}
	all, err := s.GetJobStages(ctx, job.ID)
	if err != nil {
		t.Fatalf("get stages: %v", err)
	}
	if len(all) != 2 || all[1].Name != model.StageOther || !all[1].EstimatedHours.IsZero() || all[1].EstimatedMinutes != 0 {
		t.Fatalf("unexpected stages: %+v", all)
	}
	if all[0].EstimatedMinutes != 90 || !all[0].EstimatedHours.Equal(d("1.5")) {
		t.Fatalf("unexpected stages: %+v", all)
	}

	if _, err := s.AddStageActuals(ctx, 999, model.StageRough, d("1"), decimal.Zero); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown job, got %v", err)
	}
}

func TestConvertEstimateRequiresApproval(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	est := sampleEstimate()
	if err := s.CreateEstimate(ctx, est); err != nil {
		t.Fatalf("create estimate: %v", err)
	}
	job := &model.Job{Name: "draft job", Status: "active"}
	if err := s.ConvertEstimate(ctx, est.ID, job, nil); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	var jobs int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM jobs`).Scan(&jobs); err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if jobs != 0 {
		t.Fatalf("expected rollback to leave no job, got %d", jobs)
	}
}
