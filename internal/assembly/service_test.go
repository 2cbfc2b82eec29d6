package assembly

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

type fakeStore struct {
	assemblies map[int64]*model.AssemblyTemplate
	components map[int64]*model.AssemblyComponent
	materials  map[int64]*model.Material
	priceList  map[int64]*model.PriceListItem
	nextID     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		assemblies: map[int64]*model.AssemblyTemplate{},
		components: map[int64]*model.AssemblyComponent{},
		materials:  map[int64]*model.Material{},
		priceList:  map[int64]*model.PriceListItem{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateAssembly(_ context.Context, a *model.AssemblyTemplate, components []*model.AssemblyComponent) error {
	if a.IsDefault {
		for _, other := range f.assemblies {
			if other.Code == a.Code {
				other.IsDefault = false
			}
		}
	}
	a.ID = f.id()
	cp := *a
	f.assemblies[a.ID] = &cp
	for _, c := range components {
		c.AssemblyID = a.ID
		c.ID = f.id()
		cc := *c
		f.components[c.ID] = &cc
	}
	return nil
}

func (f *fakeStore) GetAssembly(_ context.Context, id int64) (*model.AssemblyTemplate, error) {
	a, ok := f.assemblies[id]
	if !ok {
		return nil, fmt.Errorf("%w: assembly %d", model.ErrNotFound, id)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ListAssembliesByCode(_ context.Context, code string) ([]*model.AssemblyTemplate, error) {
	out := []*model.AssemblyTemplate{}
	for _, a := range f.assemblies {
		if a.Code == code {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) UpdateAssemblyLabor(_ context.Context, id int64, labor model.Labor, actor string) error {
	a, ok := f.assemblies[id]
	if !ok {
		return fmt.Errorf("%w: assembly %d", model.ErrNotFound, id)
	}
	a.Labor = labor
	a.UpdatedBy = actor
	return nil
}

func (f *fakeStore) SetDefaultAssembly(_ context.Context, id int64) error {
	a, ok := f.assemblies[id]
	if !ok {
		return fmt.Errorf("%w: assembly %d", model.ErrNotFound, id)
	}
	for _, other := range f.assemblies {
		if other.Code == a.Code {
			other.IsDefault = other.ID == id
		}
	}
	return nil
}

func (f *fakeStore) ListComponents(_ context.Context, assemblyID int64) ([]*model.AssemblyComponent, error) {
	out := []*model.AssemblyComponent{}
	for _, c := range f.components {
		if c.AssemblyID == assemblyID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) AddComponent(_ context.Context, c *model.AssemblyComponent) error {
	for _, other := range f.components {
		if other.AssemblyID == c.AssemblyID && other.Item == c.Item {
			return fmt.Errorf("%w: %v", model.ErrDuplicateComponent, c.Item)
		}
	}
	c.ID = f.id()
	cp := *c
	f.components[c.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateComponentQuantity(_ context.Context, id int64, qty decimal.Decimal) error {
	c, ok := f.components[id]
	if !ok {
		return fmt.Errorf("%w: component %d", model.ErrNotFound, id)
	}
	c.Quantity = qty
	return nil
}

func (f *fakeStore) DeleteComponent(_ context.Context, id int64) (bool, error) {
	if _, ok := f.components[id]; !ok {
		return false, nil
	}
	delete(f.components, id)
	return true, nil
}

func (f *fakeStore) GetMaterial(_ context.Context, id int64) (*model.Material, error) {
	m, ok := f.materials[id]
	if !ok {
		return nil, fmt.Errorf("%w: material %d", model.ErrNotFound, id)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) GetPriceListItem(_ context.Context, id int64) (*model.PriceListItem, error) {
	p, ok := f.priceList[id]
	if !ok {
		return nil, fmt.Errorf("%w: price list item %d", model.ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(store Store) *Service {
	s := NewService(store)
	s.logger = zerolog.Nop()
	return s
}

func TestCostFollowsLivePrices(t *testing.T) {
	store := newFakeStore()
	store.materials[1] = &model.Material{ID: 1, Name: "A", CurrentPrice: d("10.00")}
	store.materials[2] = &model.Material{ID: 2, Name: "B", CurrentPrice: d("5.00")}
	svc := newTestService(store)
	ctx := context.Background()

	a, err := svc.Create(ctx, NewAssembly{Code: "ab", Name: "A and B"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.AddComponent(ctx, a.ID, model.ItemRef{Kind: model.ItemMaterial, ID: 1}, d("2"), ""); err != nil {
		t.Fatalf("add A: %v", err)
	}
	if _, err := svc.AddComponent(ctx, a.ID, model.ItemRef{Kind: model.ItemMaterial, ID: 2}, d("1"), ""); err != nil {
		t.Fatalf("add B: %v", err)
	}

	cost, err := svc.Cost(ctx, a.ID)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if !cost.TotalMaterialCost.Equal(d("25")) {
		t.Fatalf("total material = %s, want 25", cost.TotalMaterialCost)
	}

	store.materials[1].CurrentPrice = d("12.00")

	cost, err = svc.Cost(ctx, a.ID)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if !cost.TotalMaterialCost.Equal(d("29")) {
		t.Fatalf("total material after price change = %s, want 29", cost.TotalMaterialCost)
	}
	// The cached add-time price is for display only.
	if !cost.Components[0].Component.UnitPrice.Equal(d("10")) || !cost.Components[0].UnitPrice.Equal(d("12")) {
		t.Fatalf("unexpected component pricing: %+v", cost.Components[0])
	}
}

func TestCostIncludesPriceListItemsAndLabor(t *testing.T) {
	store := newFakeStore()
	store.priceList[1] = &model.PriceListItem{ID: 1, Name: "Plate", BaseCost: d("1.50"), MarkupPercent: d("50")}
	svc := newTestService(store)
	ctx := context.Background()

	a, err := svc.Create(ctx, NewAssembly{Code: "DR", Name: "Duplex", Labor: model.Labor{RoughMinutes: 30, FinishMinutes: 20}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.AddComponent(ctx, a.ID, model.ItemRef{Kind: model.ItemPriceListItem, ID: 1}, d("2"), "ivory"); err != nil {
		t.Fatalf("add plate: %v", err)
	}

	cost, err := svc.Cost(ctx, a.ID)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if !cost.TotalMaterialCost.Equal(d("3")) || cost.TotalLaborMinutes != 50 {
		t.Fatalf("unexpected cost: material=%s minutes=%d", cost.TotalMaterialCost, cost.TotalLaborMinutes)
	}
	if got := cost.LaborCost(d("75")); !got.Equal(d("62.5")) {
		t.Fatalf("labor cost = %s, want 62.5", got)
	}
	// 62.50 labor + 3.00 * 1.22 material
	if got := cost.TotalCost(d("75"), d("22")); !got.Equal(d("66.16")) {
		t.Fatalf("total cost = %s, want 66.16", got)
	}
}

func TestAddComponentValidation(t *testing.T) {
	store := newFakeStore()
	store.materials[1] = &model.Material{ID: 1, Name: "A", CurrentPrice: d("10")}
	svc := newTestService(store)
	ctx := context.Background()

	a, err := svc.Create(ctx, NewAssembly{Code: "X", Name: "X"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ref := model.ItemRef{Kind: model.ItemMaterial, ID: 1}

	tests := []struct {
		name    string
		asm     int64
		ref     model.ItemRef
		qty     string
		wantErr error
	}{
		{"zero quantity", a.ID, ref, "0", model.ErrInvalidValue},
		{"negative quantity", a.ID, ref, "-1", model.ErrInvalidValue},
		{"unknown assembly", 999, ref, "1", model.ErrNotFound},
		{"unknown material", a.ID, model.ItemRef{Kind: model.ItemMaterial, ID: 42}, "1", model.ErrNotFound},
		{"unknown kind", a.ID, model.ItemRef{Kind: "labor", ID: 1}, "1", model.ErrInvalidValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.AddComponent(ctx, tc.asm, tc.ref, d(tc.qty), ""); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	if _, err := svc.AddComponent(ctx, a.ID, ref, d("1"), ""); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := svc.AddComponent(ctx, a.ID, ref, d("3"), ""); !errors.Is(err, model.ErrDuplicateComponent) {
		t.Fatalf("expected ErrDuplicateComponent, got %v", err)
	}
}

func TestRemoveComponentIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.materials[1] = &model.Material{ID: 1, Name: "A", CurrentPrice: d("10")}
	svc := newTestService(store)
	ctx := context.Background()

	a, _ := svc.Create(ctx, NewAssembly{Code: "X", Name: "X"})
	c, err := svc.AddComponent(ctx, a.ID, model.ItemRef{Kind: model.ItemMaterial, ID: 1}, d("1"), "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.RemoveComponent(ctx, c.ID); err != nil {
			t.Fatalf("remove (iteration=%d): %v", i, err)
		}
	}
	cost, err := svc.Cost(ctx, a.ID)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if len(cost.Components) != 0 || !cost.TotalMaterialCost.IsZero() {
		t.Fatalf("expected empty assembly, got %+v", cost)
	}
}

func TestUpdateComponentQuantity(t *testing.T) {
	store := newFakeStore()
	store.materials[1] = &model.Material{ID: 1, Name: "A", CurrentPrice: d("10")}
	svc := newTestService(store)
	ctx := context.Background()

	a, _ := svc.Create(ctx, NewAssembly{Code: "X", Name: "X"})
	c, _ := svc.AddComponent(ctx, a.ID, model.ItemRef{Kind: model.ItemMaterial, ID: 1}, d("1"), "")

	if err := svc.UpdateComponentQuantity(ctx, c.ID, d("0")); !errors.Is(err, model.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if err := svc.UpdateComponentQuantity(ctx, c.ID, d("2.5")); err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	cost, _ := svc.Cost(ctx, a.ID)
	if !cost.TotalMaterialCost.Equal(d("25")) {
		t.Fatalf("total = %s, want 25", cost.TotalMaterialCost)
	}
}

func TestVariantDefaults(t *testing.T) {
	store := newFakeStore()
	store.materials[1] = &model.Material{ID: 1, Name: "Box", CurrentPrice: d("2")}
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Create(ctx, NewAssembly{Code: " sw ", Name: "Single pole switch", Labor: model.Labor{RoughMinutes: 25}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Code != "SW" || !first.IsDefault {
		t.Fatalf("first template of a code should be default: %+v", first)
	}
	if _, err := svc.AddComponent(ctx, first.ID, model.ItemRef{Kind: model.ItemMaterial, ID: 1}, d("1"), ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	second, err := svc.Create(ctx, NewAssembly{Code: "SW", Name: "Switch, old work"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.IsDefault {
		t.Fatalf("second template should not steal the default")
	}
	def, err := svc.DefaultFor(ctx, "sw")
	if err != nil || def.ID != first.ID {
		t.Fatalf("default = %+v, err %v; want first", def, err)
	}

	variant, err := svc.CreateVariant(ctx, first.ID, "Switch, plaster wall", "erik")
	if err != nil {
		t.Fatalf("create variant: %v", err)
	}
	if variant.IsDefault || variant.Code != "SW" || variant.Labor != first.Labor {
		t.Fatalf("unexpected variant: %+v", variant)
	}
	vc, _ := svc.Cost(ctx, variant.ID)
	if len(vc.Components) != 1 || !vc.TotalMaterialCost.Equal(d("2")) {
		t.Fatalf("variant should copy components: %+v", vc)
	}

	third, err := svc.Create(ctx, NewAssembly{Code: "SW", Name: "Switch, decora", MakeDefault: true})
	if err != nil {
		t.Fatalf("create third: %v", err)
	}
	group, _ := svc.Variants(ctx, "SW")
	defaults := 0
	for _, a := range group {
		if a.IsDefault {
			defaults++
		}
	}
	if len(group) != 4 || defaults != 1 || group[0].ID != third.ID {
		t.Fatalf("expected exactly one default (third), got %+v", group)
	}

	if err := svc.SetDefault(ctx, second.ID); err != nil {
		t.Fatalf("set default: %v", err)
	}
	def, _ = svc.DefaultFor(ctx, "SW")
	if def.ID != second.ID {
		t.Fatalf("default = %d, want %d", def.ID, second.ID)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	cases := []NewAssembly{
		{Code: "", Name: "x"},
		{Code: "A B", Name: "x"},
		{Code: "AB", Name: " "},
		{Code: "AB", Name: "x", Labor: model.Labor{FinishMinutes: -5}},
	}
	for _, in := range cases {
		if _, err := svc.Create(ctx, in); !errors.Is(err, model.ErrInvalidValue) {
			t.Fatalf("create %+v: expected ErrInvalidValue, got %v", in, err)
		}
	}
	if err := svc.UpdateLabor(ctx, 1, model.Labor{RoughMinutes: -1}, ""); !errors.Is(err, model.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}
