package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foodlink/necessity_backend/models"
	"github.com/foodlink/necessity_backend/utils"
	"github.com/shopspring/decimal"
)

// fakeSource is an in-memory GenerationSource so the pipeline semantics can
// be exercised without MySQL.
type fakeSource struct {
	menu        models.Menu
	kitchens    []EligibleKitchen
	menuPeriods map[int]struct{}
	periods     map[int][]PeriodRef // by kitchen
	menuProds   map[int]struct{}
	pairs       map[int][]MenuTypeProduct // by kitchen
	dishes      []MenuDishRow
	dishProds   map[int]map[int][]DishProductRow // by cost center, dish
	averages    map[[4]int]decimal.Decimal       // kitchen, period, menuType, product
}

func (f *fakeSource) MenuByID(ctx context.Context, menuId int) (*models.Menu, error) {
	if menuId != f.menu.ID {
		return nil, utils.NewNotFoundError("menu", "menu %d not found", menuId)
	}
	m := f.menu
	return &m, nil
}

func (f *fakeSource) EligibleKitchens(ctx context.Context, in GenerationInput) ([]EligibleKitchen, error) {
	return f.kitchens, nil
}

func (f *fakeSource) MenuPeriodIDs(ctx context.Context, menuId int) (map[int]struct{}, error) {
	return f.menuPeriods, nil
}

func (f *fakeSource) KitchenServicePeriods(ctx context.Context, kitchenId int) ([]PeriodRef, error) {
	return append([]PeriodRef(nil), f.periods[kitchenId]...), nil
}

func (f *fakeSource) MenuCommercialProductIDs(ctx context.Context, menuId int) (map[int]struct{}, error) {
	return f.menuProds, nil
}

func (f *fakeSource) KitchenMenuTypeProducts(ctx context.Context, kitchenId int) ([]MenuTypeProduct, error) {
	return append([]MenuTypeProduct(nil), f.pairs[kitchenId]...), nil
}

func (f *fakeSource) MenuDishes(ctx context.Context, menuId int) ([]MenuDishRow, error) {
	return f.dishes, nil
}

func (f *fakeSource) DishProductsByCostCenter(ctx context.Context, costCenterId int) (map[int][]DishProductRow, error) {
	return f.dishProds[costCenterId], nil
}

func (f *fakeSource) HeadcountAverage(ctx context.Context, kitchenId, periodId, menuTypeId, productId int) (decimal.Decimal, bool, error) {
	avg, ok := f.averages[[4]int{kitchenId, periodId, menuTypeId, productId}]
	return avg, ok, nil
}

func testInput() GenerationInput {
	return GenerationInput{BranchId: 1, CostCenterId: 2, ContractId: 3, MenuId: 10}
}

func newFakeSource() *fakeSource {
	day := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	return &fakeSource{
		menu: models.Menu{ID: 10, Name: "Cardapio Mensal", MonthRef: 3, YearRef: 2026},
		kitchens: []EligibleKitchen{{
			KitchenId: 5, KitchenName: "Cozinha Norte",
			BranchId: 1, BranchName: "Filial Centro",
			CostCenterId: 2, CostCenterName: "CC Industrial",
			ContractId: 3, ContractName: "Contrato Alfa",
		}},
		menuPeriods: map[int]struct{}{7: {}},
		periods:     map[int][]PeriodRef{5: {{ID: 7, Name: "Almoco"}}},
		menuProds:   map[int]struct{}{100: {}},
		pairs: map[int][]MenuTypeProduct{
			5: {{MenuTypeId: 4, ProductId: 100, Label: "Refeicao Almoco"}},
		},
		dishes: []MenuDishRow{{Day: day, DishId: 20, DishName: "Arroz", DisplayOrder: 1}},
		dishProds: map[int]map[int][]DishProductRow{
			2: {20: {{ProductId: 200, ProductName: "Arroz Branco", Unit: "kg", PerCapita: decimal.RequireFromString("0.08")}}},
		},
		averages: map[[4]int]decimal.Decimal{
			{5, 7, 4, 100}: decimal.NewFromInt(120),
		},
	}
}

func TestComputeNecessity_QuantityIsRoundedAverageTimesPerCapita(t *testing.T) {
	src := newFakeSource()
	result, err := ComputeNecessity(context.Background(), src, testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalItems != 1 || result.KitchenCount != 1 {
		t.Fatalf("expected 1 item from 1 kitchen, got %d items from %d kitchens", result.TotalItems, result.KitchenCount)
	}

	item := result.Items[0]
	if !item.Quantity.Equal(decimal.RequireFromString("9.600")) {
		t.Errorf("quantity = %s, want 9.600", item.Quantity)
	}
	if item.Status != models.StatusGenerated {
		t.Errorf("status = %s, want %s", item.Status, models.StatusGenerated)
	}
	if item.KitchenName != "Cozinha Norte" || item.ProductName != "Arroz Branco" || item.MenuTypeLabel != "Refeicao Almoco" {
		t.Errorf("denormalized names not carried: %+v", item)
	}
	if item.MonthRef != 3 || item.Year != 2026 {
		t.Errorf("menu reference not carried: month=%d year=%d", item.MonthRef, item.Year)
	}
}

func TestComputeNecessity_MissingAverageAbortsWithFullFaultList(t *testing.T) {
	src := newFakeSource()
	// Second kitchen, also without an average: both faults must come back
	// in one pass, not only the first.
	src.kitchens = append(src.kitchens, EligibleKitchen{
		KitchenId: 6, KitchenName: "Cozinha Sul",
		BranchId: 1, CostCenterId: 2, ContractId: 3,
	})
	src.periods[6] = []PeriodRef{{ID: 7, Name: "Almoco"}}
	src.pairs[6] = []MenuTypeProduct{{MenuTypeId: 4, ProductId: 100, Label: "Refeicao Almoco"}}
	delete(src.averages, [4]int{5, 7, 4, 100})

	_, err := ComputeNecessity(context.Background(), src, testInput())
	var missing *models.MissingAveragesError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingAveragesError, got %v", err)
	}
	if len(missing.Faults) != 2 {
		t.Fatalf("expected 2 faults, got %d: %+v", len(missing.Faults), missing.Faults)
	}
	seen := map[int]bool{}
	for _, f := range missing.Faults {
		seen[f.KitchenId] = true
	}
	if !seen[5] || !seen[6] {
		t.Fatalf("faults must cover every kitchen, got %+v", missing.Faults)
	}
}

func TestComputeNecessity_ZeroAverageIsAFault(t *testing.T) {
	src := newFakeSource()
	src.averages[[4]int{5, 7, 4, 100}] = decimal.Zero

	_, err := ComputeNecessity(context.Background(), src, testInput())
	var missing *models.MissingAveragesError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingAveragesError for a zero average, got %v", err)
	}
}

func TestComputeNecessity_NoEligibleKitchenIsHardStop(t *testing.T) {
	src := newFakeSource()
	src.kitchens = nil

	_, err := ComputeNecessity(context.Background(), src, testInput())
	var notFound *utils.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestComputeNecessity_KitchenWithoutMatchingPeriodIsSkippedSilently(t *testing.T) {
	src := newFakeSource()
	// Kitchen serves dinner only; the menu covers lunch.
	src.periods[5] = []PeriodRef{{ID: 9, Name: "Jantar"}}

	result, err := ComputeNecessity(context.Background(), src, testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalItems != 0 || result.KitchenCount != 0 {
		t.Fatalf("expected an empty result, got %d items", result.TotalItems)
	}
}

func TestComputeNecessity_KitchenWithoutMatchingProductIsSkippedSilently(t *testing.T) {
	src := newFakeSource()
	// The kitchen's menu-type sells a product the menu does not carry.
	src.pairs[5] = []MenuTypeProduct{{MenuTypeId: 4, ProductId: 999, Label: "Outro"}}

	result, err := ComputeNecessity(context.Background(), src, testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalItems != 0 {
		t.Fatalf("expected an empty result, got %d items", result.TotalItems)
	}
}

func TestComputeNecessity_ItemPerDishProductPerDay(t *testing.T) {
	src := newFakeSource()
	day2 := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	src.dishes = append(src.dishes, MenuDishRow{Day: day2, DishId: 21, DishName: "Feijao", DisplayOrder: 2})
	src.dishProds[2][20] = append(src.dishProds[2][20],
		DishProductRow{ProductId: 201, ProductName: "Oleo", Unit: "l", PerCapita: decimal.RequireFromString("0.005")})
	src.dishProds[2][21] = []DishProductRow{
		{ProductId: 202, ProductName: "Feijao Carioca", Unit: "kg", PerCapita: decimal.RequireFromString("0.05")},
	}

	result, err := ComputeNecessity(context.Background(), src, testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Dish 20 has two products, dish 21 has one.
	if result.TotalItems != 3 {
		t.Fatalf("expected 3 items, got %d", result.TotalItems)
	}
	if result.KitchenCount != 1 {
		t.Fatalf("expected 1 kitchen, got %d", result.KitchenCount)
	}
	for _, item := range result.Items {
		if item.ProductId == 202 && !item.Quantity.Equal(decimal.RequireFromString("6.000")) {
			t.Errorf("120 x 0.05 should round to 6.000, got %s", item.Quantity)
		}
		if item.ProductId == 201 && !item.Quantity.Equal(decimal.RequireFromString("0.600")) {
			t.Errorf("120 x 0.005 should round to 0.600, got %s", item.Quantity)
		}
	}
}

func TestComputeNecessity_MissingRequiredFilterIsValidationError(t *testing.T) {
	src := newFakeSource()
	_, err := ComputeNecessity(context.Background(), src, GenerationInput{BranchId: 1, CostCenterId: 2, ContractId: 3})
	var invalid *utils.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
