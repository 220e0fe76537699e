package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/foodlink/necessity_backend/models"
	"github.com/foodlink/necessity_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EligibleKitchen is a kitchen authorized to serve the requested contract,
// annotated with its own branch/cost-center/contract names. The kitchen's
// cost-center can differ from the filter because linkage is via contract.
type EligibleKitchen struct {
	KitchenId      int
	KitchenName    string
	BranchId       int
	BranchName     string
	CostCenterId   int
	CostCenterName string
	ContractId     int
	ContractName   string
}

type PeriodRef struct {
	ID   int
	Name string
}

// MenuTypeProduct is one (menu-type, commercial product) pair a kitchen is
// linked to, with the product's billing label.
type MenuTypeProduct struct {
	MenuTypeId int
	ProductId  int
	Label      string
}

type MenuDishRow struct {
	Day          time.Time
	DishId       int
	DishName     string
	DisplayOrder int
}

type DishProductRow struct {
	ProductId   int
	ProductName string
	Unit        string
	PerCapita   decimal.Decimal
}

// GenerationSource is every read the generation pipeline performs. The
// stages stay pure over these rows, and tests swap in an in-memory fake.
type GenerationSource interface {
	MenuByID(ctx context.Context, menuId int) (*models.Menu, error)
	EligibleKitchens(ctx context.Context, in GenerationInput) ([]EligibleKitchen, error)
	MenuPeriodIDs(ctx context.Context, menuId int) (map[int]struct{}, error)
	KitchenServicePeriods(ctx context.Context, kitchenId int) ([]PeriodRef, error)
	MenuCommercialProductIDs(ctx context.Context, menuId int) (map[int]struct{}, error)
	KitchenMenuTypeProducts(ctx context.Context, kitchenId int) ([]MenuTypeProduct, error)
	MenuDishes(ctx context.Context, menuId int) ([]MenuDishRow, error)
	DishProductsByCostCenter(ctx context.Context, costCenterId int) (map[int][]DishProductRow, error)
	HeadcountAverage(ctx context.Context, kitchenId, periodId, menuTypeId, productId int) (decimal.Decimal, bool, error)
}

type gormGenerationSource struct {
	tx *gorm.DB

	dishProductCache map[int]map[int][]DishProductRow
}

// NewGenerationSource wraps the caller's transaction so every read of one
// generation run sees the same snapshot.
func NewGenerationSource(tx *gorm.DB) GenerationSource {
	return &gormGenerationSource{
		tx:               tx,
		dishProductCache: map[int]map[int][]DishProductRow{},
	}
}

func (s *gormGenerationSource) MenuByID(ctx context.Context, menuId int) (*models.Menu, error) {
	var menu models.Menu
	err := s.tx.WithContext(ctx).First(&menu, menuId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("menu", "menu %d not found", menuId)
	}
	if err != nil {
		return nil, err
	}
	return &menu, nil
}

func (s *gormGenerationSource) EligibleKitchens(ctx context.Context, in GenerationInput) ([]EligibleKitchen, error) {
	var kitchens []EligibleKitchen
	err := s.tx.WithContext(ctx).Raw(`
SELECT DISTINCT
    k.id            AS kitchen_id,
    k.name          AS kitchen_name,
    c.branch_id     AS branch_id,
    b.name          AS branch_name,
    c.cost_center_id AS cost_center_id,
    cc.name         AS cost_center_name,
    c.id            AS contract_id,
    c.name          AS contract_name
FROM kitchen_contract_links kcl
INNER JOIN kitchens k       ON k.id = kcl.kitchen_id AND k.status = ?
INNER JOIN contracts c      ON c.id = kcl.contract_id
INNER JOIN branches b       ON b.id = c.branch_id
INNER JOIN cost_centers cc  ON cc.id = c.cost_center_id
INNER JOIN menu_contract_links mcl     ON mcl.contract_id = c.id
INNER JOIN menu_branch_links mbl       ON mbl.menu_id = mcl.menu_id AND mbl.branch_id = c.branch_id
INNER JOIN menu_cost_center_links mccl ON mccl.menu_id = mcl.menu_id AND mccl.cost_center_id = c.cost_center_id
WHERE kcl.contract_id = ?
  AND c.branch_id = ?
  AND c.cost_center_id = ?
  AND mcl.menu_id = ?
  AND kcl.status = ?
  AND c.status = ?
ORDER BY kitchen_name`,
		models.StatusActive, in.ContractId, in.BranchId, in.CostCenterId, in.MenuId,
		models.StatusActive, models.StatusActive).
		Scan(&kitchens).Error
	if err != nil {
		return nil, err
	}
	return kitchens, nil
}

func (s *gormGenerationSource) MenuPeriodIDs(ctx context.Context, menuId int) (map[int]struct{}, error) {
	var ids []int
	err := s.tx.WithContext(ctx).Model(&models.MenuPeriodLink{}).
		Where("menu_id = ?", menuId).
		Pluck("period_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

func (s *gormGenerationSource) KitchenServicePeriods(ctx context.Context, kitchenId int) ([]PeriodRef, error) {
	var periods []PeriodRef
	err := s.tx.WithContext(ctx).Raw(`
SELECT sp.id AS id, sp.name AS name
FROM kitchen_period_links kpl
INNER JOIN service_periods sp ON sp.id = kpl.period_id AND sp.status = ?
WHERE kpl.kitchen_id = ? AND kpl.status = ?
ORDER BY sp.id`,
		models.StatusActive, kitchenId, models.StatusActive).
		Scan(&periods).Error
	if err != nil {
		return nil, err
	}
	return periods, nil
}

func (s *gormGenerationSource) MenuCommercialProductIDs(ctx context.Context, menuId int) (map[int]struct{}, error) {
	var ids []int
	err := s.tx.WithContext(ctx).Model(&models.MenuProductLink{}).
		Where("menu_id = ?", menuId).
		Pluck("product_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

func (s *gormGenerationSource) KitchenMenuTypeProducts(ctx context.Context, kitchenId int) ([]MenuTypeProduct, error) {
	var pairs []MenuTypeProduct
	err := s.tx.WithContext(ctx).Raw(`
SELECT DISTINCT
    mtpl.menu_type_id AS menu_type_id,
    mtpl.product_id   AS product_id,
    mtpl.product_name AS label
FROM kitchen_menu_type_links kmtl
INNER JOIN menu_type_product_links mtpl ON mtpl.menu_type_id = kmtl.menu_type_id
WHERE kmtl.kitchen_id = ? AND kmtl.status = ?
ORDER BY menu_type_id, product_id`,
		kitchenId, models.StatusActive).
		Scan(&pairs).Error
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func (s *gormGenerationSource) MenuDishes(ctx context.Context, menuId int) ([]MenuDishRow, error) {
	var rows []MenuDishRow
	err := s.tx.WithContext(ctx).Raw(`
SELECT md.day AS day, md.dish_id AS dish_id, d.name AS dish_name, md.display_order AS display_order
FROM menu_dishes md
INNER JOIN dishes d ON d.id = md.dish_id
WHERE md.menu_id = ?
ORDER BY md.day, md.display_order`,
		menuId).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *gormGenerationSource) DishProductsByCostCenter(ctx context.Context, costCenterId int) (map[int][]DishProductRow, error) {
	if cached, ok := s.dishProductCache[costCenterId]; ok {
		return cached, nil
	}

	var rows []models.DishProduct
	err := s.tx.WithContext(ctx).
		Where("cost_center_id = ?", costCenterId).
		Order("dish_id, product_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byDish := map[int][]DishProductRow{}
	for _, r := range rows {
		byDish[r.DishId] = append(byDish[r.DishId], DishProductRow{
			ProductId:   r.ProductId,
			ProductName: r.ProductName,
			Unit:        r.Unit,
			PerCapita:   r.PerCapita,
		})
	}
	s.dishProductCache[costCenterId] = byDish
	return byDish, nil
}

func (s *gormGenerationSource) HeadcountAverage(ctx context.Context, kitchenId, periodId, menuTypeId, productId int) (decimal.Decimal, bool, error) {
	var avg models.HeadcountAverage
	err := s.tx.WithContext(ctx).
		Where("kitchen_id = ? AND period_id = ? AND menu_type_id = ? AND product_id = ?",
			kitchenId, periodId, menuTypeId, productId).
		First(&avg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return avg.Average, true, nil
}

func toSet(ids []int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
