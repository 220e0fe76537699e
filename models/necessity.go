package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foodlink/necessity_backend/config"
	"github.com/foodlink/necessity_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NecessityHeader is one generation run for a (branch, cost-center, contract,
// menu, month, year) tuple. Names are denormalized so reporting never joins
// back into the reference tables. The unique index is the backstop against
// two concurrent generations for the same tuple.
type NecessityHeader struct {
	ID             int             `gorm:"primary_key" json:"id"`
	Code           string          `gorm:"size:20;not null;uniqueIndex" json:"code"`
	BranchId       int             `gorm:"not null;uniqueIndex:idx_necessity_tuple" json:"branch_id"`
	BranchName     string          `gorm:"size:255" json:"branch_name"`
	CostCenterId   int             `gorm:"not null;uniqueIndex:idx_necessity_tuple" json:"cost_center_id"`
	CostCenterName string          `gorm:"size:255" json:"cost_center_name"`
	ContractId     int             `gorm:"not null;uniqueIndex:idx_necessity_tuple" json:"contract_id"`
	ContractName   string          `gorm:"size:255" json:"contract_name"`
	MenuId         int             `gorm:"not null;uniqueIndex:idx_necessity_tuple" json:"menu_id"`
	MenuName       string          `gorm:"size:255" json:"menu_name"`
	MonthRef       int             `gorm:"not null;uniqueIndex:idx_necessity_tuple" json:"month_ref"`
	Year           int             `gorm:"not null;uniqueIndex:idx_necessity_tuple" json:"year"`
	TotalKitchens  int             `gorm:"not null;default:0" json:"total_kitchens"`
	TotalItems     int             `gorm:"not null;default:0" json:"total_items"`
	GeneratedById  int             `json:"generated_by_id"`
	GeneratedBy    string          `gorm:"size:255" json:"generated_by"`
	Status         NecessityStatus `gorm:"type:varchar(20);not null;default:'NEC'" json:"status"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Items          []NecessityItem `gorm:"foreignKey:HeaderId;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// NecessityItem is one computed quantity: a raw product a kitchen must
// receive for a meal period on a consumption day. Quantity is always the
// rounded product of AverageHeadcount and PerCapita at generation time; the
// ajuste_* columns track the role overrides and AjusteAnterior snapshots the
// authoritative value right before the current stage's last edit.
type NecessityItem struct {
	ID               int             `gorm:"primary_key" json:"id"`
	HeaderId         int             `gorm:"index;not null" json:"header_id"`
	MenuName         string          `gorm:"size:255" json:"menu_name"`
	MonthRef         int             `json:"month_ref"`
	Year             int             `json:"year"`
	BranchId         int             `json:"branch_id"`
	BranchName       string          `gorm:"size:255" json:"branch_name"`
	CostCenterId     int             `gorm:"index" json:"cost_center_id"`
	CostCenterName   string          `gorm:"size:255" json:"cost_center_name"`
	ContractId       int             `json:"contract_id"`
	ContractName     string          `gorm:"size:255" json:"contract_name"`
	MenuTypeId       int             `json:"menu_type_id"`
	MenuTypeLabel    string          `gorm:"size:255" json:"menu_type_label"`
	KitchenId        int             `gorm:"index" json:"kitchen_id"`
	KitchenName      string          `gorm:"size:255" json:"kitchen_name"`
	PeriodId         int             `gorm:"index" json:"period_id"`
	PeriodName       string          `gorm:"size:255" json:"period_name"`
	ConsumptionDay   time.Time       `gorm:"type:date" json:"consumption_day"`
	DishId           int             `json:"dish_id"`
	DishName         string          `gorm:"size:255" json:"dish_name"`
	ProductId        int             `gorm:"index" json:"product_id"`
	ProductName      string          `gorm:"size:255" json:"product_name"`
	ProductUnit      string          `gorm:"size:20" json:"product_unit"`
	PerCapita        decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"per_capita"`
	AverageHeadcount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"average_headcount"`
	Quantity         decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	DisplayOrder     int             `json:"display_order"`

	AjusteNutricionista *decimal.Decimal `gorm:"column:ajuste_nutricionista;type:decimal(14,3)" json:"ajuste_nutricionista"`
	AjusteCoordenacao   *decimal.Decimal `gorm:"column:ajuste_coordenacao;type:decimal(14,3)" json:"ajuste_coordenacao"`
	AjusteLogistica     *decimal.Decimal `gorm:"column:ajuste_logistica;type:decimal(14,3)" json:"ajuste_logistica"`
	AjusteConfNutri     *decimal.Decimal `gorm:"column:ajuste_conf_nutri;type:decimal(14,3)" json:"ajuste_conf_nutri"`
	AjusteConfCoord     *decimal.Decimal `gorm:"column:ajuste_conf_coord;type:decimal(14,3)" json:"ajuste_conf_coord"`
	AjusteAnterior      *decimal.Decimal `gorm:"column:ajuste_anterior;type:decimal(14,3)" json:"ajuste_anterior"`

	Status    NecessityStatus `gorm:"type:varchar(20);not null;default:'NEC';index" json:"status"`
	Note      string          `gorm:"size:255" json:"note"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// AuthoritativeQuantity resolves the quantity currently in force for the
// item. The fallback chain depends on the workflow position; this is the
// only place the precedence exists.
func (item *NecessityItem) AuthoritativeQuantity() decimal.Decimal {
	switch item.Status {
	case StatusConfCoord, StatusConfirmed:
		return firstSet(item.Quantity,
			item.AjusteConfCoord, item.AjusteConfNutri, item.AjusteNutricionista, item.AjusteCoordenacao)
	case StatusNecLog:
		return firstSet(item.Quantity,
			item.AjusteLogistica, item.AjusteCoordenacao, item.AjusteNutricionista)
	case StatusConfNutri:
		return firstSet(item.Quantity,
			item.AjusteConfNutri, item.AjusteNutricionista)
	case StatusNecCoord:
		return firstSet(item.Quantity,
			item.AjusteCoordenacao, item.AjusteNutricionista)
	default:
		return firstSet(item.Quantity, item.AjusteNutricionista)
	}
}

func firstSet(fallback decimal.Decimal, candidates ...*decimal.Decimal) decimal.Decimal {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return fallback
}

func firstPtr(candidates ...*decimal.Decimal) *decimal.Decimal {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

// Release moves the item to the next workflow status. Leaving NEC LOG drops
// the logistics and coordination columns out of the resolution chain, so the
// value in force is carried into ajuste_conf_nutri first; every other hop
// resolves through a superset of the previous chain and needs no carry.
func (item *NecessityItem) Release(next NecessityStatus) {
	if item.Status == StatusNecLog && next == StatusConfNutri {
		if carried := firstPtr(item.AjusteLogistica, item.AjusteCoordenacao); carried != nil {
			v := *carried
			item.AjusteConfNutri = &v
		}
	}
	item.Status = next
}

// StageValue returns a pointer to the adjustment column backing the stage.
func (item *NecessityItem) StageValue(stage AdjustmentStage) **decimal.Decimal {
	switch stage {
	case StageNutritionist:
		return &item.AjusteNutricionista
	case StageCoordination:
		return &item.AjusteCoordenacao
	case StageLogistics:
		return &item.AjusteLogistica
	case StageConfNutri:
		return &item.AjusteConfNutri
	case StageConfCoord:
		return &item.AjusteConfCoord
	}
	return nil
}

// ApplyStageValue writes value into the stage column and snapshots the
// previously authoritative quantity into AjusteAnterior. A nil value means
// "keep the last authoritative value" and touches nothing.
func (item *NecessityItem) ApplyStageValue(stage AdjustmentStage, value *decimal.Decimal) bool {
	if value == nil {
		return false
	}
	slot := item.StageValue(stage)
	if slot == nil {
		return false
	}
	previous := item.AuthoritativeQuantity()
	item.AjusteAnterior = &previous
	*slot = value
	return true
}

// MissingAverageFault describes one (kitchen, period, menu-type) combination
// without a registered headcount average. Transient: only ever returned to
// the caller, never persisted.
type MissingAverageFault struct {
	KitchenId     int    `json:"kitchen_id"`
	KitchenName   string `json:"kitchen_name"`
	PeriodId      int    `json:"period_id"`
	PeriodName    string `json:"period_name"`
	MenuTypeId    int    `json:"menu_type_id"`
	ProductId     int    `json:"product_id"`
	MenuTypeLabel string `json:"menu_type_label"`
}

// MissingAveragesError blocks the whole generation. It always carries the
// complete fault list so the caller can fix every gap in one pass.
type MissingAveragesError struct {
	Faults []MissingAverageFault
}

func (e *MissingAveragesError) Error() string {
	lines := make([]string, 0, len(e.Faults))
	for i, f := range e.Faults {
		lines = append(lines, fmt.Sprintf("%d. %s - %s - %s", i+1, f.KitchenName, f.PeriodName, f.MenuTypeLabel))
	}
	return "headcount averages are missing, the necessity cannot be generated:\n" + strings.Join(lines, "\n")
}

func GetNecessityHeader(tx *gorm.DB, ctx context.Context, id int) (*NecessityHeader, error) {
	var header NecessityHeader
	err := tx.WithContext(ctx).First(&header, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("necessity", "necessity %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &header, nil
}

type NecessityHeaderFilter struct {
	BranchId int
	MonthRef int
	Year     int
	Status   string
}

func ListNecessityHeaders(ctx context.Context, filter NecessityHeaderFilter) ([]NecessityHeader, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&NecessityHeader{})
	if filter.BranchId != 0 {
		q = q.Where("branch_id = ?", filter.BranchId)
	}
	if filter.MonthRef != 0 {
		q = q.Where("month_ref = ?", filter.MonthRef)
	}
	if filter.Year != 0 {
		q = q.Where("year = ?", filter.Year)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var headers []NecessityHeader
	if err := q.Order("created_at DESC").Find(&headers).Error; err != nil {
		return nil, err
	}
	return headers, nil
}

func ListNecessityItems(ctx context.Context, headerId int) ([]NecessityItem, error) {
	db := config.GetDB()
	if _, err := GetNecessityHeader(db, ctx, headerId); err != nil {
		return nil, err
	}

	var items []NecessityItem
	err := db.WithContext(ctx).
		Where("header_id = ?", headerId).
		Order("kitchen_name, period_name, consumption_day, display_order, id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// RecomputeHeaderSummary refreshes the distinct-kitchen and item counts from
// the items on disk. Item deletes do not trigger it automatically.
func RecomputeHeaderSummary(tx *gorm.DB, ctx context.Context, headerId int) error {
	var totalItems int64
	if err := tx.WithContext(ctx).Model(&NecessityItem{}).
		Where("header_id = ?", headerId).Count(&totalItems).Error; err != nil {
		return err
	}

	var totalKitchens int64
	if err := tx.WithContext(ctx).Model(&NecessityItem{}).
		Where("header_id = ?", headerId).
		Distinct("kitchen_id").Count(&totalKitchens).Error; err != nil {
		return err
	}

	return tx.WithContext(ctx).Model(&NecessityHeader{}).
		Where("id = ?", headerId).
		Updates(map[string]interface{}{
			"total_items":    totalItems,
			"total_kitchens": totalKitchens,
		}).Error
}
