package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodlink/necessity_backend/config"
	"github.com/foodlink/necessity_backend/models"
	"github.com/foodlink/necessity_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Items are inserted in fixed-size chunks only to bound statement size; the
// surrounding transaction still covers every chunk.
const itemInsertBatchSize = 1000

type GenerationInput struct {
	BranchId     int `json:"branch_id" validate:"required"`
	CostCenterId int `json:"cost_center_id" validate:"required"`
	ContractId   int `json:"contract_id" validate:"required"`
	MenuId       int `json:"menu_id" validate:"required"`
}

func (in GenerationInput) tupleKey(monthRef, year int) string {
	return fmt.Sprintf("%d:%d:%d:%d:%d:%d",
		in.BranchId, in.CostCenterId, in.ContractId, in.MenuId, monthRef, year)
}

type GenerationResult struct {
	Items        []models.NecessityItem `json:"items"`
	TotalItems   int                    `json:"total_items"`
	KitchenCount int                    `json:"kitchen_count"`
}

// ComputeNecessity runs the pipeline stages over the source: eligibility,
// period/commercial-product matching, average lookup, quantity calculation.
// Missing averages are collected across the whole scan and reported as one
// MissingAveragesError; an empty eligibility join is a hard NotFound stop.
func ComputeNecessity(ctx context.Context, src GenerationSource, in GenerationInput) (*GenerationResult, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	menu, err := src.MenuByID(ctx, in.MenuId)
	if err != nil {
		return nil, err
	}

	kitchens, err := src.EligibleKitchens(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(kitchens) == 0 {
		return nil, utils.NewNotFoundError("kitchen",
			"no industrial kitchen is linked to contract %d for branch %d / cost center %d and menu %d",
			in.ContractId, in.BranchId, in.CostCenterId, in.MenuId)
	}

	menuPeriodIds, err := src.MenuPeriodIDs(ctx, in.MenuId)
	if err != nil {
		return nil, err
	}

	menuProductIds, err := src.MenuCommercialProductIDs(ctx, in.MenuId)
	if err != nil {
		return nil, err
	}
	if len(menuProductIds) == 0 {
		return nil, utils.NewValidationError("menu %d has no commercial products linked", in.MenuId)
	}

	dishes, err := src.MenuDishes(ctx, in.MenuId)
	if err != nil {
		return nil, err
	}

	var items []models.NecessityItem
	var faults []models.MissingAverageFault
	kitchenSeen := map[int]struct{}{}

	for _, kitchen := range kitchens {
		periods, err := src.KitchenServicePeriods(ctx, kitchen.KitchenId)
		if err != nil {
			return nil, err
		}
		periods = intersectPeriods(periods, menuPeriodIds)
		if len(periods) == 0 {
			continue
		}

		pairs, err := src.KitchenMenuTypeProducts(ctx, kitchen.KitchenId)
		if err != nil {
			return nil, err
		}
		pairs = intersectPairs(pairs, menuProductIds)
		if len(pairs) == 0 {
			continue
		}

		// Ingredient lists are cost-center-specific; one load per kitchen
		// cost-center serves every dish below.
		productsByDish, err := src.DishProductsByCostCenter(ctx, kitchen.CostCenterId)
		if err != nil {
			return nil, err
		}

		for _, period := range periods {
			for _, pair := range pairs {
				average, found, err := src.HeadcountAverage(ctx,
					kitchen.KitchenId, period.ID, pair.MenuTypeId, pair.ProductId)
				if err != nil {
					return nil, err
				}
				if !found || !average.IsPositive() {
					faults = append(faults, models.MissingAverageFault{
						KitchenId:     kitchen.KitchenId,
						KitchenName:   kitchen.KitchenName,
						PeriodId:      period.ID,
						PeriodName:    period.Name,
						MenuTypeId:    pair.MenuTypeId,
						ProductId:     pair.ProductId,
						MenuTypeLabel: pair.Label,
					})
					continue
				}

				for _, dish := range dishes {
					for _, product := range productsByDish[dish.DishId] {
						quantity := utils.RoundQuantity(average.Mul(product.PerCapita))

						items = append(items, models.NecessityItem{
							MenuName:         menu.Name,
							MonthRef:         menu.MonthRef,
							Year:             menu.YearRef,
							BranchId:         kitchen.BranchId,
							BranchName:       kitchen.BranchName,
							CostCenterId:     kitchen.CostCenterId,
							CostCenterName:   kitchen.CostCenterName,
							ContractId:       kitchen.ContractId,
							ContractName:     kitchen.ContractName,
							MenuTypeId:       pair.MenuTypeId,
							MenuTypeLabel:    pair.Label,
							KitchenId:        kitchen.KitchenId,
							KitchenName:      kitchen.KitchenName,
							PeriodId:         period.ID,
							PeriodName:       period.Name,
							ConsumptionDay:   dish.Day,
							DishId:           dish.DishId,
							DishName:         dish.DishName,
							ProductId:        product.ProductId,
							ProductName:      product.ProductName,
							ProductUnit:      product.Unit,
							PerCapita:        product.PerCapita,
							AverageHeadcount: average,
							Quantity:         quantity,
							DisplayOrder:     dish.DisplayOrder,
							Status:           models.StatusGenerated,
						})
						kitchenSeen[kitchen.KitchenId] = struct{}{}
					}
				}
			}
		}
	}

	if len(faults) > 0 {
		return nil, &models.MissingAveragesError{Faults: faults}
	}

	return &GenerationResult{
		Items:        items,
		TotalItems:   len(items),
		KitchenCount: len(kitchenSeen),
	}, nil
}

func intersectPeriods(periods []PeriodRef, wanted map[int]struct{}) []PeriodRef {
	out := periods[:0]
	for _, p := range periods {
		if _, ok := wanted[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

func intersectPairs(pairs []MenuTypeProduct, wanted map[int]struct{}) []MenuTypeProduct {
	out := pairs[:0]
	for _, p := range pairs {
		if _, ok := wanted[p.ProductId]; ok {
			out = append(out, p)
		}
	}
	return out
}

// PreviewNecessity computes without persisting anything.
func PreviewNecessity(ctx context.Context, db *gorm.DB, in GenerationInput) (*GenerationResult, error) {
	return ComputeNecessity(ctx, NewGenerationSource(db), in)
}

// GenerateNecessity runs the pipeline and persists header + items in one
// transaction. The duplicate-existence check and the insert (or the
// delete-then-recreate on overwrite) share that transaction; the advisory
// lock and the unique tuple index keep concurrent generations honest.
func GenerateNecessity(ctx context.Context, db *gorm.DB, logger *logrus.Logger, in GenerationInput, userId int, userName string, overwrite bool) (*models.NecessityHeader, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	var header *models.NecessityHeader

	run := func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			src := NewGenerationSource(tx)

			menu, err := src.MenuByID(ctx, in.MenuId)
			if err != nil {
				return err
			}

			tupleKey := in.tupleKey(menu.MonthRef, menu.YearRef)
			if err := AcquireGenerationLock(tx, tupleKey); err != nil {
				config.LogError(logger, "generation.go", "GenerateNecessity", "AcquireGenerationLock", tupleKey, err)
				return err
			}
			defer ReleaseGenerationLock(tx, tupleKey)

			var existing models.NecessityHeader
			err = tx.WithContext(ctx).
				Where("branch_id = ? AND cost_center_id = ? AND contract_id = ? AND menu_id = ? AND month_ref = ? AND year = ?",
					in.BranchId, in.CostCenterId, in.ContractId, in.MenuId, menu.MonthRef, menu.YearRef).
				First(&existing).Error
			switch {
			case err == nil && !overwrite:
				return utils.NewConflictError(existing.ID, existing.Code)
			case err == nil && overwrite:
				if err := deleteHeaderCascade(tx, ctx, existing.ID); err != nil {
					return err
				}
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}

			result, err := ComputeNecessity(ctx, src, in)
			if err != nil {
				return err
			}
			if result.TotalItems == 0 {
				return utils.NewNotFoundError("necessity_items",
					"no item could be generated for these parameters")
			}

			code, err := models.NextNecessityCode(tx, ctx, menu.YearRef)
			if err != nil {
				return err
			}

			first := result.Items[0]
			header = &models.NecessityHeader{
				Code:           code,
				BranchId:       in.BranchId,
				BranchName:     first.BranchName,
				CostCenterId:   in.CostCenterId,
				CostCenterName: first.CostCenterName,
				ContractId:     in.ContractId,
				ContractName:   first.ContractName,
				MenuId:         in.MenuId,
				MenuName:       menu.Name,
				MonthRef:       menu.MonthRef,
				Year:           menu.YearRef,
				TotalKitchens:  result.KitchenCount,
				TotalItems:     result.TotalItems,
				GeneratedById:  userId,
				GeneratedBy:    userName,
				Status:         models.StatusGenerated,
			}
			if err := tx.WithContext(ctx).Create(header).Error; err != nil {
				return err
			}

			for i := range result.Items {
				result.Items[i].HeaderId = header.ID
			}
			if err := tx.WithContext(ctx).CreateInBatches(&result.Items, itemInsertBatchSize).Error; err != nil {
				return err
			}

			return nil
		})
	}

	err := utils.TupleLock(ctx, fmt.Sprintf("%d:%d:%d:%d", in.BranchId, in.CostCenterId, in.ContractId, in.MenuId),
		"generation.go", "GenerateNecessity", run)
	if err != nil {
		return nil, err
	}
	return header, nil
}

// RecalculateNecessity re-runs the computation with the header's stored
// filters. Items are replaced wholesale; the header row is updated in place
// so its id and code survive. With persist=false it only reports what a
// recalculation would produce.
func RecalculateNecessity(ctx context.Context, db *gorm.DB, logger *logrus.Logger, headerId int, userId int, userName string, persist bool) (*models.NecessityHeader, *GenerationResult, error) {
	var header *models.NecessityHeader
	var result *GenerationResult

	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		header, err = models.GetNecessityHeader(tx, ctx, headerId)
		if err != nil {
			return err
		}

		in := GenerationInput{
			BranchId:     header.BranchId,
			CostCenterId: header.CostCenterId,
			ContractId:   header.ContractId,
			MenuId:       header.MenuId,
		}
		if err := utils.ValidateStruct(in); err != nil {
			return utils.NewValidationError(
				"necessity %d is missing the parameters required to recalculate", headerId)
		}

		result, err = ComputeNecessity(ctx, NewGenerationSource(tx), in)
		if err != nil {
			return err
		}
		if !persist {
			return nil
		}

		if err := tx.WithContext(ctx).
			Where("header_id = ?", headerId).
			Delete(&models.NecessityItem{}).Error; err != nil {
			return err
		}

		for i := range result.Items {
			result.Items[i].HeaderId = headerId
		}
		if err := tx.WithContext(ctx).CreateInBatches(&result.Items, itemInsertBatchSize).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"total_kitchens":  result.KitchenCount,
			"total_items":     result.TotalItems,
			"generated_by_id": userId,
			"generated_by":    userName,
			"status":          models.StatusGenerated,
		}
		if err := tx.WithContext(ctx).Model(&models.NecessityHeader{}).
			Where("id = ?", headerId).Updates(updates).Error; err != nil {
			return err
		}

		header, err = models.GetNecessityHeader(tx, ctx, headerId)
		return err
	})
	if err != nil {
		if logger != nil {
			config.LogError(logger, "generation.go", "RecalculateNecessity", "Transaction", headerId, err)
		}
		return nil, nil, err
	}
	return header, result, nil
}

func deleteHeaderCascade(tx *gorm.DB, ctx context.Context, headerId int) error {
	if err := tx.WithContext(ctx).
		Where("header_id = ?", headerId).
		Delete(&models.NecessityItem{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(&models.NecessityHeader{}, headerId).Error
}
