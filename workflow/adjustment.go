package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodlink/necessity_backend/config"
	"github.com/foodlink/necessity_backend/models"
	"github.com/foodlink/necessity_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdjustmentScope narrows which items of a necessity a save or release
// touches. Zero-value fields are no filter.
type AdjustmentScope struct {
	HeaderId   int   `json:"header_id" validate:"required"`
	KitchenIds []int `json:"kitchen_ids"`
	MenuTypeId int   `json:"menu_type_id"`
	PeriodId   int   `json:"period_id"`
}

func (s AdjustmentScope) apply(q *gorm.DB) *gorm.DB {
	q = q.Where("header_id = ?", s.HeaderId)
	if len(s.KitchenIds) > 0 {
		q = q.Where("kitchen_id IN ?", s.KitchenIds)
	}
	if s.MenuTypeId != 0 {
		q = q.Where("menu_type_id = ?", s.MenuTypeId)
	}
	if s.PeriodId != 0 {
		q = q.Where("period_id = ?", s.PeriodId)
	}
	return q
}

// ItemAdjustment is one proposed quantity. A nil Value means "keep whatever
// is currently authoritative" and is a deliberate no-op, never a zero.
type ItemAdjustment struct {
	ItemId int              `json:"item_id" validate:"required"`
	Value  *decimal.Decimal `json:"value"`
	Note   string           `json:"note"`
}

type ItemAdjustmentFailure struct {
	ItemId int    `json:"item_id"`
	Reason string `json:"reason"`
}

// AdjustmentOutcome mirrors the partial-success contract of a batch save:
// every item is attempted and reported individually.
type AdjustmentOutcome struct {
	Sucessos int                     `json:"sucessos"`
	Erros    int                     `json:"erros"`
	Failures []ItemAdjustmentFailure `json:"failures,omitempty"`
	Status   models.NecessityStatus  `json:"status"`
}

// SaveAdjustments writes each proposed value into the stage column the role
// owns in the item's current status. Items are locked and saved one at a
// time; a failure on one item never rolls back the ones already written.
func SaveAdjustments(ctx context.Context, db *gorm.DB, logger *logrus.Logger, role models.Role, scope AdjustmentScope, updates []ItemAdjustment) (*AdjustmentOutcome, error) {
	if err := utils.ValidateStruct(scope); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, utils.NewValidationError("no adjustments to save")
	}

	header, err := models.GetNecessityHeader(db, ctx, scope.HeaderId)
	if err != nil {
		return nil, err
	}

	outcome := &AdjustmentOutcome{Status: header.Status}

	for _, update := range updates {
		if err := utils.ValidateStruct(update); err != nil {
			outcome.Erros++
			outcome.Failures = append(outcome.Failures, ItemAdjustmentFailure{
				ItemId: update.ItemId, Reason: err.Error(),
			})
			continue
		}
		if update.Value != nil && update.Value.IsNegative() {
			outcome.Erros++
			outcome.Failures = append(outcome.Failures, ItemAdjustmentFailure{
				ItemId: update.ItemId, Reason: "quantity cannot be negative",
			})
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			var item models.NecessityItem
			err := scope.apply(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})).
				Where("id = ?", update.ItemId).
				First(&item).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("necessity_item",
					"item %d not found in necessity %d with the given scope", update.ItemId, scope.HeaderId)
			}
			if err != nil {
				return err
			}

			stage, ok := models.StageFor(item.Status, role)
			if !ok {
				return utils.NewValidationError(
					"role %s cannot adjust an item in status %s", role, item.Status)
			}
			next, ok := models.NextStatus(item.Status, role, models.ActionSave)
			if !ok {
				return utils.NewValidationError(
					"role %s cannot save while the item is in status %s", role, item.Status)
			}

			item.ApplyStageValue(stage, update.Value)
			item.Status = next
			if update.Note != "" {
				item.Note = update.Note
			}
			return tx.WithContext(ctx).Save(&item).Error
		})
		if err != nil {
			config.LogError(logger, "adjustment.go", "SaveAdjustments", "item save", update.ItemId, err)
			outcome.Erros++
			outcome.Failures = append(outcome.Failures, ItemAdjustmentFailure{
				ItemId: update.ItemId, Reason: err.Error(),
			})
			continue
		}
		outcome.Sucessos++
	}

	// The first nutritionist save moves the set out of NEC.
	if outcome.Sucessos > 0 {
		if next, ok := models.NextStatus(header.Status, role, models.ActionSave); ok && next != header.Status {
			if err := db.WithContext(ctx).Model(&models.NecessityHeader{}).
				Where("id = ?", header.ID).
				Update("status", next).Error; err != nil {
				return nil, err
			}
			outcome.Status = next
		}
	}
	return outcome, nil
}

// ReleaseStage hands the scoped items to the next role in the workflow. The
// release is all-or-nothing inside one transaction and goes through
// NecessityItem.Release so any stage value the next chain would drop is
// carried forward; releasing never changes any authoritative quantity.
func ReleaseStage(ctx context.Context, db *gorm.DB, logger *logrus.Logger, role models.Role, scope AdjustmentScope) (models.NecessityStatus, error) {
	if err := utils.ValidateStruct(scope); err != nil {
		return "", err
	}

	var newStatus models.NecessityStatus

	err := db.Transaction(func(tx *gorm.DB) error {
		header, err := models.GetNecessityHeader(tx, ctx, scope.HeaderId)
		if err != nil {
			return err
		}

		next, ok := models.NextStatus(header.Status, role, models.ActionRelease)
		if !ok {
			return utils.NewValidationError(
				"role %s cannot release a necessity in status %s", role, header.Status)
		}

		// Items lag the header when a save bumped the header first; release
		// everything that is still at or before the header's status.
		releasable := releasableStatuses(header.Status, role)
		var items []models.NecessityItem
		if err := scope.apply(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})).
			Where("status IN ?", releasable).
			Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return utils.NewValidationError(
				"no item in status %s to release for necessity %d", header.Status, scope.HeaderId)
		}
		for i := range items {
			items[i].Release(next)
			if err := tx.WithContext(ctx).Save(&items[i]).Error; err != nil {
				return err
			}
		}

		if err := tx.WithContext(ctx).Model(&models.NecessityHeader{}).
			Where("id = ?", header.ID).
			Update("status", next).Error; err != nil {
			return err
		}
		newStatus = next
		return nil
	})
	if err != nil {
		config.LogError(logger, "adjustment.go", "ReleaseStage", "Transaction", scope.HeaderId, err)
		return "", err
	}
	return newStatus, nil
}

func releasableStatuses(current models.NecessityStatus, role models.Role) []models.NecessityStatus {
	if role == models.RoleNutritionist &&
		(current == models.StatusGenerated || current == models.StatusNecNutri) {
		return []models.NecessityStatus{models.StatusGenerated, models.StatusNecNutri}
	}
	return []models.NecessityStatus{current}
}

// ExtraProductInput describes a product inserted into an already generated
// necessity outside the menu calculation.
type ExtraProductInput struct {
	HeaderId  int             `json:"header_id" validate:"required"`
	KitchenId int             `json:"kitchen_id" validate:"required"`
	PeriodId  int             `json:"period_id" validate:"required"`
	ProductId int             `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// AddExtraProduct inserts one product into an existing necessity. The new
// item inherits its day, menu context and status from a sibling item of the
// same kitchen and period, so downstream resolution treats it like any
// generated row. Eligibility mirrors generation: the kitchen must still
// carry an active link for the sibling's menu type and the product must
// appear in at least one dish sheet of the kitchen's cost center. The
// requested quantity is written to the caller's stage column; the generated
// Quantity of an extra row is always zero.
func AddExtraProduct(ctx context.Context, db *gorm.DB, logger *logrus.Logger, role models.Role, in ExtraProductInput) (*models.NecessityItem, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if !in.Quantity.IsPositive() {
		return nil, utils.NewValidationError("quantity must be greater than zero")
	}

	var created *models.NecessityItem

	err := db.Transaction(func(tx *gorm.DB) error {
		var sibling models.NecessityItem
		err := tx.WithContext(ctx).
			Where("header_id = ? AND kitchen_id = ? AND period_id = ?",
				in.HeaderId, in.KitchenId, in.PeriodId).
			Order("consumption_day, id").
			First(&sibling).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewNotFoundError("necessity_item",
				"necessity %d has no items for kitchen %d in period %d", in.HeaderId, in.KitchenId, in.PeriodId)
		}
		if err != nil {
			return err
		}

		stage, ok := models.StageFor(sibling.Status, role)
		if !ok {
			return utils.NewValidationError(
				"role %s cannot add products while the necessity is in status %s", role, sibling.Status)
		}

		var duplicate int64
		if err := tx.WithContext(ctx).Model(&models.NecessityItem{}).
			Where("header_id = ? AND kitchen_id = ? AND period_id = ? AND product_id = ?",
				in.HeaderId, in.KitchenId, in.PeriodId, in.ProductId).
			Count(&duplicate).Error; err != nil {
			return err
		}
		if duplicate > 0 {
			return utils.NewValidationError(
				"product %d is already present for kitchen %d in period %d", in.ProductId, in.KitchenId, in.PeriodId)
		}

		var menuTypeLink models.KitchenMenuTypeLink
		err = tx.WithContext(ctx).
			Where("kitchen_id = ? AND menu_type_id = ? AND status = ?",
				in.KitchenId, sibling.MenuTypeId, models.StatusActive).
			First(&menuTypeLink).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewValidationError(
				"kitchen %d no longer carries an active link for menu type %d", in.KitchenId, sibling.MenuTypeId)
		}
		if err != nil {
			return err
		}

		var dishProduct models.DishProduct
		err = tx.WithContext(ctx).
			Where("cost_center_id = ? AND product_id = ?", sibling.CostCenterId, in.ProductId).
			First(&dishProduct).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewValidationError(
				"product %d is not registered in any dish sheet of cost center %d", in.ProductId, sibling.CostCenterId)
		}
		if err != nil {
			return err
		}

		item := models.NecessityItem{
			HeaderId:         in.HeaderId,
			MenuName:         sibling.MenuName,
			MonthRef:         sibling.MonthRef,
			Year:             sibling.Year,
			BranchId:         sibling.BranchId,
			BranchName:       sibling.BranchName,
			CostCenterId:     sibling.CostCenterId,
			CostCenterName:   sibling.CostCenterName,
			ContractId:       sibling.ContractId,
			ContractName:     sibling.ContractName,
			MenuTypeId:       sibling.MenuTypeId,
			MenuTypeLabel:    sibling.MenuTypeLabel,
			KitchenId:        in.KitchenId,
			KitchenName:      sibling.KitchenName,
			PeriodId:         in.PeriodId,
			PeriodName:       sibling.PeriodName,
			ConsumptionDay:   sibling.ConsumptionDay,
			ProductId:        in.ProductId,
			ProductName:      dishProduct.ProductName,
			ProductUnit:      dishProduct.Unit,
			PerCapita:        decimal.Zero,
			AverageHeadcount: decimal.Zero,
			Quantity:         decimal.Zero,
			DisplayOrder:     sibling.DisplayOrder + 1,
			Status:           sibling.Status,
			Note:             fmt.Sprintf("extra product added by %s", role),
		}
		// The requested quantity lives only in the stage column; Quantity
		// stays zero so it remains the headcount-times-per-capita product.
		value := utils.RoundQuantity(in.Quantity)
		item.ApplyStageValue(stage, &value)
		item.AjusteAnterior = nil

		if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
			return err
		}
		if err := models.RecomputeHeaderSummary(tx, ctx, in.HeaderId); err != nil {
			return err
		}
		created = &item
		return nil
	})
	if err != nil {
		config.LogError(logger, "adjustment.go", "AddExtraProduct", "Transaction", in, err)
		return nil, err
	}
	return created, nil
}

// DeleteItem removes a single item permanently. There is no soft delete and
// no recycle bin; what the role gate allows through is gone.
func DeleteItem(ctx context.Context, db *gorm.DB, logger *logrus.Logger, role models.Role, itemId int) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var item models.NecessityItem
		err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&item, itemId).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewNotFoundError("necessity_item", "item %d not found", itemId)
		}
		if err != nil {
			return err
		}

		if !models.CanDeleteItem(item.Status, role) {
			return utils.NewValidationError(
				"role %s cannot delete an item in status %s", role, item.Status)
		}

		// Header counters are refreshed by RecomputeHeaderSummary on demand,
		// not on every delete.
		return tx.WithContext(ctx).Delete(&models.NecessityItem{}, itemId).Error
	})
	if err != nil {
		config.LogError(logger, "adjustment.go", "DeleteItem", "Transaction", itemId, err)
		return err
	}
	return nil
}
