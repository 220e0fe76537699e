package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/foodlink/necessity_backend/config"
	"github.com/foodlink/necessity_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seeds a small reference dataset: one branch, cost center and contract, one
// kitchen serving lunch with a commercial lunch product, a one-day menu with
// a rice dish, and the headcount average that makes the generation produce a
// quantity. Intended for local development and manual API testing.
func main() {
	year := flag.Int("year", time.Now().Year(), "Reference year of the seeded menu")
	month := flag.Int("month", int(time.Now().Month()), "Reference month of the seeded menu")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	models.MigrateTable()

	err := db.Transaction(func(tx *gorm.DB) error {
		branch := models.Branch{ID: 1, Name: "Filial Centro", Status: models.StatusActive}
		costCenter := models.CostCenter{ID: 2, Name: "CC Industrial", Status: models.StatusActive}
		contract := models.Contract{ID: 3, Name: "Contrato Alfa", BranchId: 1, CostCenterId: 2, Status: models.StatusActive}
		kitchen := models.Kitchen{ID: 5, Name: "Cozinha Norte", Status: models.StatusActive}
		period := models.ServicePeriod{ID: 7, Name: "Almoco", Status: models.StatusActive}
		menuType := models.MenuType{ID: 4, Name: "Cardapio Padrao", Status: models.StatusActive}
		menu := models.Menu{ID: 10, Name: "Cardapio Mensal", MonthRef: *month, YearRef: *year, Status: models.StatusActive}
		dish := models.Dish{ID: 20, Name: "Arroz"}

		for _, record := range []interface{}{
			&branch, &costCenter, &contract, &kitchen, &period, &menuType, &menu, &dish,
		} {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error; err != nil {
				return err
			}
		}

		day := time.Date(*year, time.Month(*month), 1, 0, 0, 0, 0, time.UTC)
		links := []interface{}{
			&models.KitchenContractLink{KitchenId: 5, ContractId: 3, Status: models.StatusActive},
			&models.KitchenPeriodLink{KitchenId: 5, PeriodId: 7, Status: models.StatusActive},
			&models.KitchenMenuTypeLink{KitchenId: 5, MenuTypeId: 4, Status: models.StatusActive},
			&models.MenuTypeProductLink{MenuTypeId: 4, ProductId: 100, ProductName: "Refeicao Almoco"},
			&models.MenuContractLink{MenuId: 10, ContractId: 3},
			&models.MenuBranchLink{MenuId: 10, BranchId: 1},
			&models.MenuCostCenterLink{MenuId: 10, CostCenterId: 2},
			&models.MenuPeriodLink{MenuId: 10, PeriodId: 7},
			&models.MenuProductLink{MenuId: 10, ProductId: 100},
			&models.MenuDish{MenuId: 10, Day: day, DishId: 20, DisplayOrder: 1},
			&models.DishProduct{
				DishId:       20,
				CostCenterId: 2,
				ProductId:    200,
				ProductName:  "Arroz Branco",
				Unit:         "kg",
				PerCapita:    decimal.RequireFromString("0.08"),
			},
			&models.HeadcountAverage{
				KitchenId:  5,
				PeriodId:   7,
				MenuTypeId: 4,
				ProductId:  100,
				Average:    decimal.NewFromInt(120),
			},
		}
		for _, record := range links {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeded demo data for menu 10 (%02d/%d); generate with branch_id=1 cost_center_id=2 contract_id=3 menu_id=10\n", *month, *year)
}
