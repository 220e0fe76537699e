package models

import (
	"log"

	"github.com/foodlink/necessity_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Branch{}, &CostCenter{}, &Contract{},
		&Kitchen{}, &KitchenContractLink{}, &KitchenPeriodLink{}, &KitchenMenuTypeLink{},
		&ServicePeriod{},
		&MenuType{}, &MenuTypeProductLink{},
		&Menu{}, &MenuContractLink{}, &MenuBranchLink{}, &MenuCostCenterLink{}, &MenuPeriodLink{}, &MenuProductLink{},
		&Dish{}, &MenuDish{}, &DishProduct{},
		&HeadcountAverage{},
		&NecessityHeader{}, &NecessityItem{}, &NecessityCodeSeries{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
