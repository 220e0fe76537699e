package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reference entities are maintained by the surrounding CRUD application;
// this service only reads them while resolving eligibility and computing
// quantities. Link rows and parents carry a status and joins filter on
// "ativo" throughout.

const StatusActive = "ativo"

type Branch struct {
	ID     int    `gorm:"primary_key" json:"id"`
	Name   string `gorm:"size:255;not null" json:"name"`
	Status string `gorm:"size:20;not null;default:'ativo'" json:"status"`
}

type CostCenter struct {
	ID     int    `gorm:"primary_key" json:"id"`
	Name   string `gorm:"size:255;not null" json:"name"`
	Status string `gorm:"size:20;not null;default:'ativo'" json:"status"`
}

type Contract struct {
	ID           int    `gorm:"primary_key" json:"id"`
	Name         string `gorm:"size:255;not null" json:"name"`
	BranchId     int    `gorm:"index;not null" json:"branch_id"`
	CostCenterId int    `gorm:"index;not null" json:"cost_center_id"`
	Status       string `gorm:"size:20;not null;default:'ativo'" json:"status"`
}

type Kitchen struct {
	ID     int    `gorm:"primary_key" json:"id"`
	Name   string `gorm:"size:255;not null" json:"name"`
	Status string `gorm:"size:20;not null;default:'ativo'" json:"status"`
}

type KitchenContractLink struct {
	ID         int    `gorm:"primary_key" json:"id"`
	KitchenId  int    `gorm:"index;not null" json:"kitchen_id"`
	ContractId int    `gorm:"index;not null" json:"contract_id"`
	Status     string `gorm:"size:20;not null;default:'ativo'" json:"status"`
}

type ServicePeriod struct {
	ID     int    `gorm:"primary_key" json:"id"`
	Name   string `gorm:"size:255;not null" json:"name"`
	Status string `gorm:"size:20;not null;default:'ativo'" json:"status"`
}

type KitchenPeriodLink struct {
	ID        int    `gorm:"primary_key" json:"id"`
	KitchenId int    `gorm:"index;not null" json:"kitchen_id"`
	PeriodId  int    `gorm:"index;not null" json:"period_id"`
	Status    string `gorm:"size:20;not null;default:'ativo'" json:"status"`
}

// MenuType is a billable meal category ("commercial product" family); the
// product links below expose the sellable labels a menu-type carries.
type MenuType struct {
	ID     int    `gorm:"primary_key" json:"id"`
	Name   string `gorm:"size:255;not null" json:"name"`
	Status string `gorm:"size:20;not null;default:'ativo'" json:"status"`
}

type KitchenMenuTypeLink struct {
	ID         int    `gorm:"primary_key" json:"id"`
	KitchenId  int    `gorm:"index;not null" json:"kitchen_id"`
	MenuTypeId int    `gorm:"index;not null" json:"menu_type_id"`
	Status     string `gorm:"size:20;not null;default:'ativo'" json:"status"`
}

type MenuTypeProductLink struct {
	ID          int    `gorm:"primary_key" json:"id"`
	MenuTypeId  int    `gorm:"index;not null" json:"menu_type_id"`
	ProductId   int    `gorm:"index;not null" json:"product_id"`
	ProductName string `gorm:"size:255;not null" json:"product_name"`
}

type Menu struct {
	ID       int    `gorm:"primary_key" json:"id"`
	Name     string `gorm:"size:255;not null" json:"name"`
	MonthRef int    `gorm:"not null" json:"month_ref"`
	YearRef  int    `gorm:"not null" json:"year_ref"`
	Status   string `gorm:"size:20;not null;default:'ativo'" json:"status"`
}

type MenuContractLink struct {
	ID         int `gorm:"primary_key" json:"id"`
	MenuId     int `gorm:"index;not null" json:"menu_id"`
	ContractId int `gorm:"index;not null" json:"contract_id"`
}

type MenuBranchLink struct {
	ID       int `gorm:"primary_key" json:"id"`
	MenuId   int `gorm:"index;not null" json:"menu_id"`
	BranchId int `gorm:"index;not null" json:"branch_id"`
}

type MenuCostCenterLink struct {
	ID           int `gorm:"primary_key" json:"id"`
	MenuId       int `gorm:"index;not null" json:"menu_id"`
	CostCenterId int `gorm:"index;not null" json:"cost_center_id"`
}

type MenuPeriodLink struct {
	ID       int `gorm:"primary_key" json:"id"`
	MenuId   int `gorm:"index;not null" json:"menu_id"`
	PeriodId int `gorm:"index;not null" json:"period_id"`
}

type MenuProductLink struct {
	ID          int    `gorm:"primary_key" json:"id"`
	MenuId      int    `gorm:"index;not null" json:"menu_id"`
	ProductId   int    `gorm:"index;not null" json:"product_id"`
	ProductName string `gorm:"size:255" json:"product_name"`
}

type Dish struct {
	ID   int    `gorm:"primary_key" json:"id"`
	Name string `gorm:"size:255;not null" json:"name"`
}

// MenuDish schedules a dish on a day of the menu cycle.
type MenuDish struct {
	ID           int       `gorm:"primary_key" json:"id"`
	MenuId       int       `gorm:"index;not null" json:"menu_id"`
	Day          time.Time `gorm:"type:date;not null" json:"day"`
	DishId       int       `gorm:"index;not null" json:"dish_id"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
}

// DishProduct is the cost-center-specific ingredient list of a dish: the raw
// product, its unit and the per-capita factor used by the calculator.
type DishProduct struct {
	ID           int             `gorm:"primary_key" json:"id"`
	DishId       int             `gorm:"index;not null" json:"dish_id"`
	CostCenterId int             `gorm:"index;not null" json:"cost_center_id"`
	ProductId    int             `gorm:"index;not null" json:"product_id"`
	ProductName  string          `gorm:"size:255;not null" json:"product_name"`
	Unit         string          `gorm:"size:20" json:"unit"`
	PerCapita    decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"per_capita"`
}

// HeadcountAverage is the registered average number of people served, keyed
// by kitchen, period, menu-type and commercial product.
type HeadcountAverage struct {
	ID         int             `gorm:"primary_key" json:"id"`
	KitchenId  int             `gorm:"index:idx_headcount_key;not null" json:"kitchen_id"`
	PeriodId   int             `gorm:"index:idx_headcount_key;not null" json:"period_id"`
	MenuTypeId int             `gorm:"index:idx_headcount_key;not null" json:"menu_type_id"`
	ProductId  int             `gorm:"index:idx_headcount_key;not null" json:"product_id"`
	Average    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"average"`
}
