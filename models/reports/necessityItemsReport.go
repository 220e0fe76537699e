package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/foodlink/necessity_backend/config"
	"github.com/foodlink/necessity_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type NecessityItemRow struct {
	KitchenName      string          `json:"kitchenName"`
	PeriodName       string          `json:"periodName"`
	ConsumptionDay   string          `json:"consumptionDay"`
	DishName         string          `json:"dishName"`
	ProductName      string          `json:"productName"`
	ProductUnit      string          `json:"productUnit"`
	PerCapita        decimal.Decimal `json:"perCapita"`
	AverageHeadcount decimal.Decimal `json:"averageHeadcount"`
	Quantity         decimal.Decimal `json:"quantity"`
	ResolvedQuantity decimal.Decimal `json:"resolvedQuantity"`
	Status           string          `json:"status"`
	Note             string          `json:"note"`
}

// GetNecessityItemsReport flattens a necessity for export. The resolved
// quantity repeats the in-Go precedence chains in SQL so the spreadsheet
// matches what the adjustment screens show for the same status.
func GetNecessityItemsReport(ctx context.Context, headerId int) ([]*NecessityItemRow, error) {
	sql := `
SELECT
    ni.kitchen_name,
    ni.period_name,
    DATE_FORMAT(ni.consumption_day, '%d/%m/%Y') AS consumption_day,
    ni.dish_name,
    ni.product_name,
    ni.product_unit,
    ni.per_capita,
    ni.average_headcount,
    ni.quantity,
    CASE
        WHEN ni.status IN ('CONF COORD', 'CONF') THEN
            COALESCE(ni.ajuste_conf_coord, ni.ajuste_conf_nutri, ni.ajuste_nutricionista, ni.ajuste_coordenacao, ni.quantity)
        WHEN ni.status = 'NEC LOG' THEN
            COALESCE(ni.ajuste_logistica, ni.ajuste_coordenacao, ni.ajuste_nutricionista, ni.quantity)
        WHEN ni.status = 'CONF NUTRI' THEN
            COALESCE(ni.ajuste_conf_nutri, ni.ajuste_nutricionista, ni.quantity)
        WHEN ni.status = 'NEC COORD' THEN
            COALESCE(ni.ajuste_coordenacao, ni.ajuste_nutricionista, ni.quantity)
        ELSE
            COALESCE(ni.ajuste_nutricionista, ni.quantity)
    END AS resolved_quantity,
    ni.status,
    ni.note
FROM
    necessity_items ni
WHERE
    ni.header_id = @headerId
ORDER BY
    ni.kitchen_name, ni.period_name, ni.consumption_day, ni.display_order, ni.id
`
	var results []*NecessityItemRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"headerId": headerId,
	}).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type NecessityKitchenTotal struct {
	KitchenName   string          `json:"kitchenName"`
	PeriodName    string          `json:"periodName"`
	ProductName   string          `json:"productName"`
	ProductUnit   string          `json:"productUnit"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
}

// GetNecessityKitchenTotals sums the resolved quantity per kitchen, period
// and product across the month. This is the purchasing view.
func GetNecessityKitchenTotals(ctx context.Context, headerId int) ([]*NecessityKitchenTotal, error) {
	sql := `
SELECT
    ni.kitchen_name,
    ni.period_name,
    ni.product_name,
    ni.product_unit,
    SUM(
        CASE
            WHEN ni.status IN ('CONF COORD', 'CONF') THEN
                COALESCE(ni.ajuste_conf_coord, ni.ajuste_conf_nutri, ni.ajuste_nutricionista, ni.ajuste_coordenacao, ni.quantity)
            WHEN ni.status = 'NEC LOG' THEN
                COALESCE(ni.ajuste_logistica, ni.ajuste_coordenacao, ni.ajuste_nutricionista, ni.quantity)
            WHEN ni.status = 'CONF NUTRI' THEN
                COALESCE(ni.ajuste_conf_nutri, ni.ajuste_nutricionista, ni.quantity)
            WHEN ni.status = 'NEC COORD' THEN
                COALESCE(ni.ajuste_coordenacao, ni.ajuste_nutricionista, ni.quantity)
            ELSE
                COALESCE(ni.ajuste_nutricionista, ni.quantity)
        END
    ) AS total_quantity
FROM
    necessity_items ni
WHERE
    ni.header_id = @headerId
GROUP BY
    ni.kitchen_name, ni.period_name, ni.product_name, ni.product_unit
ORDER BY
    ni.kitchen_name, ni.period_name, ni.product_name
`
	var results []*NecessityKitchenTotal
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"headerId": headerId,
	}).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ExportNecessityExcel writes the item sheet and the per-kitchen totals
// sheet of one necessity into w as an xlsx workbook.
func ExportNecessityExcel(ctx context.Context, w io.Writer, headerId int) error {
	items, err := GetNecessityItemsReport(ctx, headerId)
	if err != nil {
		return err
	}
	totals, err := GetNecessityKitchenTotals(ctx, headerId)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	itemSheet := "Itens"
	f.SetSheetName("Sheet1", itemSheet)

	// Add headers
	f.SetCellValue(itemSheet, "A1", "Cozinha")
	f.SetCellValue(itemSheet, "B1", "Periodo")
	f.SetCellValue(itemSheet, "C1", "Dia")
	f.SetCellValue(itemSheet, "D1", "Prato")
	f.SetCellValue(itemSheet, "E1", "Produto")
	f.SetCellValue(itemSheet, "F1", "Unidade")
	f.SetCellValue(itemSheet, "G1", "PerCapita")
	f.SetCellValue(itemSheet, "H1", "Media")
	f.SetCellValue(itemSheet, "I1", "QtdGerada")
	f.SetCellValue(itemSheet, "J1", "QtdVigente")
	f.SetCellValue(itemSheet, "K1", "Status")
	f.SetCellValue(itemSheet, "L1", "Observacao")

	// Add data
	for i, d := range items {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(itemSheet, "A"+row, d.KitchenName)
		f.SetCellValue(itemSheet, "B"+row, d.PeriodName)
		f.SetCellValue(itemSheet, "C"+row, d.ConsumptionDay)
		f.SetCellValue(itemSheet, "D"+row, d.DishName)
		f.SetCellValue(itemSheet, "E"+row, d.ProductName)
		f.SetCellValue(itemSheet, "F"+row, d.ProductUnit)
		f.SetCellValue(itemSheet, "G"+row, d.PerCapita.InexactFloat64())
		f.SetCellValue(itemSheet, "H"+row, d.AverageHeadcount.InexactFloat64())
		f.SetCellValue(itemSheet, "I"+row, d.Quantity.InexactFloat64())
		f.SetCellValue(itemSheet, "J"+row, d.ResolvedQuantity.InexactFloat64())
		f.SetCellValue(itemSheet, "K"+row, d.Status)
		f.SetCellValue(itemSheet, "L"+row, d.Note)
	}

	totalSheet := "Totais"
	if _, err := f.NewSheet(totalSheet); err != nil {
		return err
	}
	f.SetCellValue(totalSheet, "A1", "Cozinha")
	f.SetCellValue(totalSheet, "B1", "Periodo")
	f.SetCellValue(totalSheet, "C1", "Produto")
	f.SetCellValue(totalSheet, "D1", "Unidade")
	f.SetCellValue(totalSheet, "E1", "Total")
	for i, d := range totals {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(totalSheet, "A"+row, d.KitchenName)
		f.SetCellValue(totalSheet, "B"+row, d.PeriodName)
		f.SetCellValue(totalSheet, "C"+row, d.ProductName)
		f.SetCellValue(totalSheet, "D"+row, d.ProductUnit)
		f.SetCellValue(totalSheet, "E"+row, d.TotalQuantity.InexactFloat64())
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

// ExportFileName is used for the Content-Disposition header.
func ExportFileName(header *models.NecessityHeader) string {
	return fmt.Sprintf("%s_%02d-%d.xlsx", header.Code, header.MonthRef, header.Year)
}
