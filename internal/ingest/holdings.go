package ingest

import (
	"strings"

	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/pkg/errors"
	"qb-reconciliation-service/pkg/logger"
)

// ParseHoldings parses a brokerage holdings CSV in a single pass. The
// symbol column is required. Cash and total rows are skipped, as are
// rows whose quantity is missing or zero. Cost basis, market value, and
// price are independently optional; a missing price is back-computed
// from value/quantity when both are present.
func ParseHoldings(table *Table, log logger.Logger) (*Result, error) {
	log = log.WithComponent("holdings_parser")

	symbolCol := table.ColumnIndex("symbol", "ticker")
	if symbolCol == -1 {
		err := errors.ParseError(errors.CodeMissingColumn, table.HeaderLine+1, "symbol", "", nil)
		log.WithError(err).Error("Required column missing")
		return nil, err
	}

	quantityCol := table.ColumnIndex("quantity", "qty", "shares")
	costCol := table.ColumnIndexContains("cost basis", "cost")
	valueCol := table.ColumnIndexContains("market value", "current value", "value")
	priceCol := table.ColumnIndexContains("price")

	result := &Result{}
	for i, row := range table.Rows {
		line := table.SourceLine(i)

		symbol := table.Cell(row, symbolCol)
		lower := strings.ToLower(symbol)
		if symbol == "" || lower == "cash" || strings.Contains(lower, "total") {
			continue
		}

		quantity, err := models.ParseAmount(table.Cell(row, quantityCol))
		if err != nil || quantity.IsZero() {
			if err != nil {
				result.Warnings = append(result.Warnings,
					errors.ParseError(errors.CodeInvalidAmount, line, "quantity", table.Cell(row, quantityCol), err))
			}
			continue
		}

		holding := models.Holding{Symbol: symbol, Quantity: quantity}

		if cost, err := models.ParseAmount(table.Cell(row, costCol)); err == nil {
			holding.CostBasis = cost
		}
		if value, err := models.ParseAmount(table.Cell(row, valueCol)); err == nil {
			holding.MarketValue = value
		}
		if price, err := models.ParseAmount(table.Cell(row, priceCol)); err == nil {
			holding.Price = price
		}
		if holding.Price.IsZero() && !holding.MarketValue.IsZero() {
			holding.Price = holding.MarketValue.Div(holding.Quantity)
		}

		result.Holdings = append(result.Holdings, holding)
	}

	log.WithFields(logger.Fields{
		"holdings": len(result.Holdings),
		"warnings": len(result.Warnings),
	}).Info("Holdings parsing completed")

	return result, nil
}
