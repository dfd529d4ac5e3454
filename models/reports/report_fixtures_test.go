package reports

import (
	"bitbucket.org/mmdatafocus/ticket_backend/models"
)

func ticketRecord(code, stock, price, qty string) models.Record {
	return models.Record{
		{Name: models.ColumnWarehouse, Value: "Central"},
		{Name: models.ColumnCode, Value: code},
		{Name: models.ColumnProduct, Value: "Producto " + code},
		{Name: models.ColumnPriceDDU, Value: "4.20"},
		{Name: models.ColumnRate, Value: "T1"},
		{Name: models.ColumnAvailableStock, Value: stock},
		{Name: models.ColumnExpiryDate, Value: "25/12/2023"},
		{Name: models.ColumnCategory, Value: "Bebidas"},
		{Name: models.ColumnSlot, Value: "A-01"},
		{Name: models.ColumnSupplier, Value: "ACME"},
		{Name: models.ColumnQuantity, Value: qty},
		{Name: models.ColumnSalePrice, Value: price},
		{Name: models.ColumnUnitsPerPackage, Value: "Un. Caja: 6"},
	}
}

func mustCell(sheet *Sheet, col, row int) Cell {
	c, ok := sheet.CellAt(col, row)
	if !ok {
		return Cell{}
	}
	return c
}
