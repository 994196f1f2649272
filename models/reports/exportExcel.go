package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"bitbucket.org/mmdatafocus/stocktrack_backend/models"
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
	"github.com/xuri/excelize/v2"
)

// ExportInventoryStatusXlsx writes the traffic-light board as a spreadsheet.
func ExportInventoryStatusXlsx(w io.Writer, rows []InventoryStatusRow) error {
	f := excelize.NewFile()
	if _, err := f.NewSheet("Sheet1"); err != nil {
		return err
	}

	// Add headers
	f.SetCellValue("Sheet1", "A1", "Warehouse")
	f.SetCellValue("Sheet1", "B1", "ItemId")
	f.SetCellValue("Sheet1", "C1", "Name")
	f.SetCellValue("Sheet1", "D1", "Quantity")
	f.SetCellValue("Sheet1", "E1", "Status")

	// Add data
	for i, d := range rows {
		f.SetCellValue("Sheet1", "A"+fmt.Sprint(i+2), d.WarehouseName)
		f.SetCellValue("Sheet1", "B"+fmt.Sprint(i+2), d.ItemId)
		f.SetCellValue("Sheet1", "C"+fmt.Sprint(i+2), d.Name)
		f.SetCellValue("Sheet1", "D"+fmt.Sprint(i+2), d.Quantity.String())
		f.SetCellValue("Sheet1", "E"+fmt.Sprint(i+2), string(d.Status))
	}

	return f.Write(w)
}

func ExportInventoryStatusCSV(w io.Writer, rows []InventoryStatusRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"warehouse", "item_id", "name", "quantity", "status"}); err != nil {
		return err
	}
	for _, d := range rows {
		record := []string{d.WarehouseName, d.ItemId, d.Name, d.Quantity.String(), string(d.Status)}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Ticket exports render dates in the business's local timezone.
func ExportTicketsXlsx(w io.Writer, tickets []*models.Ticket, timezone string) error {
	f := excelize.NewFile()
	if _, err := f.NewSheet("Sheet1"); err != nil {
		return err
	}

	// Add headers
	f.SetCellValue("Sheet1", "A1", "Id")
	f.SetCellValue("Sheet1", "B1", "Type")
	f.SetCellValue("Sheet1", "C1", "ItemId")
	f.SetCellValue("Sheet1", "D1", "ItemName")
	f.SetCellValue("Sheet1", "E1", "From")
	f.SetCellValue("Sheet1", "F1", "To")
	f.SetCellValue("Sheet1", "G1", "Quantity")
	f.SetCellValue("Sheet1", "H1", "Status")
	f.SetCellValue("Sheet1", "I1", "RequestDate")
	f.SetCellValue("Sheet1", "J1", "CollectDate")
	f.SetCellValue("Sheet1", "K1", "CreatedBy")

	// Add data
	for i, t := range tickets {
		f.SetCellValue("Sheet1", "A"+fmt.Sprint(i+2), t.ID)
		f.SetCellValue("Sheet1", "B"+fmt.Sprint(i+2), string(t.TicketType))
		f.SetCellValue("Sheet1", "C"+fmt.Sprint(i+2), t.ItemId)
		f.SetCellValue("Sheet1", "D"+fmt.Sprint(i+2), t.ItemName)
		f.SetCellValue("Sheet1", "E"+fmt.Sprint(i+2), t.FromWarehouseId)
		f.SetCellValue("Sheet1", "F"+fmt.Sprint(i+2), t.ToWarehouseId)
		f.SetCellValue("Sheet1", "G"+fmt.Sprint(i+2), t.Quantity.String())
		f.SetCellValue("Sheet1", "H"+fmt.Sprint(i+2), string(t.CurrentStatus))
		f.SetCellValue("Sheet1", "I"+fmt.Sprint(i+2), utils.ConvertToLocalTime(t.RequestDate, timezone).Format(time.DateOnly))
		f.SetCellValue("Sheet1", "J"+fmt.Sprint(i+2), utils.ConvertToLocalTime(t.CollectDate, timezone).Format(time.DateOnly))
		f.SetCellValue("Sheet1", "K"+fmt.Sprint(i+2), t.CreatedBy)
	}

	return f.Write(w)
}

func ExportTicketsCSV(w io.Writer, tickets []*models.Ticket, timezone string) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "type", "item_id", "item_name", "from_warehouse_id",
		"to_warehouse_id", "quantity", "status", "request_date", "collect_date", "created_by"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range tickets {
		record := []string{
			fmt.Sprint(t.ID),
			string(t.TicketType),
			t.ItemId,
			t.ItemName,
			fmt.Sprint(t.FromWarehouseId),
			fmt.Sprint(t.ToWarehouseId),
			t.Quantity.String(),
			string(t.CurrentStatus),
			utils.ConvertToLocalTime(t.RequestDate, timezone).Format(time.DateOnly),
			utils.ConvertToLocalTime(t.CollectDate, timezone).Format(time.DateOnly),
			t.CreatedBy,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
