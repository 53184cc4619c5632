package inventory

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/zombor/travel-inventory/internal/money"
)

// BackupVersion is the Backup format written by Export
const BackupVersion = 1

// Export returns every trip, invoice and item along with the settings
func (s *Service) Export() (*Backup, error) {
	trips, err := s.db.ListTrips()
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}
	invoices, err := s.db.ListInvoices()
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	settings, err := s.GetSettings()
	if err != nil {
		return nil, err
	}

	sortTrips(trips)
	sortInvoices(invoices)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].InvoiceID != items[j].InvoiceID {
			return items[i].InvoiceID < items[j].InvoiceID
		}
		return items[i].Line < items[j].Line
	})

	return &Backup{
		Version:    BackupVersion,
		ExportedAt: s.timeSource.Now().UTC(),
		Trips:      trips,
		Invoices:   invoices,
		Items:      items,
		Settings:   &settings,
	}, nil
}

// Import merges a backup into the database. Records with an existing ID are
// overwritten and nothing is deleted. The whole backup is checked before
// anything is written.
func (s *Service) Import(backup *Backup) error {
	if backup == nil {
		return fmt.Errorf("empty backup: %w", ErrInvalid)
	}
	if backup.Version > BackupVersion {
		return fmt.Errorf("backup version %d is newer than %d: %w", backup.Version, BackupVersion, ErrInvalid)
	}

	for _, trip := range backup.Trips {
		if trip == nil || trip.ID == "" || strings.TrimSpace(trip.Name) == "" {
			return fmt.Errorf("trip without id or name: %w", ErrInvalid)
		}
	}
	for _, inv := range backup.Invoices {
		if inv == nil || inv.ID == "" {
			return fmt.Errorf("invoice without id: %w", ErrInvalid)
		}
		if inv.TxDate != "" && !isDate(inv.TxDate) {
			return fmt.Errorf("invoice %s has bad date %q: %w", inv.ID, inv.TxDate, ErrInvalid)
		}
	}
	for _, item := range backup.Items {
		if item == nil || item.ID == "" || item.InvoiceID == "" {
			return fmt.Errorf("item without id or invoice: %w", ErrInvalid)
		}
		if item.Status == "" {
			item.Status = StatusUnopened
		}
		if !item.Status.Valid() {
			return fmt.Errorf("item %s has unknown status %q: %w", item.ID, item.Status, ErrInvalid)
		}
	}
	if backup.Settings != nil {
		backup.Settings.HomeCurrency = money.Code(backup.Settings.HomeCurrency)
		if len(backup.Settings.HomeCurrency) != 3 {
			return fmt.Errorf("backup home currency must be a 3-letter code: %w", ErrInvalid)
		}
		backup.Settings.ExchangeRates = backup.Settings.ExchangeRates.Normalize()
	}

	if err := s.db.Import(backup); err != nil {
		return fmt.Errorf("importing backup: %w", err)
	}

	slog.Info("Imported backup",
		"trips", len(backup.Trips),
		"invoices", len(backup.Invoices),
		"items", len(backup.Items),
	)
	return nil
}

// ExportXLSX writes the inventory as a workbook with Items, Invoices and Trips
// sheets.
func (s *Service) ExportXLSX(w io.Writer) error {
	backup, err := s.Export()
	if err != nil {
		return err
	}

	invoices := make(map[string]*Invoice, len(backup.Invoices))
	for _, inv := range backup.Invoices {
		invoices[inv.ID] = inv
	}
	trips := make(map[string]*Trip, len(backup.Trips))
	for _, trip := range backup.Trips {
		trips[trip.ID] = trip
	}

	f := excelize.NewFile()
	defer f.Close()

	const itemSheet = "Items"
	if err := f.SetSheetName("Sheet1", itemSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	for _, name := range []string{"Invoices", "Trips"} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("adding sheet %s: %w", name, err)
		}
	}

	itemRows := make([][]any, 0, len(backup.Items))
	for _, item := range backup.Items {
		var date, shop, trip string
		if inv := invoices[item.InvoiceID]; inv != nil {
			date, shop = inv.TxDate, inv.ShopName
			if t := trips[inv.TripID]; t != nil {
				trip = t.Name
			}
		}
		itemRows = append(itemRows, []any{
			date, shop, trip, item.NameOriginal, item.NameChinese, item.Barcode, item.Type,
			item.Qty, item.Currency, item.Price.String(), item.Discount.String(), item.PriceHome.String(),
			string(item.Status), item.ExpiryDate, item.OpenDate,
		})
	}
	if err := writeSheet(f, itemSheet, []string{
		"Date", "Shop", "Trip", "Name", "Chinese Name", "Barcode", "Type",
		"Qty", "Currency", "Price", "Discount", "Price (Home)",
		"Status", "Expiry", "Opened",
	}, itemRows); err != nil {
		return err
	}
	_ = f.SetColWidth(itemSheet, "A", "A", 12) // date
	_ = f.SetColWidth(itemSheet, "B", "C", 24) // shop, trip
	_ = f.SetColWidth(itemSheet, "D", "E", 32) // names

	invoiceRows := make([][]any, 0, len(backup.Invoices))
	for _, inv := range backup.Invoices {
		var trip string
		if t := trips[inv.TripID]; t != nil {
			trip = t.Name
		}
		invoiceRows = append(invoiceRows, []any{
			inv.TxDate, inv.TxTime, inv.ShopName, inv.Country, trip, inv.Currency,
			inv.TotalAmount.String(), inv.HomeCurrency, inv.TotalAmountHome.String(), inv.ReceiptFile,
		})
	}
	if err := writeSheet(f, "Invoices", []string{
		"Date", "Time", "Shop", "Country", "Trip", "Currency",
		"Total", "Home Currency", "Total (Home)", "Receipt File",
	}, invoiceRows); err != nil {
		return err
	}
	_ = f.SetColWidth("Invoices", "C", "C", 28)
	_ = f.SetColWidth("Invoices", "J", "J", 48)

	tripRows := make([][]any, 0, len(backup.Trips))
	for _, trip := range backup.Trips {
		tripRows = append(tripRows, []any{trip.Name, trip.StartDate, trip.EndDate, trip.Note})
	}
	if err := writeSheet(f, "Trips", []string{"Name", "Start", "End", "Note"}, tripRows); err != nil {
		return err
	}
	_ = f.SetColWidth("Trips", "A", "A", 28)
	_ = f.SetColWidth("Trips", "D", "D", 48)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("writing %s header: %w", sheet, err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("writing %s row %d: %w", sheet, r+2, err)
			}
		}
	}
	return nil
}
