package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/travel-inventory/internal/interpret"
	"github.com/zombor/travel-inventory/internal/money"
)

// SaveInvoice validates a reviewed receipt and saves it with its items. The
// invoice total is the sum of price x qty - discount over the items, and each
// amount is also recorded in the home currency when an exchange rate is known.
func (s *Service) SaveInvoice(input InvoiceInput) (*InvoiceDetail, error) {
	settings, err := s.GetSettings()
	if err != nil {
		return nil, err
	}
	if err := s.normalizeInvoiceInput(&input, settings.HomeCurrency); err != nil {
		return nil, err
	}

	var trip *Trip
	if input.TripID != "" {
		trip, err = s.db.GetTrip(input.TripID)
		if err != nil {
			return nil, fmt.Errorf("getting trip: %w", err)
		}
	}

	now := s.timeSource.Now()
	invoice := &Invoice{
		ID:          s.idGenerator.Generate(),
		TripID:      input.TripID,
		ShopName:    input.ShopName,
		ShopAddress: input.ShopAddress,
		Country:     input.Country,
		Tel:         input.Tel,
		Currency:    input.Currency,
		TxDate:      input.TxDate,
		TxTime:      input.TxTime,
		ReceiptFile: input.ReceiptFile,
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	items := make([]*Item, 0, len(input.Items))
	for i, in := range input.Items {
		items = append(items, &Item{
			ID:           s.idGenerator.Generate(),
			InvoiceID:    invoice.ID,
			Line:         i + 1,
			Barcode:      in.Barcode,
			NameOriginal: in.NameOriginal,
			NameChinese:  in.NameChinese,
			Type:         in.Type,
			Qty:          in.Qty,
			Price:        in.Price,
			Currency:     invoice.Currency,
			Discount:     in.Discount,
			ExpiryDate:   in.ExpiryDate,
			Status:       StatusUnopened,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		invoice.TotalAmount = invoice.TotalAmount.Add(money.LineTotal(in.Price, in.Qty, in.Discount))
	}
	invoice.TotalAmount = money.Round(invoice.TotalAmount, invoice.Currency)

	s.convertToHome(invoice, items, settings)

	if err := s.db.SaveInvoice(invoice); err != nil {
		return nil, fmt.Errorf("saving invoice: %w", err)
	}
	for _, item := range items {
		if err := s.db.SaveItem(item); err != nil {
			return nil, fmt.Errorf("saving item: %w", err)
		}
	}

	slog.Info("Saved invoice",
		"id", invoice.ID,
		"shop", invoice.ShopName,
		"total", money.Format(invoice.TotalAmount, invoice.Currency),
		"items", len(items),
	)
	return &InvoiceDetail{Invoice: invoice, Items: items, Trip: trip}, nil
}

func (s *Service) normalizeInvoiceInput(input *InvoiceInput, homeCurrency string) error {
	input.ShopName = strings.TrimSpace(input.ShopName)
	if input.ShopName == "" {
		input.ShopName = interpret.UnknownShop
	}
	input.Currency = money.Code(input.Currency)
	if input.Currency == "" {
		input.Currency = homeCurrency
	}
	if len(input.Currency) != 3 {
		return fmt.Errorf("currency %q is not a 3-letter code: %w", input.Currency, ErrInvalid)
	}
	if input.TxDate == "" {
		input.TxDate = s.today()
	}
	if !isDate(input.TxDate) {
		return fmt.Errorf("transaction date %q is not YYYY-MM-DD: %w", input.TxDate, ErrInvalid)
	}
	if input.TxTime == "" {
		input.TxTime = s.timeSource.Now().Format("15:04")
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("an invoice needs at least one item: %w", ErrInvalid)
	}

	for i := range input.Items {
		it := &input.Items[i]
		it.NameOriginal = strings.TrimSpace(it.NameOriginal)
		if it.NameOriginal == "" {
			return fmt.Errorf("item %d has no name: %w", i+1, ErrInvalid)
		}
		if it.Qty < 1 {
			it.Qty = 1
		}
		if it.Price.IsNegative() || it.Discount.IsNegative() {
			return fmt.Errorf("item %d has a negative amount: %w", i+1, ErrInvalid)
		}
		if it.Type = strings.TrimSpace(it.Type); it.Type == "" {
			it.Type = interpret.DefaultItemType
		}
		if it.ExpiryDate != "" && !isDate(it.ExpiryDate) {
			return fmt.Errorf("item %d expiry date %q is not YYYY-MM-DD: %w", i+1, it.ExpiryDate, ErrInvalid)
		}
		it.Barcode = strings.TrimSpace(it.Barcode)
		it.NameChinese = strings.TrimSpace(it.NameChinese)
	}
	return nil
}

// convertToHome fills the home currency amounts. Without a rate they stay
// zero and the invoice's HomeCurrency is left empty.
func (s *Service) convertToHome(invoice *Invoice, items []*Item, settings Settings) {
	total, err := settings.ExchangeRates.Convert(invoice.TotalAmount, invoice.Currency, settings.HomeCurrency)
	if errors.Is(err, money.ErrNoRate) {
		slog.Warn("No exchange rate for invoice currency", "currency", invoice.Currency, "home_currency", settings.HomeCurrency)
		invoice.TotalAmountHome = decimal.Zero
		for _, item := range items {
			item.PriceHome = decimal.Zero
		}
		return
	}
	invoice.TotalAmountHome = total
	invoice.HomeCurrency = settings.HomeCurrency
	for _, item := range items {
		item.PriceHome, _ = settings.ExchangeRates.Convert(item.Price, item.Currency, settings.HomeCurrency)
	}
}

// GetInvoice retrieves an invoice with its items and trip
func (s *Service) GetInvoice(id string) (*InvoiceDetail, error) {
	invoice, err := s.db.GetInvoice(id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice: %w", err)
	}
	items, err := s.db.ListItemsByInvoice(id)
	if err != nil {
		return nil, fmt.Errorf("listing invoice items: %w", err)
	}
	sortItems(items)

	detail := &InvoiceDetail{Invoice: invoice, Items: items}
	if invoice.TripID != "" {
		trip, err := s.db.GetTrip(invoice.TripID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("getting trip: %w", err)
		}
		detail.Trip = trip
	}
	return detail, nil
}

// ListInvoices returns invoices newest first. A non-empty tripID limits the
// list to that trip.
func (s *Service) ListInvoices(tripID string) ([]*Invoice, error) {
	var (
		invoices []*Invoice
		err      error
	)
	if tripID != "" {
		invoices, err = s.db.ListInvoicesByTrip(tripID)
	} else {
		invoices, err = s.db.ListInvoices()
	}
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	sortInvoices(invoices)
	return invoices, nil
}

// DeleteInvoice removes an invoice, its items and its receipt file
func (s *Service) DeleteInvoice(id string) error {
	invoice, err := s.db.GetInvoice(id)
	if err != nil {
		return fmt.Errorf("getting invoice for deletion: %w", err)
	}
	items, err := s.db.ListItemsByInvoice(id)
	if err != nil {
		return fmt.Errorf("listing invoice items: %w", err)
	}
	for _, item := range items {
		if err := s.db.DeleteItem(item.ID); err != nil {
			return fmt.Errorf("deleting item %s: %w", item.ID, err)
		}
	}

	if invoice.ReceiptFile != "" {
		if err := s.storage.Delete(invoice.ReceiptFile); err != nil {
			slog.Warn("Failed to delete file", "filename", invoice.ReceiptFile, "error", err)
		}
	}

	if err := s.db.DeleteInvoice(id); err != nil {
		return fmt.Errorf("deleting invoice from database: %w", err)
	}
	return nil
}

func sortInvoices(invoices []*Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		a, b := invoices[i], invoices[j]
		if a.TxDate != b.TxDate {
			return a.TxDate > b.TxDate
		}
		if a.TxTime != b.TxTime {
			return a.TxTime > b.TxTime
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// sortItems restores receipt order
func sortItems(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Line < items[j].Line
	})
}
