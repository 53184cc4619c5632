package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zombor/travel-inventory/internal/translate"
)

// GetItem retrieves an item by ID
func (s *Service) GetItem(id string) (*Item, error) {
	item, err := s.db.GetItem(id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// setStatus moves item to status, stamping or clearing the open date
func (s *Service) setStatus(item *Item, status ItemStatus) {
	switch status {
	case StatusOpened:
		if item.Status != StatusOpened {
			item.OpenDate = s.today()
		}
	case StatusUnopened:
		item.OpenDate = ""
	}
	item.Status = status
}

// AdvanceItemStatus moves an item one step along unopened, opened, used up
// and back to unopened.
func (s *Service) AdvanceItemStatus(id string) (*Item, error) {
	item, err := s.GetItem(id)
	if err != nil {
		return nil, err
	}

	s.setStatus(item, item.Status.Next())
	item.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveItem(item); err != nil {
		return nil, fmt.Errorf("saving item: %w", err)
	}
	return item, nil
}

// UpdateItem applies the non-nil fields of update
func (s *Service) UpdateItem(id string, update ItemUpdate) (*Item, error) {
	item, err := s.GetItem(id)
	if err != nil {
		return nil, err
	}

	if update.Barcode != nil {
		item.Barcode = strings.TrimSpace(*update.Barcode)
	}
	if update.NameChinese != nil {
		item.NameChinese = strings.TrimSpace(*update.NameChinese)
	}
	if update.Type != nil {
		if t := strings.TrimSpace(*update.Type); t != "" {
			item.Type = t
		}
	}
	if update.ExpiryDate != nil {
		expiry := strings.TrimSpace(*update.ExpiryDate)
		if expiry != "" && !isDate(expiry) {
			return nil, fmt.Errorf("expiry date %q is not YYYY-MM-DD: %w", expiry, ErrInvalid)
		}
		item.ExpiryDate = expiry
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return nil, fmt.Errorf("unknown status %q: %w", *update.Status, ErrInvalid)
		}
		s.setStatus(item, *update.Status)
	}
	item.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveItem(item); err != nil {
		return nil, fmt.Errorf("saving item: %w", err)
	}
	return item, nil
}

// DeleteItem removes an item. The invoice total is left as printed on the
// receipt.
func (s *Service) DeleteItem(id string) error {
	if err := s.db.DeleteItem(id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// TranslateItem asks the translation chain for a Chinese name and stores it
// when one is found. The item is returned unchanged with SourceManual
// otherwise.
func (s *Service) TranslateItem(ctx context.Context, id string) (*Item, translate.Result, error) {
	item, err := s.GetItem(id)
	if err != nil {
		return nil, translate.Result{}, err
	}

	result := translate.Result{Source: translate.SourceManual}
	if s.translator != nil {
		result, err = s.translator.Translate(ctx, item.NameOriginal)
		if err != nil {
			return nil, translate.Result{}, fmt.Errorf("translating item: %w", err)
		}
	}
	if result.Chinese == "" {
		return item, result, nil
	}

	item.NameChinese = result.Chinese
	item.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveItem(item); err != nil {
		return nil, translate.Result{}, fmt.Errorf("saving item: %w", err)
	}
	return item, result, nil
}

// InventoryList returns items with their invoice and trip, newest purchase
// first, narrowed by filter.
func (s *Service) InventoryList(filter ItemFilter) ([]InventoryEntry, error) {
	var (
		items []*Item
		err   error
	)
	switch {
	case filter.Status != "":
		items, err = s.db.ListItemsByStatus(filter.Status)
	case filter.Type != "":
		items, err = s.db.ListItemsByType(filter.Type)
	default:
		items, err = s.db.ListItems()
	}
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	invoices, err := s.invoiceIndex()
	if err != nil {
		return nil, err
	}
	trips, err := s.tripIndex()
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	entries := make([]InventoryEntry, 0, len(items))
	for _, item := range items {
		if filter.Type != "" && item.Type != filter.Type {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(item.NameOriginal), query) &&
			!strings.Contains(strings.ToLower(item.NameChinese), query) {
			continue
		}

		invoice := invoices[item.InvoiceID]
		if filter.TripID != "" && (invoice == nil || invoice.TripID != filter.TripID) {
			continue
		}
		entry := InventoryEntry{Item: item, Invoice: invoice}
		if invoice != nil {
			entry.Trip = trips[invoice.TripID]
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if pa, pb := purchaseDate(a), purchaseDate(b); pa != pb {
			return pa > pb
		}
		if a.Item.InvoiceID != b.Item.InvoiceID {
			return a.Item.InvoiceID < b.Item.InvoiceID
		}
		return a.Item.Line < b.Item.Line
	})
	return entries, nil
}

func purchaseDate(e InventoryEntry) string {
	if e.Invoice == nil {
		return ""
	}
	return e.Invoice.TxDate + " " + e.Invoice.TxTime
}

func (s *Service) invoiceIndex() (map[string]*Invoice, error) {
	invoices, err := s.db.ListInvoices()
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	index := make(map[string]*Invoice, len(invoices))
	for _, inv := range invoices {
		index[inv.ID] = inv
	}
	return index, nil
}

func (s *Service) tripIndex() (map[string]*Trip, error) {
	trips, err := s.db.ListTrips()
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}
	index := make(map[string]*Trip, len(trips))
	for _, t := range trips {
		index[t.ID] = t
	}
	return index, nil
}
