package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/travel-inventory/internal/money"
)

// expiryWindow is how far ahead the dashboard looks for expiring items
const expiryWindow = 30 * 24 * time.Hour

// DashboardSummary summarises the inventory and this month's spending
type DashboardSummary struct {
	HomeCurrency  string          `json:"home_currency"`
	ActiveItems   int             `json:"active_items"`
	ExpiringSoon  []*Item         `json:"expiring_soon"`
	MonthSpend    decimal.Decimal `json:"month_spend"`
	MonthInvoices int             `json:"month_invoices"`
	// Unconverted lists currencies of this month's invoices that could not be
	// added to MonthSpend for lack of an exchange rate.
	Unconverted []string `json:"unconverted,omitempty"`
}

// Dashboard counts items not yet used up, lists those expiring within 30
// days, and totals this month's invoices in the home currency.
func (s *Service) Dashboard() (*DashboardSummary, error) {
	settings, err := s.GetSettings()
	if err != nil {
		return nil, err
	}
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	invoices, err := s.db.ListInvoices()
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	now := s.timeSource.Now()
	today := now.Format(dateLayout)
	horizon := now.Add(expiryWindow).Format(dateLayout)

	dash := &DashboardSummary{
		HomeCurrency: settings.HomeCurrency,
		ExpiringSoon: make([]*Item, 0),
		MonthSpend:   decimal.Zero,
	}
	for _, item := range items {
		if item.Status == StatusUsedUp {
			continue
		}
		dash.ActiveItems++
		if item.ExpiryDate != "" && item.ExpiryDate > today && item.ExpiryDate < horizon {
			dash.ExpiringSoon = append(dash.ExpiringSoon, item)
		}
	}
	sort.SliceStable(dash.ExpiringSoon, func(i, j int) bool {
		return dash.ExpiringSoon[i].ExpiryDate < dash.ExpiringSoon[j].ExpiryDate
	})

	month := now.Format("2006-01")
	unconverted := map[string]bool{}
	for _, inv := range invoices {
		if !strings.HasPrefix(inv.TxDate, month) {
			continue
		}
		dash.MonthInvoices++
		amount, err := settings.ExchangeRates.Convert(inv.TotalAmount, inv.Currency, settings.HomeCurrency)
		if errors.Is(err, money.ErrNoRate) {
			unconverted[inv.Currency] = true
			continue
		}
		dash.MonthSpend = dash.MonthSpend.Add(amount)
	}
	for code := range unconverted {
		dash.Unconverted = append(dash.Unconverted, code)
	}
	sort.Strings(dash.Unconverted)
	return dash, nil
}

// PricePoint is one purchase of a product
type PricePoint struct {
	ItemID    string           `json:"item_id"`
	Price     decimal.Decimal  `json:"price"`
	Currency  string           `json:"currency"`
	PriceHome *decimal.Decimal `json:"price_home,omitempty"`
	ShopName  string           `json:"shop_name,omitempty"`
	TxDate    string           `json:"tx_date,omitempty"`
}

// PriceGroup is the purchase history of one product
type PriceGroup struct {
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	NameChinese string       `json:"name_chinese,omitempty"`
	Purchases   []PricePoint `json:"purchases"`
	Latest      PricePoint   `json:"latest"`
	Cheapest    *PricePoint  `json:"cheapest,omitempty"`
	Dearest     *PricePoint  `json:"dearest,omitempty"`
}

// priceKey groups purchases by barcode, or by trimmed lower-cased name
func priceKey(item *Item) string {
	if item.Barcode != "" {
		return item.Barcode
	}
	return strings.ToLower(strings.TrimSpace(item.NameOriginal))
}

// PriceHistory groups items bought more than once. Prices are compared in the
// home currency using the current exchange rates; purchases that cannot be
// converted are listed but not ranked.
func (s *Service) PriceHistory() ([]PriceGroup, error) {
	settings, err := s.GetSettings()
	if err != nil {
		return nil, err
	}
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	invoices, err := s.invoiceIndex()
	if err != nil {
		return nil, err
	}

	grouped := map[string][]*Item{}
	var keys []string
	for _, item := range items {
		key := priceKey(item)
		if _, ok := grouped[key]; !ok {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], item)
	}
	sort.Strings(keys)

	groups := make([]PriceGroup, 0)
	for _, key := range keys {
		members := grouped[key]
		if len(members) < 2 {
			continue
		}

		group := PriceGroup{Key: key}
		for _, item := range members {
			point := PricePoint{ItemID: item.ID, Price: item.Price, Currency: item.Currency}
			if inv := invoices[item.InvoiceID]; inv != nil {
				point.ShopName = inv.ShopName
				point.TxDate = inv.TxDate
			}
			if home, err := settings.ExchangeRates.Convert(item.Price, item.Currency, settings.HomeCurrency); err == nil {
				point.PriceHome = &home
			}
			group.Purchases = append(group.Purchases, point)
		}
		sort.SliceStable(group.Purchases, func(i, j int) bool {
			return group.Purchases[i].TxDate < group.Purchases[j].TxDate
		})

		group.Latest = group.Purchases[len(group.Purchases)-1]
		latestItem := findItem(members, group.Latest.ItemID)
		group.Name = latestItem.NameOriginal
		group.NameChinese = latestItem.NameChinese

		for i := range group.Purchases {
			p := &group.Purchases[i]
			if p.PriceHome == nil {
				continue
			}
			if group.Cheapest == nil || p.PriceHome.LessThan(*group.Cheapest.PriceHome) {
				group.Cheapest = p
			}
			if group.Dearest == nil || p.PriceHome.GreaterThan(*group.Dearest.PriceHome) {
				group.Dearest = p
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func findItem(items []*Item, id string) *Item {
	for _, item := range items {
		if item.ID == id {
			return item
		}
	}
	return items[0]
}
