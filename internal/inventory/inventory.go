// Package inventory records trips, receipts and the products bought on them,
// and tracks each product from purchase until it is used up.
package inventory

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/travel-inventory/internal/interpret"
	"github.com/zombor/travel-inventory/internal/money"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned when input fails validation
	ErrInvalid = errors.New("invalid input")
)

const dateLayout = "2006-01-02"

// ItemStatus is where a product is in its life cycle
type ItemStatus string

const (
	StatusUnopened ItemStatus = "unopened"
	StatusOpened   ItemStatus = "opened"
	StatusUsedUp   ItemStatus = "used_up"
)

// Next returns the status that follows s: unopened, opened, used up, and
// back to unopened.
func (s ItemStatus) Next() ItemStatus {
	switch s {
	case StatusUnopened:
		return StatusOpened
	case StatusOpened:
		return StatusUsedUp
	default:
		return StatusUnopened
	}
}

// Valid reports whether s is a known status
func (s ItemStatus) Valid() bool {
	return s == StatusUnopened || s == StatusOpened || s == StatusUsedUp
}

// Trip groups the invoices of one journey
type Trip struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Invoice is a saved receipt
type Invoice struct {
	ID              string          `json:"id"`
	TripID          string          `json:"trip_id,omitempty"`
	ShopName        string          `json:"shop_name"`
	ShopAddress     string          `json:"shop_address,omitempty"`
	Country         string          `json:"country,omitempty"`
	Tel             string          `json:"tel,omitempty"`
	Currency        string          `json:"currency"`
	TxDate          string          `json:"tx_date"`
	TxTime          string          `json:"tx_time"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalAmountHome decimal.Decimal `json:"total_amount_home"`
	HomeCurrency    string          `json:"home_currency,omitempty"` // empty when no rate was known
	ReceiptFile     string          `json:"receipt_file,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Item is one product line of an invoice
type Item struct {
	ID           string          `json:"id"`
	InvoiceID    string          `json:"invoice_id"`
	Line         int             `json:"line"` // position on the receipt, from 1
	Barcode      string          `json:"barcode,omitempty"`
	NameOriginal string          `json:"name_original"`
	NameChinese  string          `json:"name_chinese,omitempty"`
	Type         string          `json:"type"`
	Qty          int             `json:"qty"`
	Price        decimal.Decimal `json:"price"`
	PriceHome    decimal.Decimal `json:"price_home"`
	Currency     string          `json:"currency"`
	Discount     decimal.Decimal `json:"discount"`
	ExpiryDate   string          `json:"expiry_date,omitempty"`
	OpenDate     string          `json:"open_date,omitempty"`
	Status       ItemStatus      `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Settings are the user preferences
type Settings struct {
	HomeCurrency  string      `json:"home_currency"`
	GeminiModel   string      `json:"gemini_model,omitempty"`
	ExchangeRates money.Rates `json:"exchange_rates"`
}

// DefaultSettings returns the settings used before the user changes anything
func DefaultSettings(homeCurrency string) Settings {
	if homeCurrency == "" {
		homeCurrency = interpret.DefaultConfig().HomeCurrency
	}
	return Settings{HomeCurrency: money.Code(homeCurrency), ExchangeRates: money.Rates{}}
}

// Draft is a scanned receipt waiting for the user to review and save it
type Draft struct {
	Receipt     *interpret.ParsedReceipt `json:"receipt"`
	ReceiptFile string                   `json:"receipt_file"`
	ContentType string                   `json:"content_type"`
}

// ItemInput is one item of an InvoiceInput
type ItemInput struct {
	Barcode      string          `json:"barcode,omitempty"`
	NameOriginal string          `json:"name_original"`
	NameChinese  string          `json:"name_chinese,omitempty"`
	Type         string          `json:"type,omitempty"`
	Qty          int             `json:"qty"`
	Price        decimal.Decimal `json:"price"`
	Discount     decimal.Decimal `json:"discount"`
	ExpiryDate   string          `json:"expiry_date,omitempty"`
}

// InvoiceInput is a reviewed receipt to save
type InvoiceInput struct {
	TripID      string      `json:"trip_id,omitempty"`
	ShopName    string      `json:"shop_name"`
	ShopAddress string      `json:"shop_address,omitempty"`
	Country     string      `json:"country,omitempty"`
	Tel         string      `json:"tel,omitempty"`
	Currency    string      `json:"currency"`
	TxDate      string      `json:"tx_date"`
	TxTime      string      `json:"tx_time"`
	ReceiptFile string      `json:"receipt_file,omitempty"`
	Items       []ItemInput `json:"items"`
}

// NewInvoiceInput prefills an InvoiceInput from an interpreted receipt
func NewInvoiceInput(receipt *interpret.ParsedReceipt, receiptFile string) InvoiceInput {
	in := InvoiceInput{
		ShopName:    receipt.ShopName,
		ShopAddress: receipt.ShopAddress,
		Country:     receipt.Country,
		Tel:         receipt.Tel,
		Currency:    receipt.Currency,
		TxDate:      receipt.TxDate,
		TxTime:      receipt.TxTime,
		ReceiptFile: receiptFile,
		Items:       make([]ItemInput, 0, len(receipt.Items)),
	}
	for _, it := range receipt.Items {
		in.Items = append(in.Items, ItemInput{
			NameOriginal: it.Name,
			NameChinese:  it.NameChinese,
			Type:         it.Type,
			Qty:          it.Qty,
			Price:        it.Price,
			Discount:     it.Discount,
		})
	}
	return in
}

// ItemUpdate holds the item fields a user may change after saving. Nil fields
// are left alone.
type ItemUpdate struct {
	Barcode     *string     `json:"barcode,omitempty"`
	NameChinese *string     `json:"name_chinese,omitempty"`
	Type        *string     `json:"type,omitempty"`
	ExpiryDate  *string     `json:"expiry_date,omitempty"`
	Status      *ItemStatus `json:"status,omitempty"`
}

// InvoiceDetail is an invoice with its items and trip
type InvoiceDetail struct {
	Invoice *Invoice `json:"invoice"`
	Items   []*Item  `json:"items"`
	Trip    *Trip    `json:"trip,omitempty"`
}

// ItemFilter narrows InventoryList. Empty fields match everything.
type ItemFilter struct {
	Query  string
	TripID string
	Type   string
	Status ItemStatus
}

// InventoryEntry is an item with the invoice and trip it came from
type InventoryEntry struct {
	Item    *Item    `json:"item"`
	Invoice *Invoice `json:"invoice,omitempty"`
	Trip    *Trip    `json:"trip,omitempty"`
}

// Backup is the JSON export format
type Backup struct {
	Version    int        `json:"version"`
	ExportedAt time.Time  `json:"exported_at"`
	Trips      []*Trip    `json:"trips"`
	Invoices   []*Invoice `json:"invoices"`
	Items      []*Item    `json:"items"`
	Settings   *Settings  `json:"settings,omitempty"`
}

func isDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
