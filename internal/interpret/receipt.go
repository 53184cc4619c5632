package interpret

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"
)

// UnknownShop is the shop name used when no header line qualifies.
const UnknownShop = "unknown shop"

// DefaultItemType is the category given to every item the heuristics detect.
const DefaultItemType = "other"

// Provenance records how a field value was obtained
type Provenance string

const (
	// Matched means a pattern found the value in the text.
	Matched Provenance = "matched"
	// Defaulted means nothing matched and a documented default was used.
	Defaulted Provenance = "defaulted"
	// Fallback marks items recovered by the last-resort single column pass.
	Fallback Provenance = "fallback"
	// FromAI means the value came from an image-understanding service.
	FromAI Provenance = "ai"
)

// Sources tags each metadata field with its provenance so a review screen
// can highlight guesses.
type Sources struct {
	ShopName    Provenance `json:"shopName"`
	TxDate      Provenance `json:"txDate"`
	TxTime      Provenance `json:"txTime"`
	Tel         Provenance `json:"tel"`
	Currency    Provenance `json:"currency"`
	TotalAmount Provenance `json:"totalAmount"`
	Items       Provenance `json:"items"`
}

// ParsedItem is a single purchased product detected on a receipt
type ParsedItem struct {
	Name        string          `json:"name"`
	NameChinese string          `json:"nameChinese,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Qty         int             `json:"qty"`
	Discount    decimal.Decimal `json:"discount"`
	Type        string          `json:"type"`
}

// ParsedReceipt is the structured result of interpreting recognized text.
// It is always fully populated; missing fields hold their defaults.
type ParsedReceipt struct {
	ShopName    string          `json:"shopName"`
	ShopAddress string          `json:"shopAddress,omitempty"`
	Country     string          `json:"country,omitempty"`
	Tel         string          `json:"tel,omitempty"`
	TxDate      string          `json:"txDate"` // YYYY-MM-DD
	TxTime      string          `json:"txTime"` // HH:mm
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []ParsedItem    `json:"items"`
	Sources     Sources         `json:"sources"`
}

// RecognizedText is the output of an image-to-text step: the raw block and its
// non-empty trimmed lines in order.
type RecognizedText struct {
	Raw   string
	Lines []string
}

// NewRecognizedText folds full-width forms to their ASCII equivalents and
// splits the block into trimmed, non-empty lines.
func NewRecognizedText(raw string) RecognizedText {
	raw = width.Fold.String(strings.ReplaceAll(raw, "\r\n", "\n"))
	lines := make([]string, 0, strings.Count(raw, "\n")+1)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return RecognizedText{Raw: raw, Lines: lines}
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// SystemTime reads the local wall clock.
type SystemTime struct{}

// Now returns time.Now()
func (SystemTime) Now() time.Time {
	return time.Now()
}
