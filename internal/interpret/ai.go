package interpret

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
)

// ErrNoStructure is returned when an image-understanding service replies
// with nothing that can be turned into a receipt.
var ErrNoStructure = errors.New("recognition produced no usable structure")

// Categories are the item types an image-understanding service may assign.
var Categories = []string{"food", "medicine", "household", "cosmetics", "clothing", "electronics", DefaultItemType}

// AIPrompt asks an image-understanding service for exactly one JSON object
// shaped like ParsedReceipt.
var AIPrompt = `You are a receipt recognition assistant. Analyse this receipt image and return the details as JSON.

1. Shop:
   - shopName: shop name
   - shopAddress: shop address (if present)
   - country: country or region (e.g. Japan, Taiwan, Hong Kong, Korea)
   - tel: phone number (if present)

2. Transaction:
   - txDate: transaction date (YYYY-MM-DD)
   - txTime: transaction time (HH:mm)
   - currency: ISO currency code (e.g. JPY, TWD, HKD, KRW, USD)
   - totalAmount: total amount (number only)

3. items array, each with:
   - name: item name exactly as printed
   - nameChinese: Traditional Chinese translation of the name
   - price: unit price (number only)
   - qty: quantity (number only, default 1)
   - discount: discount on this item as a positive number, 0 if none
   - type: one of ` + strings.Join(Categories, ", ") + `

Rules:
- Omit a field or set it to null if it cannot be read.
- Return exactly one JSON object with no Markdown.
- If there are discounts, totalAmount must be the final amount after discounts.`

var receiptSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	number := map[string]any{"type": []string{"number", "string", "null"}}
	optional := map[string]any{"type": []string{"string", "null"}}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"shopName":    optional,
			"shopAddress": optional,
			"country":     optional,
			"tel":         optional,
			"txDate":      optional,
			"txTime":      optional,
			"currency":    optional,
			"totalAmount": map[string]any{"type": []string{"number", "string"}},
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        map[string]any{"type": []string{"string", "null"}},
						"nameChinese": optional,
						"price":       number,
						"qty":         number,
						"discount":    number,
						"type":        optional,
					},
				},
			},
		},
		"required": []string{"shopName", "items", "totalAmount"},
	}

	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("receipt.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("receipt.json")
})

type aiItem struct {
	Name        string          `json:"name"`
	NameChinese string          `json:"nameChinese"`
	Price       decimal.Decimal `json:"price"`
	Qty         decimal.Decimal `json:"qty"`
	Discount    decimal.Decimal `json:"discount"`
	Type        string          `json:"type"`
}

type aiReceipt struct {
	ShopName    string          `json:"shopName"`
	ShopAddress string          `json:"shopAddress"`
	Country     string          `json:"country"`
	Tel         string          `json:"tel"`
	TxDate      string          `json:"txDate"`
	TxTime      string          `json:"txTime"`
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []aiItem        `json:"items"`
}

// extractJSONObject returns the text between the first '{' and the last '}'.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")

	start := strings.Index(text, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response: %w", ErrNoStructure)
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return "", fmt.Errorf("unterminated JSON object in response: %w", ErrNoStructure)
	}
	return text[start : end+1], nil
}

// DecodeAIReceipt validates a reply from an image-understanding service and
// converts it to a ParsedReceipt. Missing date, time and currency get the same
// defaults as the heuristic path. Any structural problem wraps ErrNoStructure.
func (in *Interpreter) DecodeAIReceipt(reply, homeCurrency string) (*ParsedReceipt, error) {
	doc, err := extractJSONObject(reply)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal([]byte(doc), &generic); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %v: %w", err, ErrNoStructure)
	}
	schema, err := receiptSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling receipt schema: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return nil, fmt.Errorf("json does not match schema: %v: %w", err, ErrNoStructure)
	}

	var data aiReceipt
	if err := json.Unmarshal([]byte(doc), &data); err != nil {
		return nil, fmt.Errorf("decoding receipt: %v: %w", err, ErrNoStructure)
	}

	receipt := &ParsedReceipt{
		ShopName:    strings.TrimSpace(data.ShopName),
		ShopAddress: strings.TrimSpace(data.ShopAddress),
		Country:     strings.TrimSpace(data.Country),
		Tel:         strings.TrimSpace(data.Tel),
		TotalAmount: data.TotalAmount.Abs(),
		Items:       make([]ParsedItem, 0, len(data.Items)),
		Sources: Sources{
			ShopName:    FromAI,
			Tel:         FromAI,
			TotalAmount: FromAI,
			Items:       FromAI,
		},
	}
	if receipt.ShopName == "" {
		receipt.ShopName = UnknownShop
		receipt.Sources.ShopName = Defaulted
	}
	if receipt.Tel == "" {
		receipt.Sources.Tel = Defaulted
	}

	receipt.TxDate, receipt.Sources.TxDate = in.fields.Date(data.TxDate)
	receipt.TxTime, receipt.Sources.TxTime = in.fields.Time(data.TxTime)
	if receipt.Sources.TxDate == Matched {
		receipt.Sources.TxDate = FromAI
	}
	if receipt.Sources.TxTime == Matched {
		receipt.Sources.TxTime = FromAI
	}

	receipt.Currency = strings.ToUpper(strings.TrimSpace(data.Currency))
	receipt.Sources.Currency = FromAI
	if len(receipt.Currency) != 3 {
		receipt.Currency, receipt.Sources.Currency = in.fields.Currency("", homeCurrency)
	}

	for _, it := range data.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		qty := 1
		if it.Qty.IsInteger() && it.Qty.IsPositive() {
			qty = int(it.Qty.IntPart())
		}
		itemType := strings.TrimSpace(it.Type)
		if itemType == "" {
			itemType = DefaultItemType
		}
		receipt.Items = append(receipt.Items, ParsedItem{
			Name:        name,
			NameChinese: strings.TrimSpace(it.NameChinese),
			Price:       it.Price.Abs(),
			Qty:         qty,
			Discount:    it.Discount.Abs(),
			Type:        itemType,
		})
	}
	return receipt, nil
}
