package interpret

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CurrencyRule maps textual markers to a currency code. Rules are tested in
// order and the first rule with any marker present in the text wins.
type CurrencyRule struct {
	Currency string   `yaml:"currency"`
	Markers  []string `yaml:"markers"`
}

// Config holds the keyword tables that drive the heuristics. The defaults were
// collected from real receipt samples and are not a complete set, so callers
// are expected to extend them.
type Config struct {
	HomeCurrency     string         `yaml:"home_currency"`
	ShopNameWindow   int            `yaml:"shop_name_window"`
	TotalKeywords    []string       `yaml:"total_keywords"`
	DiscountKeywords []string       `yaml:"discount_keywords"`
	TitleMarkers     []string       `yaml:"title_markers"`
	CurrencyRules    []CurrencyRule `yaml:"currency_rules"`
}

// DefaultConfig returns the built-in keyword tables.
func DefaultConfig() Config {
	return Config{
		HomeCurrency:   "HKD",
		ShopNameWindow: 5,
		TotalKeywords: []string{
			"總額", "總數", "合計", "合 計", "합계", "합 계",
			"TOTAL", "TOTAL AMOUNT", "實際應付金額", "結算金額", "받을금액", "결제금액",
		},
		DiscountKeywords: []string{"折扣", "優惠", "Disc", "할인"},
		TitleMarkers:     []string{"收據", "RECEIPT", "영수증"},
		CurrencyRules: []CurrencyRule{
			{Currency: "KRW", Markers: []string{"KRW", "원", "브랜드"}},
			{Currency: "JPY", Markers: []string{"JPY", "円"}},
			{Currency: "TWD", Markers: []string{"TWD", "NT$"}},
			{Currency: "HKD", Markers: []string{"HKD", "$", "759", "惠康"}},
		},
	}
}

// LoadConfig reads a YAML file and merges it over DefaultConfig. Keyword lists
// in the file extend the defaults; currency rules from the file are tested
// before the built-in ones; scalar values replace the defaults when set.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading parser config: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("decoding parser config: %w", err)
	}

	return cfg.Merge(file), nil
}

// Merge returns a copy of c extended with the tables in other.
func (c Config) Merge(other Config) Config {
	out := Config{
		HomeCurrency:     c.HomeCurrency,
		ShopNameWindow:   c.ShopNameWindow,
		TotalKeywords:    appendUnique(nil, c.TotalKeywords, other.TotalKeywords),
		DiscountKeywords: appendUnique(nil, c.DiscountKeywords, other.DiscountKeywords),
		TitleMarkers:     appendUnique(nil, c.TitleMarkers, other.TitleMarkers),
	}
	if s := strings.ToUpper(strings.TrimSpace(other.HomeCurrency)); s != "" {
		out.HomeCurrency = s
	}
	if other.ShopNameWindow > 0 {
		out.ShopNameWindow = other.ShopNameWindow
	}
	out.CurrencyRules = append(out.CurrencyRules, other.CurrencyRules...)
	out.CurrencyRules = append(out.CurrencyRules, c.CurrencyRules...)
	return out
}

func appendUnique(dst []string, lists ...[]string) []string {
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}
