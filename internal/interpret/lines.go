package interpret

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	// <name> <unit price> <qty> <line total>
	structuredPattern = regexp.MustCompile(`^(.*?)\s+([\d,]+\.?\d*)\s+(\d+)\s+([\d,]+\.?\d*)$`)
	// [qty] X|@ [qty] <unit price> <line total>, e.g. "X 2 45.80 91.60" or "2 @ 13.90 27.80"
	multiplierPattern = regexp.MustCompile(`(?i)^(?:(\d+)\s*)?[X×@]\s*(?:(\d+)\s+)?\$?\s*([\d,]+\.?\d*)\s+\$?\s*([\d,]+\.?\d*)$`)
	negativeTail      = regexp.MustCompile(`(?:^|\s)(-\s?[\d,]+\.?\d*)$`)
	fallbackDecimal   = regexp.MustCompile(`^(.*?)\s+([\d,]+\.\d{2,})$`)
	fallbackInteger   = regexp.MustCompile(`^(.*?)\s+([\d,]{4,10})$`)
)

const minFallbackNameRunes = 3

// lineRule classifies one line. apply reports whether the rule claimed the
// line; a claimed line is not offered to later rules.
type lineRule struct {
	name  string
	apply func(p *lineParse, i int) bool
}

// LineParser walks recognized text once, classifying each line as a total,
// discount or item line.
type LineParser struct {
	totalKeywords   []string
	discountPattern *regexp.Regexp
	rules           []lineRule
}

// NewLineParser builds the ordered rule list from the keyword tables in cfg.
func NewLineParser(cfg Config) *LineParser {
	p := &LineParser{}
	for _, kw := range cfg.TotalKeywords {
		p.totalKeywords = append(p.totalKeywords, strings.ToUpper(kw))
	}

	// discount keywords are case-sensitive and Latin ones must start a word
	quoted := make([]string, 0, len(cfg.DiscountKeywords))
	for _, kw := range cfg.DiscountKeywords {
		q := regexp.QuoteMeta(kw)
		if startsWithASCIILetter(kw) {
			q = `\b` + q
		}
		quoted = append(quoted, q)
	}
	if len(quoted) > 0 {
		p.discountPattern = regexp.MustCompile(`(?:` + strings.Join(quoted, "|") + `).*?(-?[\d,]+\.?\d*)$`)
	}

	p.rules = []lineRule{
		{name: "total", apply: applyTotal},
		{name: "discount", apply: applyDiscount},
		{name: "structured", apply: applyStructured},
		{name: "multiplier", apply: applyMultiplier},
	}
	return p
}

// LineResult is what a single pass over the lines produced.
type LineResult struct {
	Items        []ParsedItem
	Total        decimal.Decimal
	TotalFound   bool
	UsedFallback bool
}

// lineParse is the state of one Parse call.
type lineParse struct {
	parser *LineParser
	lines  []string
	skip   map[int]bool
	result LineResult
}

// Parse classifies lines in order. Lines whose index is in skip were already
// claimed elsewhere and are ignored. When nothing matched an item rule, a
// second single-column pass is tried.
func (p *LineParser) Parse(lines []string, skip map[int]bool) LineResult {
	st := &lineParse{parser: p, lines: lines, skip: make(map[int]bool, len(skip))}
	for i := range skip {
		st.skip[i] = true
	}

	for i := range lines {
		if st.skip[i] {
			continue
		}
		for _, rule := range p.rules {
			if rule.apply(st, i) {
				break
			}
		}
	}

	if len(st.result.Items) == 0 {
		st.fallback()
	}
	return st.result
}

// RuleNames lists the item-pass rules in evaluation order.
func (p *LineParser) RuleNames() []string {
	names := make([]string, 0, len(p.rules))
	for _, r := range p.rules {
		names = append(names, r.name)
	}
	return names
}

// IsTotalLine reports whether line carries a total keyword.
func (p *LineParser) IsTotalLine(line string) bool {
	upper := strings.ToUpper(line)
	for _, kw := range p.totalKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func startsWithASCIILetter(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func applyTotal(p *lineParse, i int) bool {
	line := p.lines[i]
	if !p.parser.IsTotalLine(line) {
		return false
	}

	if amount, ok := trailingAmount(line); ok {
		p.setTotal(amount)
		return true
	}
	if trailingNumberPattern.MatchString(line) {
		// a trailing token exists but is malformed, e.g. "TOTAL ,"
		return true
	}

	next := i + 1
	if next < len(p.lines) && !p.skip[next] {
		if amount, ok := trailingAmount(p.lines[next]); ok {
			p.setTotal(amount)
			p.skip[next] = true
		}
	}
	return true
}

func applyDiscount(p *lineParse, i int) bool {
	line := p.lines[i]

	var token string
	if m := negativeTail.FindStringSubmatch(line); m != nil {
		token = m[1]
	} else if p.parser.discountPattern != nil {
		if m := p.parser.discountPattern.FindStringSubmatch(line); m != nil {
			token = m[1]
		}
	}
	if token == "" {
		return false
	}

	amount, ok := parseAmount(token)
	if !ok {
		return false
	}
	if n := len(p.result.Items); n > 0 {
		p.result.Items[n-1].Discount = amount
	}
	return true
}

func applyStructured(p *lineParse, i int) bool {
	line := p.lines[i]
	if multiplierPattern.MatchString(line) {
		return false
	}
	m := structuredPattern.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	price, ok := parseAmount(m[2])
	if !ok {
		return false
	}
	return p.addItem(m[1], price, parseQty(m[3]))
}

func applyMultiplier(p *lineParse, i int) bool {
	if i == 0 {
		return false
	}
	m := multiplierPattern.FindStringSubmatch(p.lines[i])
	if m == nil {
		return false
	}
	price, ok := parseAmount(m[3])
	if !ok {
		return false
	}
	qty := m[1]
	if qty == "" {
		qty = m[2]
	}
	return p.addItem(p.lines[i-1], price, parseQty(qty))
}

// fallback accepts "<name> <amount>" lines when the receipt layout matched
// none of the item rules.
func (p *lineParse) fallback() {
	for i, line := range p.lines {
		if p.skip[i] {
			continue
		}
		m := fallbackDecimal.FindStringSubmatch(line)
		if m == nil {
			m = fallbackInteger.FindStringSubmatch(line)
		}
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if utf8.RuneCountInString(name) < minFallbackNameRunes {
			continue
		}
		price, ok := parseAmount(m[2])
		if !ok {
			continue
		}
		if p.addItem(name, price, 1) {
			p.result.UsedFallback = true
		}
	}
}

func (p *lineParse) setTotal(amount decimal.Decimal) {
	p.result.Total = amount
	p.result.TotalFound = true
}

// addItem appends an item unless its name is empty or a total keyword line.
func (p *lineParse) addItem(name string, price decimal.Decimal, qty int) bool {
	name = strings.TrimSpace(name)
	if name == "" || p.parser.IsTotalLine(name) {
		return false
	}
	p.result.Items = append(p.result.Items, ParsedItem{
		Name:     name,
		Price:    price,
		Qty:      qty,
		Discount: decimal.Zero,
		Type:     DefaultItemType,
	})
	return true
}
