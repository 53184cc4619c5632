package interpret

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	datePattern   = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})|(\d{1,2})[-/](\d{1,2})[-/](\d{4})`)
	timePattern   = regexp.MustCompile(`(?:^|\D)([01]?[0-9]|2[0-3]):([0-5][0-9])(?::[0-5][0-9])?(?:\D|$)`)
	labelledTel   = regexp.MustCompile(`(?:\b(?:Tel|TEL)|電話)[: \t]*([\d\-() ]{8,15})`)
	unlabelledTel = regexp.MustCompile(`\d{2,3}-\d{3,4}-\d{4}`)
	fourDigitRun  = regexp.MustCompile(`\d{4}`)
)

const minShopNameRunes = 3

// Metadata is what the FieldExtractor finds in a receipt, independent of its
// line items.
type Metadata struct {
	ShopName string
	Tel      string
	TxDate   string
	TxTime   string
	Currency string
	Sources  Sources

	// consumed holds the indexes of lines already used for a field (the phone
	// line), so the line-item parser does not read them again.
	consumed map[int]bool
}

// FieldExtractor finds shop and transaction metadata in recognized text.
// Every method degrades to a default instead of failing.
type FieldExtractor struct {
	cfg   Config
	clock TimeSource
}

// NewFieldExtractor creates a FieldExtractor for the given tables and clock
func NewFieldExtractor(cfg Config, clock TimeSource) *FieldExtractor {
	if clock == nil {
		clock = SystemTime{}
	}
	return &FieldExtractor{cfg: cfg, clock: clock}
}

// Extract runs every field extractor over text.
func (f *FieldExtractor) Extract(text RecognizedText, homeCurrency string) Metadata {
	meta := Metadata{consumed: map[int]bool{}}
	meta.TxDate, meta.Sources.TxDate = f.Date(text.Raw)
	meta.TxTime, meta.Sources.TxTime = f.Time(text.Raw)
	var telLine int
	meta.Tel, meta.Sources.Tel, telLine = f.findTel(text.Lines)
	meta.Currency, meta.Sources.Currency = f.Currency(text.Raw, homeCurrency)

	var shopLine int
	meta.ShopName, shopLine = f.ShopName(text.Lines)
	meta.Sources.ShopName = Defaulted
	if shopLine >= 0 {
		meta.Sources.ShopName = Matched
	}
	if telLine >= 0 {
		meta.consumed[telLine] = true
	}
	return meta
}

// Date returns the first year-first or day-first date in text as YYYY-MM-DD,
// or today's date from the clock. Matches that are not calendar dates, such
// as 2024-13-45, are passed over.
func (f *FieldExtractor) Date(text string) (string, Provenance) {
	for _, m := range datePattern.FindAllStringSubmatch(text, -1) {
		var date string
		if m[1] != "" {
			date = isoDate(m[1], m[2], m[3])
		} else {
			date = isoDate(m[6], m[5], m[4])
		}
		if _, err := time.Parse(dateLayout, date); err == nil {
			return date, Matched
		}
	}
	return f.clock.Now().Format(dateLayout), Defaulted
}

// Time returns the first 24-hour H:MM or H:MM:SS time in text as HH:MM, or the
// current time from the clock. Digits run into the time, as in 24:30 or
// 123:45, disqualify it.
func (f *FieldExtractor) Time(text string) (string, Provenance) {
	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return f.clock.Now().Format(timeLayout), Defaulted
	}
	hour := m[1]
	if len(hour) == 1 {
		hour = "0" + hour
	}
	return hour + ":" + m[2], Matched
}

// Tel prefers a number after a Tel/電話 label over a bare dash-grouped number.
// Neither form spans lines.
func (f *FieldExtractor) Tel(text string) (string, Provenance) {
	tel, src, _ := f.findTel(strings.Split(text, "\n"))
	return tel, src
}

// findTel also returns the index of the line the number was read from, or -1.
func (f *FieldExtractor) findTel(lines []string) (string, Provenance, int) {
	for i, line := range lines {
		if m := labelledTel.FindStringSubmatch(line); m != nil {
			if tel := strings.TrimSpace(m[1]); len(tel) >= 8 {
				return tel, Matched, i
			}
		}
	}
	for i, line := range lines {
		if m := unlabelledTel.FindString(line); m != "" {
			return m, Matched, i
		}
	}
	return "", Defaulted, -1
}

// Currency returns the currency of the first rule with a marker present in
// text, or homeCurrency (then the configured home currency) when none match.
func (f *FieldExtractor) Currency(text, homeCurrency string) (string, Provenance) {
	for _, rule := range f.cfg.CurrencyRules {
		for _, marker := range rule.Markers {
			if marker != "" && strings.Contains(text, marker) {
				return rule.Currency, Matched
			}
		}
	}
	if homeCurrency = strings.ToUpper(strings.TrimSpace(homeCurrency)); homeCurrency != "" {
		return homeCurrency, Defaulted
	}
	return f.cfg.HomeCurrency, Defaulted
}

// ShopName picks the first header line that looks like a name rather than a
// date, phone number, labelled field or receipt title. It returns the line
// index, or -1 with UnknownShop.
func (f *FieldExtractor) ShopName(lines []string) (string, int) {
	window := f.cfg.ShopNameWindow
	if window <= 0 || window > len(lines) {
		window = len(lines)
	}
	for i, line := range lines[:window] {
		if utf8.RuneCountInString(line) < minShopNameRunes {
			continue
		}
		if fourDigitRun.MatchString(line) || strings.Contains(line, ":") || f.isTitle(line) {
			continue
		}
		return line, i
	}
	return UnknownShop, -1
}

func (f *FieldExtractor) isTitle(line string) bool {
	upper := strings.ToUpper(line)
	for _, marker := range f.cfg.TitleMarkers {
		if strings.Contains(upper, strings.ToUpper(marker)) {
			return true
		}
	}
	return false
}
