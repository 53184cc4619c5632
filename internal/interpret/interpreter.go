// Package interpret turns noisy recognized receipt text into a structured
// receipt record.
//
// Interpretation never fails: every field has a documented default and lines
// that match no rule are ignored. An Interpreter holds only read-only tables,
// so one value may be shared by concurrent callers.
package interpret

// Interpreter combines a FieldExtractor and a LineParser.
type Interpreter struct {
	cfg    Config
	fields *FieldExtractor
	lines  *LineParser
}

// New creates an Interpreter from cfg. A nil clock reads the system time.
func New(cfg Config, clock TimeSource) *Interpreter {
	return &Interpreter{
		cfg:    cfg,
		fields: NewFieldExtractor(cfg, clock),
		lines:  NewLineParser(cfg),
	}
}

// Fields returns the metadata extractor used by the interpreter
func (in *Interpreter) Fields() *FieldExtractor {
	return in.fields
}

// Interpret extracts metadata and line items from raw recognized text.
// homeCurrency is used when no currency marker is found; an empty value falls
// back to the configured home currency.
func (in *Interpreter) Interpret(raw, homeCurrency string) *ParsedReceipt {
	text := NewRecognizedText(raw)
	meta := in.fields.Extract(text, homeCurrency)

	res := in.lines.Parse(text.Lines, meta.consumed)

	receipt := &ParsedReceipt{
		ShopName:    meta.ShopName,
		Tel:         meta.Tel,
		TxDate:      meta.TxDate,
		TxTime:      meta.TxTime,
		Currency:    meta.Currency,
		TotalAmount: res.Total,
		Items:       res.Items,
		Sources:     meta.Sources,
	}
	if receipt.Items == nil {
		receipt.Items = []ParsedItem{}
	}

	receipt.Sources.TotalAmount = Defaulted
	if res.TotalFound {
		receipt.Sources.TotalAmount = Matched
	}
	switch {
	case res.UsedFallback:
		receipt.Sources.Items = Fallback
	case len(res.Items) > 0:
		receipt.Sources.Items = Matched
	default:
		receipt.Sources.Items = Defaulted
	}
	return receipt
}
