package scanning

import "github.com/zombor/travel-inventory/internal/interpret"

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt reads a receipt image/PDF and returns its structured contents.
	// Fields the recognizer could not read carry interpret's defaults; the
	// currency default is the interpreter's configured home currency.
	ScanReceipt(imageData []byte, contentType string) (*interpret.ParsedReceipt, error)
	// Close closes the scanner and releases resources
	Close() error
}
