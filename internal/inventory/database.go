package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	tripsBucket    = "trips"
	invoicesBucket = "invoices"
	itemsBucket    = "items"
	settingsBucket = "settings"

	invoicesByTrip    = "invoices_by_trip"
	itemsByInvoice    = "items_by_invoice"
	itemsByStatus     = "items_by_status"
	itemsByType       = "items_by_type"
	indexKeySeparator = "\x00"

	settingHomeCurrency  = "home_currency"
	settingGeminiModel   = "gemini_model"
	settingExchangeRates = "exchange_rates"
)

var allBuckets = []string{
	tripsBucket, invoicesBucket, itemsBucket, settingsBucket,
	invoicesByTrip, itemsByInvoice, itemsByStatus, itemsByType,
}

// DB defines the interface for database operations
type DB interface {
	SaveTrip(trip *Trip) error
	GetTrip(id string) (*Trip, error)
	ListTrips() ([]*Trip, error)
	DeleteTrip(id string) error

	SaveInvoice(invoice *Invoice) error
	GetInvoice(id string) (*Invoice, error)
	ListInvoices() ([]*Invoice, error)
	ListInvoicesByTrip(tripID string) ([]*Invoice, error)
	DeleteInvoice(id string) error

	SaveItem(item *Item) error
	GetItem(id string) (*Item, error)
	ListItems() ([]*Item, error)
	ListItemsByInvoice(invoiceID string) ([]*Item, error)
	ListItemsByStatus(status ItemStatus) ([]*Item, error)
	ListItemsByType(itemType string) ([]*Item, error)
	DeleteItem(id string) error

	// GetSetting decodes the stored value of key into v. It returns
	// ErrNotFound when the key was never set.
	GetSetting(key string, v any) error
	SetSetting(key string, v any) error

	// Import upserts every record of b in one transaction
	Import(b *Backup) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB. Records are stored as JSON
// keyed by ID; index buckets hold "<value>\x00<id>" keys with empty values.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func indexKey(value, id string) []byte {
	return []byte(value + indexKeySeparator + id)
}

func putJSON(tx *bbolt.Tx, bucket, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s record: %w", bucket, err)
	}
	return tx.Bucket([]byte(bucket)).Put([]byte(id), data)
}

func getJSON[T any](tx *bbolt.Tx, bucket, id string) (*T, error) {
	data := tx.Bucket([]byte(bucket)).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("%s %s: %w", bucket, id, ErrNotFound)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshaling %s record: %w", bucket, err)
	}
	return &v, nil
}

func listJSON[T any](tx *bbolt.Tx, bucket string) ([]*T, error) {
	out := make([]*T, 0)
	err := tx.Bucket([]byte(bucket)).ForEach(func(_, data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("unmarshaling %s record: %w", bucket, err)
		}
		out = append(out, &v)
		return nil
	})
	return out, err
}

// listIndexed returns the records of bucket whose index value equals value
func listIndexed[T any](tx *bbolt.Tx, index, value, bucket string) ([]*T, error) {
	out := make([]*T, 0)
	prefix := []byte(value + indexKeySeparator)
	c := tx.Bucket([]byte(index)).Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		v, err := getJSON[T](tx, bucket, string(k[len(prefix):]))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func putIndex(tx *bbolt.Tx, index, value, id string) error {
	if value == "" {
		return nil
	}
	return tx.Bucket([]byte(index)).Put(indexKey(value, id), []byte{})
}

func deleteIndex(tx *bbolt.Tx, index, value, id string) error {
	if value == "" {
		return nil
	}
	return tx.Bucket([]byte(index)).Delete(indexKey(value, id))
}

// SaveTrip saves a trip to the database
func (b *BoltDB) SaveTrip(trip *Trip) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, tripsBucket, trip.ID, trip)
	})
}

// GetTrip retrieves a trip by ID
func (b *BoltDB) GetTrip(id string) (*Trip, error) {
	var trip *Trip
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		trip, err = getJSON[Trip](tx, tripsBucket, id)
		return err
	})
	return trip, err
}

// ListTrips returns all trips
func (b *BoltDB) ListTrips() ([]*Trip, error) {
	var trips []*Trip
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		trips, err = listJSON[Trip](tx, tripsBucket)
		return err
	})
	return trips, err
}

// DeleteTrip removes a trip. Invoices that referenced it are not touched.
func (b *BoltDB) DeleteTrip(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(tripsBucket)).Delete([]byte(id))
	})
}

// SaveInvoice saves an invoice and maintains the trip index
func (b *BoltDB) SaveInvoice(invoice *Invoice) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return saveInvoice(tx, invoice)
	})
}

func saveInvoice(tx *bbolt.Tx, invoice *Invoice) error {
	if old, err := getJSON[Invoice](tx, invoicesBucket, invoice.ID); err == nil {
		if err := deleteIndex(tx, invoicesByTrip, old.TripID, old.ID); err != nil {
			return err
		}
	}
	if err := putJSON(tx, invoicesBucket, invoice.ID, invoice); err != nil {
		return err
	}
	return putIndex(tx, invoicesByTrip, invoice.TripID, invoice.ID)
}

// GetInvoice retrieves an invoice by ID
func (b *BoltDB) GetInvoice(id string) (*Invoice, error) {
	var invoice *Invoice
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		invoice, err = getJSON[Invoice](tx, invoicesBucket, id)
		return err
	})
	return invoice, err
}

// ListInvoices returns all invoices
func (b *BoltDB) ListInvoices() ([]*Invoice, error) {
	var invoices []*Invoice
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		invoices, err = listJSON[Invoice](tx, invoicesBucket)
		return err
	})
	return invoices, err
}

// ListInvoicesByTrip returns the invoices of a trip
func (b *BoltDB) ListInvoicesByTrip(tripID string) ([]*Invoice, error) {
	var invoices []*Invoice
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		invoices, err = listIndexed[Invoice](tx, invoicesByTrip, tripID, invoicesBucket)
		return err
	})
	return invoices, err
}

// DeleteInvoice removes an invoice and its index entry. Items are not touched.
func (b *BoltDB) DeleteInvoice(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		old, err := getJSON[Invoice](tx, invoicesBucket, id)
		if err != nil {
			return err
		}
		if err := deleteIndex(tx, invoicesByTrip, old.TripID, id); err != nil {
			return err
		}
		return tx.Bucket([]byte(invoicesBucket)).Delete([]byte(id))
	})
}

func itemIndexes(item *Item) map[string]string {
	return map[string]string{
		itemsByInvoice: item.InvoiceID,
		itemsByStatus:  string(item.Status),
		itemsByType:    item.Type,
	}
}

// SaveItem saves an item and maintains the invoice, status and type indexes
func (b *BoltDB) SaveItem(item *Item) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return saveItem(tx, item)
	})
}

func saveItem(tx *bbolt.Tx, item *Item) error {
	if old, err := getJSON[Item](tx, itemsBucket, item.ID); err == nil {
		for index, value := range itemIndexes(old) {
			if err := deleteIndex(tx, index, value, old.ID); err != nil {
				return err
			}
		}
	}
	if err := putJSON(tx, itemsBucket, item.ID, item); err != nil {
		return err
	}
	for index, value := range itemIndexes(item) {
		if err := putIndex(tx, index, value, item.ID); err != nil {
			return err
		}
	}
	return nil
}

// GetItem retrieves an item by ID
func (b *BoltDB) GetItem(id string) (*Item, error) {
	var item *Item
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		item, err = getJSON[Item](tx, itemsBucket, id)
		return err
	})
	return item, err
}

// ListItems returns all items
func (b *BoltDB) ListItems() ([]*Item, error) {
	var items []*Item
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		items, err = listJSON[Item](tx, itemsBucket)
		return err
	})
	return items, err
}

func (b *BoltDB) listItemsBy(index, value string) ([]*Item, error) {
	var items []*Item
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		items, err = listIndexed[Item](tx, index, value, itemsBucket)
		return err
	})
	return items, err
}

// ListItemsByInvoice returns the items of an invoice
func (b *BoltDB) ListItemsByInvoice(invoiceID string) ([]*Item, error) {
	return b.listItemsBy(itemsByInvoice, invoiceID)
}

// ListItemsByStatus returns the items with the given status
func (b *BoltDB) ListItemsByStatus(status ItemStatus) ([]*Item, error) {
	return b.listItemsBy(itemsByStatus, string(status))
}

// ListItemsByType returns the items of a category
func (b *BoltDB) ListItemsByType(itemType string) ([]*Item, error) {
	return b.listItemsBy(itemsByType, itemType)
}

// DeleteItem removes an item and its index entries
func (b *BoltDB) DeleteItem(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		old, err := getJSON[Item](tx, itemsBucket, id)
		if err != nil {
			return err
		}
		for index, value := range itemIndexes(old) {
			if err := deleteIndex(tx, index, value, id); err != nil {
				return err
			}
		}
		return tx.Bucket([]byte(itemsBucket)).Delete([]byte(id))
	})
}

// GetSetting decodes a stored setting into v
func (b *BoltDB) GetSetting(key string, v any) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(settingsBucket)).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("setting %s: %w", key, ErrNotFound)
		}
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("unmarshaling setting %s: %w", key, err)
		}
		return nil
	})
}

// SetSetting stores v as the value of key
func (b *BoltDB) SetSetting(key string, v any) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, settingsBucket, key, v)
	})
}

func putSettings(tx *bbolt.Tx, settings Settings) error {
	values := map[string]any{
		settingHomeCurrency:  settings.HomeCurrency,
		settingGeminiModel:   settings.GeminiModel,
		settingExchangeRates: settings.ExchangeRates,
	}
	for key, v := range values {
		if err := putJSON(tx, settingsBucket, key, v); err != nil {
			return err
		}
	}
	return nil
}

// Import upserts every record of the backup. Nothing is written if any record
// fails.
func (b *BoltDB) Import(backup *Backup) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		for _, trip := range backup.Trips {
			if err := putJSON(tx, tripsBucket, trip.ID, trip); err != nil {
				return err
			}
		}
		for _, invoice := range backup.Invoices {
			if err := saveInvoice(tx, invoice); err != nil {
				return err
			}
		}
		for _, item := range backup.Items {
			if err := saveItem(tx, item); err != nil {
				return err
			}
		}
		if backup.Settings != nil {
			return putSettings(tx, *backup.Settings)
		}
		return nil
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
