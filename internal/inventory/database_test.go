package inventory

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/travel-inventory/internal/money"
)

var _ = Describe("BoltDB", func() {
	var (
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("trips", func() {
		It("should round-trip a trip", func() {
			trip := &Trip{ID: "t1", Name: "Osaka", StartDate: "2024-03-10", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
			Expect(db.SaveTrip(trip)).To(Succeed())

			saved, err := db.GetTrip("t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Name).To(Equal("Osaka"))
			Expect(saved.CreatedAt.Equal(trip.CreatedAt)).To(BeTrue())
		})

		It("should return ErrNotFound for a missing trip", func() {
			_, err := db.GetTrip("nope")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})

		It("should list and delete trips", func() {
			Expect(db.SaveTrip(&Trip{ID: "t1", Name: "Osaka"})).To(Succeed())
			Expect(db.SaveTrip(&Trip{ID: "t2", Name: "Seoul"})).To(Succeed())
			Expect(db.DeleteTrip("t1")).To(Succeed())

			trips, err := db.ListTrips()
			Expect(err).NotTo(HaveOccurred())
			Expect(trips).To(HaveLen(1))
			Expect(trips[0].ID).To(Equal("t2"))
		})
	})

	Describe("invoices", func() {
		BeforeEach(func() {
			Expect(db.SaveInvoice(&Invoice{ID: "i1", TripID: "t1", ShopName: "A", TotalAmount: decimal.RequireFromString("12.50")})).To(Succeed())
			Expect(db.SaveInvoice(&Invoice{ID: "i2", TripID: "t1", ShopName: "B"})).To(Succeed())
			Expect(db.SaveInvoice(&Invoice{ID: "i3", ShopName: "C"})).To(Succeed())
		})

		It("should keep decimal amounts exact", func() {
			inv, err := db.GetInvoice("i1")
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.TotalAmount.Equal(decimal.RequireFromString("12.5"))).To(BeTrue())
		})

		It("should list invoices by trip", func() {
			invoices, err := db.ListInvoicesByTrip("t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(invoices).To(HaveLen(2))
		})

		It("should not match a trip ID that is a prefix of another", func() {
			Expect(db.SaveInvoice(&Invoice{ID: "i4", TripID: "t10"})).To(Succeed())
			invoices, err := db.ListInvoicesByTrip("t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(invoices).To(HaveLen(2))
		})

		It("should move an invoice between trip indexes when re-saved", func() {
			inv, err := db.GetInvoice("i1")
			Expect(err).NotTo(HaveOccurred())
			inv.TripID = "t2"
			Expect(db.SaveInvoice(inv)).To(Succeed())

			t1, err := db.ListInvoicesByTrip("t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(t1).To(HaveLen(1))
			t2, err := db.ListInvoicesByTrip("t2")
			Expect(err).NotTo(HaveOccurred())
			Expect(t2).To(HaveLen(1))
		})

		It("should remove the index entry on delete", func() {
			Expect(db.DeleteInvoice("i1")).To(Succeed())
			invoices, err := db.ListInvoicesByTrip("t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(invoices).To(HaveLen(1))

			all, err := db.ListInvoices()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})

		It("should return ErrNotFound when deleting a missing invoice", func() {
			Expect(errors.Is(db.DeleteInvoice("nope"), ErrNotFound)).To(BeTrue())
		})
	})

	Describe("items", func() {
		BeforeEach(func() {
			Expect(db.SaveItem(&Item{ID: "a", InvoiceID: "i1", Type: "food", Status: StatusUnopened})).To(Succeed())
			Expect(db.SaveItem(&Item{ID: "b", InvoiceID: "i1", Type: "medicine", Status: StatusOpened})).To(Succeed())
			Expect(db.SaveItem(&Item{ID: "c", InvoiceID: "i2", Type: "food", Status: StatusUnopened})).To(Succeed())
		})

		It("should list items by invoice", func() {
			items, err := db.ListItemsByInvoice("i1")
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
		})

		It("should list items by type", func() {
			items, err := db.ListItemsByType("food")
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
		})

		It("should follow status changes in the status index", func() {
			item, err := db.GetItem("a")
			Expect(err).NotTo(HaveOccurred())
			item.Status = StatusUsedUp
			Expect(db.SaveItem(item)).To(Succeed())

			unopened, err := db.ListItemsByStatus(StatusUnopened)
			Expect(err).NotTo(HaveOccurred())
			Expect(unopened).To(HaveLen(1))
			Expect(unopened[0].ID).To(Equal("c"))

			usedUp, err := db.ListItemsByStatus(StatusUsedUp)
			Expect(err).NotTo(HaveOccurred())
			Expect(usedUp).To(HaveLen(1))
		})

		It("should remove every index entry on delete", func() {
			Expect(db.DeleteItem("b")).To(Succeed())

			byInvoice, err := db.ListItemsByInvoice("i1")
			Expect(err).NotTo(HaveOccurred())
			Expect(byInvoice).To(HaveLen(1))
			opened, err := db.ListItemsByStatus(StatusOpened)
			Expect(err).NotTo(HaveOccurred())
			Expect(opened).To(BeEmpty())
			medicine, err := db.ListItemsByType("medicine")
			Expect(err).NotTo(HaveOccurred())
			Expect(medicine).To(BeEmpty())
		})

		It("should return an empty list for an unknown index value", func() {
			items, err := db.ListItemsByInvoice("none")
			Expect(err).NotTo(HaveOccurred())
			Expect(items).NotTo(BeNil())
			Expect(items).To(BeEmpty())
		})
	})

	Describe("settings", func() {
		It("should return ErrNotFound for an unset key", func() {
			var home string
			Expect(errors.Is(db.GetSetting(settingHomeCurrency, &home), ErrNotFound)).To(BeTrue())
		})

		It("should round-trip a value", func() {
			rates := money.Rates{"JPY": decimal.RequireFromString("0.052")}
			Expect(db.SetSetting(settingExchangeRates, rates)).To(Succeed())

			var got money.Rates
			Expect(db.GetSetting(settingExchangeRates, &got)).To(Succeed())
			Expect(got["JPY"].Equal(rates["JPY"])).To(BeTrue())
		})
	})

	Describe("Import", func() {
		BeforeEach(func() {
			Expect(db.SaveItem(&Item{ID: "a", InvoiceID: "i1", Type: "food", Status: StatusUnopened})).To(Succeed())
		})

		It("should upsert records and keep the rest", func() {
			err := db.Import(&Backup{
				Trips:    []*Trip{{ID: "t1", Name: "Osaka"}},
				Invoices: []*Invoice{{ID: "i1", TripID: "t1"}},
				Items: []*Item{
					{ID: "a", InvoiceID: "i1", Type: "food", Status: StatusUsedUp},
					{ID: "b", InvoiceID: "i1", Type: "food", Status: StatusUnopened},
				},
				Settings: &Settings{HomeCurrency: "JPY", ExchangeRates: money.Rates{}},
			})
			Expect(err).NotTo(HaveOccurred())

			items, err := db.ListItems()
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))

			unopened, err := db.ListItemsByStatus(StatusUnopened)
			Expect(err).NotTo(HaveOccurred())
			Expect(unopened).To(HaveLen(1))

			byTrip, err := db.ListInvoicesByTrip("t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(byTrip).To(HaveLen(1))

			var home string
			Expect(db.GetSetting(settingHomeCurrency, &home)).To(Succeed())
			Expect(home).To(Equal("JPY"))
		})
	})

	Describe("persistence", func() {
		It("should keep records across reopen", func() {
			Expect(db.SaveTrip(&Trip{ID: "t1", Name: "Osaka"})).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			trip, err := db.GetTrip("t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(trip.Name).To(Equal("Osaka"))
		})
	})
})
