package inventory

import (
	"bytes"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

var _ = Describe("Backup", func() {
	var (
		env    *testEnv
		detail *InvoiceDetail
	)

	BeforeEach(func() {
		env = newTestEnv()
		env.setRates(map[string]string{"JPY": "0.052"})
		trip, err := env.service.CreateTrip(TripInput{Name: "Osaka", StartDate: "2024-03-10"})
		Expect(err).NotTo(HaveOccurred())
		detail = env.saveInvoice(InvoiceInput{
			TripID:   trip.ID,
			ShopName: "Don Quijote",
			Currency: "JPY",
			TxDate:   "2024-03-14",
			TxTime:   "18:20",
			Items:    []ItemInput{item("Green Tea", "640", 2), item("Soap", "298", 1)},
		})
	})

	Describe("Export", func() {
		It("should include every record and the settings", func() {
			backup, err := env.service.Export()
			Expect(err).NotTo(HaveOccurred())
			Expect(backup.Version).To(Equal(BackupVersion))
			Expect(backup.ExportedAt).To(BeTemporally("==", env.clock.now))
			Expect(backup.Trips).To(HaveLen(1))
			Expect(backup.Invoices).To(HaveLen(1))
			Expect(backup.Items).To(HaveLen(2))
			Expect(backup.Items[0].NameOriginal).To(Equal("Green Tea"))
			Expect(backup.Settings.ExchangeRates).To(HaveKey("JPY"))
		})
	})

	Describe("Import", func() {
		It("should restore an export into an empty database", func() {
			backup, err := env.service.Export()
			Expect(err).NotTo(HaveOccurred())
			data, err := json.Marshal(backup)
			Expect(err).NotTo(HaveOccurred())

			target := newTestEnv()
			var restored Backup
			Expect(json.Unmarshal(data, &restored)).To(Succeed())
			Expect(target.service.Import(&restored)).To(Succeed())

			saved, err := target.service.GetInvoice(detail.Invoice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Items).To(HaveLen(2))
			Expect(saved.Trip.Name).To(Equal("Osaka"))
			Expect(saved.Invoice.TotalAmountHome).To(decimalEqual("82.06"))

			settings, err := target.service.GetSettings()
			Expect(err).NotTo(HaveOccurred())
			Expect(settings.ExchangeRates).To(HaveKey("JPY"))
		})

		It("should merge with existing records", func() {
			Expect(env.service.Import(&Backup{
				Version: BackupVersion,
				Trips:   []*Trip{{ID: "other", Name: "Seoul"}},
			})).To(Succeed())

			trips, err := env.service.ListTrips()
			Expect(err).NotTo(HaveOccurred())
			Expect(trips).To(HaveLen(2))
		})

		It("should default a missing item status", func() {
			Expect(env.service.Import(&Backup{
				Items: []*Item{{ID: "x", InvoiceID: detail.Invoice.ID, NameOriginal: "Gum"}},
			})).To(Succeed())

			item, err := env.service.GetItem("x")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Status).To(Equal(StatusUnopened))
		})

		DescribeTable("rejects an invalid backup without writing",
			func(backup *Backup) {
				err := env.service.Import(backup)
				Expect(errors.Is(err, ErrInvalid)).To(BeTrue())

				trips, listErr := env.service.ListTrips()
				Expect(listErr).NotTo(HaveOccurred())
				Expect(trips).To(HaveLen(1))
			},
			Entry("nil backup", nil),
			Entry("newer version", &Backup{Version: BackupVersion + 1}),
			Entry("trip without name", &Backup{Trips: []*Trip{{ID: "t"}, {ID: "u", Name: "ok"}}}),
			Entry("invoice with bad date", &Backup{
				Trips:    []*Trip{{ID: "u", Name: "ok"}},
				Invoices: []*Invoice{{ID: "i", TxDate: "14/03/2024"}},
			}),
			Entry("item with unknown status", &Backup{
				Trips: []*Trip{{ID: "u", Name: "ok"}},
				Items: []*Item{{ID: "x", InvoiceID: "i", Status: "lost"}},
			}),
			Entry("bad home currency", &Backup{
				Trips:    []*Trip{{ID: "u", Name: "ok"}},
				Settings: &Settings{HomeCurrency: "HONGKONG"},
			}),
		)
	})

	Describe("ExportXLSX", func() {
		It("should write items, invoices and trips sheets", func() {
			var buf bytes.Buffer
			Expect(env.service.ExportXLSX(&buf)).To(Succeed())

			f, err := excelize.OpenReader(&buf)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			Expect(f.GetSheetList()).To(Equal([]string{"Items", "Invoices", "Trips"}))

			items, err := f.GetRows("Items")
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(3))
			Expect(items[0][0]).To(Equal("Date"))
			Expect(items[1][:4]).To(Equal([]string{"2024-03-14", "Don Quijote", "Osaka", "Green Tea"}))

			invoices, err := f.GetRows("Invoices")
			Expect(err).NotTo(HaveOccurred())
			Expect(invoices).To(HaveLen(2))
			Expect(invoices[1][2]).To(Equal("Don Quijote"))

			trips, err := f.GetRows("Trips")
			Expect(err).NotTo(HaveOccurred())
			Expect(trips[1][0]).To(Equal("Osaka"))
		})
	})
})
