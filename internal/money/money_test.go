package money

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Money", func() {
	d := decimal.RequireFromString

	Describe("DecimalPlaces", func() {
		DescribeTable("minor units",
			func(code string, places int32) {
				Expect(DecimalPlaces(code)).To(Equal(places))
			},
			Entry("HKD", "HKD", int32(2)),
			Entry("JPY", "JPY", int32(0)),
			Entry("KRW", "krw", int32(0)),
			Entry("KWD", "KWD", int32(3)),
			Entry("unknown", "ZZZ", int32(2)),
		)
	})

	Describe("Round", func() {
		It("should round to the currency's minor unit", func() {
			Expect(Round(d("12.345"), "HKD").String()).To(Equal("12.35"))
			Expect(Round(d("149.5"), "JPY").String()).To(Equal("150"))
		})
	})

	Describe("Format", func() {
		It("should use the currency symbol", func() {
			Expect(Format(d("88"), "HKD")).To(ContainSubstring("88.00"))
			Expect(Format(d("300"), "JPY")).To(Equal("¥300"))
		})

		It("should fall back to the code for unknown currencies", func() {
			Expect(Format(d("1.5"), "zzz")).To(Equal("1.50 ZZZ"))
		})
	})

	Describe("LineTotal", func() {
		It("should subtract the discount from price times quantity", func() {
			Expect(LineTotal(d("5.00"), 2, d("1.50")).Equal(d("8.5"))).To(BeTrue())
		})
	})

	Describe("Rates", func() {
		var rates Rates

		BeforeEach(func() {
			rates = Rates{"JPY": d("0.052"), "KRW": d("0.0058")}
		})

		It("should convert with the stored rate", func() {
			amount, err := rates.Convert(d("300"), "jpy", "HKD")
			Expect(err).NotTo(HaveOccurred())
			Expect(amount.StringFixed(2)).To(Equal("15.60"))
		})

		It("should only round amounts already in the home currency", func() {
			amount, err := rates.Convert(d("10.005"), "HKD", "hkd")
			Expect(err).NotTo(HaveOccurred())
			Expect(amount.StringFixed(2)).To(Equal("10.01"))
		})

		It("should fail without a rate", func() {
			_, err := rates.Convert(d("1"), "TWD", "HKD")
			Expect(errors.Is(err, ErrNoRate)).To(BeTrue())
		})

		It("should normalize codes and drop unusable rates", func() {
			normalized := Rates{" twd ": d("0.24"), "USD": d("0"), "": d("1")}.Normalize()
			Expect(normalized).To(HaveLen(1))
			Expect(normalized).To(HaveKey("TWD"))
		})
	})
})
