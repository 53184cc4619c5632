package interpret

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FieldExtractor", func() {
	var fields *FieldExtractor

	BeforeEach(func() {
		fields = NewFieldExtractor(DefaultConfig(), fixedTime{testNow})
	})

	Describe("Date", func() {
		DescribeTable("finding the transaction date",
			func(text, expected string, source Provenance) {
				date, src := fields.Date(text)
				Expect(date).To(Equal(expected))
				Expect(src).To(Equal(source))
			},
			Entry("year first with dashes", "Date 2024-03-15", "2024-03-15", Matched),
			Entry("year first with slashes and short parts", "2024/3/5 10:00", "2024-03-05", Matched),
			Entry("day first", "15/03/2024", "2024-03-15", Matched),
			Entry("day first with single digits", "1-2-2024", "2024-02-01", Matched),
			Entry("earliest match wins", "1-2-2024 printed 2023-12-31", "2024-02-01", Matched),
			Entry("skips impossible dates", "2024-13-45 then 2024-01-02", "2024-01-02", Matched),
			Entry("no date defaults to today", "no date here", "2025-06-01", Defaulted),
		)
	})

	Describe("Time", func() {
		DescribeTable("finding the transaction time",
			func(text, expected string, source Provenance) {
				tm, src := fields.Time(text)
				Expect(tm).To(Equal(expected))
				Expect(src).To(Equal(source))
			},
			Entry("hours and minutes", "14:30", "14:30", Matched),
			Entry("seconds are dropped", "2024-03-15 14:30:59", "14:30", Matched),
			Entry("single digit hour is padded", "at 9:05", "09:05", Matched),
			Entry("no time defaults to now", "nothing", "08:15", Defaulted),
			Entry("hour out of range is not a time", "24:30", "08:15", Defaulted),
			Entry("digits before the hour disqualify a match", "TABLE 123:45\n19:02", "19:02", Matched),
		)
	})

	Describe("Tel", func() {
		DescribeTable("finding the phone number",
			func(text, expected string) {
				tel, _ := fields.Tel(text)
				Expect(tel).To(Equal(expected))
			},
			Entry("labelled", "Tel: 2345 6789", "2345 6789"),
			Entry("chinese label", "電話 2771-0000", "2771-0000"),
			Entry("labelled wins over unlabelled", "call 02-1234-5678\nTEL: 2771 0000", "2771 0000"),
			Entry("unlabelled dash grouped", "02-1234-5678", "02-1234-5678"),
			Entry("nothing", "ACME MART", ""),
			Entry("label inside a word", "HOTEL\n12345678 Cola", ""),
			Entry("label does not reach the next line", "TEL:\n2345 6789", ""),
		)
	})

	Describe("Currency", func() {
		DescribeTable("detecting the currency",
			func(text, home, expected string, source Provenance) {
				currency, src := fields.Currency(text, home)
				Expect(currency).To(Equal(expected))
				Expect(src).To(Equal(source))
			},
			Entry("korean won", "합계 5,000원", "", "KRW", Matched),
			Entry("japanese yen", "合計 1,200円", "", "JPY", Matched),
			Entry("taiwan dollar beats the generic dollar sign", "NT$ 350", "", "TWD", Matched),
			Entry("dollar sign", "$ 20.00", "", "HKD", Matched),
			Entry("store brand marker", "惠康超級市場", "", "HKD", Matched),
			Entry("home currency when nothing matches", "nothing", "jpy", "JPY", Defaulted),
			Entry("configured default without a home currency", "nothing", "", "HKD", Defaulted),
		)
	})

	Describe("ShopName", func() {
		var (
			lines []string
			name  string
			index int
		)

		JustBeforeEach(func() {
			name, index = fields.ShopName(lines)
		})

		When("the header has titles, dates and labels first", func() {
			BeforeEach(func() {
				lines = []string{"收據", "12", "2024-03-15", "Tel: 2345 6789", "ACME MART"}
			})

			It("should pick the first plausible line", func() {
				Expect(name).To(Equal("ACME MART"))
				Expect(index).To(Equal(4))
			})
		})

		When("the only plausible line is beyond the lookahead window", func() {
			BeforeEach(func() {
				lines = []string{"收據", "12", "2024-03-15", "Tel: 2345 6789", "10:00", "ACME MART"}
			})

			It("should return the unknown shop sentinel", func() {
				Expect(name).To(Equal(UnknownShop))
				Expect(index).To(Equal(-1))
			})
		})

		When("there are no lines", func() {
			BeforeEach(func() {
				lines = nil
			})

			It("should return the unknown shop sentinel", func() {
				Expect(name).To(Equal(UnknownShop))
			})
		})
	})
})
