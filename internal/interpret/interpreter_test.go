package interpret

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Interpreter", func() {
	var (
		interpreter *Interpreter
		raw         string
		home        string
		receipt     *ParsedReceipt
	)

	BeforeEach(func() {
		interpreter = New(DefaultConfig(), fixedTime{testNow})
		home = ""
	})

	JustBeforeEach(func() {
		receipt = interpreter.Interpret(raw, home)
	})

	When("the receipt has a header, one item and a total", func() {
		BeforeEach(func() {
			raw = "ACME MART\n2024-03-15 14:30\nCola  5.00  2  10.00\nTOTAL  10.00"
		})

		It("should extract the metadata", func() {
			Expect(receipt.ShopName).To(Equal("ACME MART"))
			Expect(receipt.TxDate).To(Equal("2024-03-15"))
			Expect(receipt.TxTime).To(Equal("14:30"))
			Expect(receipt.Tel).To(BeEmpty())
		})

		It("should fall back to the configured home currency", func() {
			Expect(receipt.Currency).To(Equal("HKD"))
			Expect(receipt.Sources.Currency).To(Equal(Defaulted))
		})

		It("should extract the item and total", func() {
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Name).To(Equal("Cola"))
			Expect(receipt.Items[0].Price.StringFixed(2)).To(Equal("5.00"))
			Expect(receipt.Items[0].Qty).To(Equal(2))
			Expect(receipt.Items[0].Discount.IsZero()).To(BeTrue())
			Expect(receipt.Items[0].Type).To(Equal("other"))
			Expect(receipt.TotalAmount.StringFixed(2)).To(Equal("10.00"))
		})

		It("should tag what was matched", func() {
			Expect(receipt.Sources).To(Equal(Sources{
				ShopName:    Matched,
				TxDate:      Matched,
				TxTime:      Matched,
				Tel:         Defaulted,
				Currency:    Defaulted,
				TotalAmount: Matched,
				Items:       Matched,
			}))
		})

		It("should produce the same result every time", func() {
			Expect(interpreter.Interpret(raw, home)).To(Equal(receipt))
		})
	})

	When("the caller passes a home currency", func() {
		BeforeEach(func() {
			raw = "ACME MART\nCola  5.00  2  10.00"
			home = "twd"
		})

		It("should use it", func() {
			Expect(receipt.Currency).To(Equal("TWD"))
		})
	})

	When("the total amount is on the line after the keyword", func() {
		BeforeEach(func() {
			raw = "ACME MART\nCola  5.00  2  10.00\n合計\n88.00"
		})

		It("should read it from the next line", func() {
			Expect(receipt.TotalAmount.StringFixed(2)).To(Equal("88.00"))
			Expect(receipt.Items).To(HaveLen(1))
		})
	})

	When("a discount follows an item", func() {
		BeforeEach(func() {
			raw = "ACME MART\nCola  5.00  2  10.00\n折扣 -5.00\nTOTAL 5.00"
		})

		It("should attach it to the item", func() {
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Discount.StringFixed(2)).To(Equal("5.00"))
			Expect(receipt.TotalAmount.StringFixed(2)).To(Equal("5.00"))
		})
	})

	When("the text uses full-width characters", func() {
		BeforeEach(func() {
			raw = "ＡＣＭＥ\n合計 ＨＫ＄８８．００"
		})

		It("should fold them before matching", func() {
			Expect(receipt.ShopName).To(Equal("ACME"))
			Expect(receipt.TotalAmount.StringFixed(2)).To(Equal("88.00"))
			Expect(receipt.Currency).To(Equal("HKD"))
			Expect(receipt.Sources.Currency).To(Equal(Matched))
		})
	})

	When("the receipt is Korean", func() {
		BeforeEach(func() {
			raw = "이마트\n2024/05/02 18:22:10\n신라면 1,500 2 3,000\n할인 -500\n합계 KRW 2,500"
		})

		It("should read every field", func() {
			Expect(receipt.ShopName).To(Equal("이마트"))
			Expect(receipt.TxDate).To(Equal("2024-05-02"))
			Expect(receipt.TxTime).To(Equal("18:22"))
			Expect(receipt.Currency).To(Equal("KRW"))
			Expect(receipt.TotalAmount.StringFixed(0)).To(Equal("2500"))
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Name).To(Equal("신라면"))
			Expect(receipt.Items[0].Price.StringFixed(0)).To(Equal("1500"))
			Expect(receipt.Items[0].Qty).To(Equal(2))
			Expect(receipt.Items[0].Discount.StringFixed(0)).To(Equal("500"))
		})
	})

	When("the receipt prints the quantity under the item name", func() {
		BeforeEach(func() {
			raw = "ローソン\nおにぎり\nX 2 150 300\n合計 JPY 300"
		})

		It("should join the two lines", func() {
			Expect(receipt.ShopName).To(Equal("ローソン"))
			Expect(receipt.Currency).To(Equal("JPY"))
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Name).To(Equal("おにぎり"))
			Expect(receipt.Items[0].Qty).To(Equal(2))
			Expect(receipt.Items[0].Price.StringFixed(0)).To(Equal("150"))
			Expect(receipt.TotalAmount.StringFixed(0)).To(Equal("300"))
		})
	})

	When("a phone number line would look like an item", func() {
		BeforeEach(func() {
			raw = "ACME\nTel: 2345 6789\nApple 12.50"
		})

		It("should read the phone number once", func() {
			Expect(receipt.Tel).To(Equal("2345 6789"))
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Name).To(Equal("Apple"))
			Expect(receipt.Sources.Items).To(Equal(Fallback))
		})
	})

	When("a word ending in TEL precedes an item line", func() {
		BeforeEach(func() {
			raw = "SHOP NAME\nHOTEL\n12345678 Cola 5.00 2 10.00\nTea 3.00 1 3.00"
		})

		It("should keep the item line", func() {
			Expect(receipt.Tel).To(BeEmpty())
			Expect(receipt.Items).To(HaveLen(2))
			Expect(receipt.Items[0].Name).To(Equal("12345678 Cola"))
			Expect(receipt.Items[1].Name).To(Equal("Tea"))
		})
	})

	When("nothing but a shop and a price are present", func() {
		BeforeEach(func() {
			raw = "Hello Shop\nApple 12.50"
		})

		It("should default the date and time from the clock", func() {
			Expect(receipt.TxDate).To(Equal("2025-06-01"))
			Expect(receipt.TxTime).To(Equal("08:15"))
			Expect(receipt.Sources.TxDate).To(Equal(Defaulted))
			Expect(receipt.Sources.TxTime).To(Equal(Defaulted))
		})

		It("should leave the total unmatched", func() {
			Expect(receipt.TotalAmount.IsZero()).To(BeTrue())
			Expect(receipt.Sources.TotalAmount).To(Equal(Defaulted))
		})
	})

	When("the text is empty", func() {
		BeforeEach(func() {
			raw = ""
		})

		It("should return a fully defaulted receipt", func() {
			Expect(receipt.ShopName).To(Equal(UnknownShop))
			Expect(receipt.Items).NotTo(BeNil())
			Expect(receipt.Items).To(BeEmpty())
			Expect(receipt.TotalAmount.IsZero()).To(BeTrue())
			Expect(receipt.Currency).To(Equal("HKD"))
			Expect(receipt.Sources.Items).To(Equal(Defaulted))
			Expect(receipt.Sources.ShopName).To(Equal(Defaulted))
		})
	})

	When("the configuration adds a currency rule", func() {
		BeforeEach(func() {
			cfg := DefaultConfig().Merge(Config{
				CurrencyRules: []CurrencyRule{{Currency: "USD", Markers: []string{"US$"}}},
			})
			interpreter = New(cfg, fixedTime{testNow})
			raw = "ACME MART\nTOTAL US$ 5.00"
		})

		It("should try it before the built-in rules", func() {
			Expect(receipt.Currency).To(Equal("USD"))
			Expect(receipt.TotalAmount.StringFixed(2)).To(Equal("5.00"))
		})
	})
})
