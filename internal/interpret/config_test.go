package interpret

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "interpret-config")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
	})

	writeConfig := func(content string) string {
		path := filepath.Join(dir, "keywords.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	Describe("LoadConfig", func() {
		It("should return the defaults for an empty path", func() {
			cfg, err := LoadConfig("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(DefaultConfig()))
		})

		It("should merge the file over the defaults", func() {
			path := writeConfig(`
home_currency: jpy
shop_name_window: 8
total_keywords: ["小計", "TOTAL"]
discount_keywords: ["割引"]
currency_rules:
  - currency: USD
    markers: ["US$"]
`)
			cfg, err := LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.HomeCurrency).To(Equal("JPY"))
			Expect(cfg.ShopNameWindow).To(Equal(8))
			Expect(cfg.TotalKeywords).To(ContainElement("小計"))
			Expect(cfg.TotalKeywords).To(HaveLen(len(DefaultConfig().TotalKeywords) + 1))
			Expect(cfg.DiscountKeywords).To(ContainElements("折扣", "割引"))
			Expect(cfg.CurrencyRules).To(HaveLen(5))
			Expect(cfg.CurrencyRules[0].Currency).To(Equal("USD"))
		})

		It("should keep scalar defaults the file does not set", func() {
			path := writeConfig("title_markers: [\"レシート\"]\n")
			cfg, err := LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.HomeCurrency).To(Equal("HKD"))
			Expect(cfg.ShopNameWindow).To(Equal(5))
			Expect(cfg.TitleMarkers).To(ContainElement("レシート"))
		})

		It("should return an error for a missing file", func() {
			_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
			Expect(err).To(MatchError(ContainSubstring("reading parser config")))
		})

		It("should return an error for invalid YAML", func() {
			path := writeConfig("total_keywords: {unclosed")
			_, err := LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("decoding parser config")))
		})
	})

	Describe("Merge", func() {
		It("should not modify the receiver", func() {
			base := DefaultConfig()
			base.Merge(Config{TotalKeywords: []string{"SUMME"}})
			Expect(base).To(Equal(DefaultConfig()))
		})
	})
})
