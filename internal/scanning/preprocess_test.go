package scanning

import (
	"image"
	"image/color"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Preprocess", func() {
	paint := func(c color.Color) image.Image {
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				img.Set(x, y, c)
			}
		}
		return img
	}

	It("should keep the bounds", func() {
		out := Preprocess(paint(color.White))
		Expect(out.Bounds()).To(Equal(image.Rect(0, 0, 2, 2)))
	})

	It("should keep white and black saturated", func() {
		Expect(Preprocess(paint(color.White)).GrayAt(0, 0).Y).To(Equal(uint8(255)))
		Expect(Preprocess(paint(color.Black)).GrayAt(1, 1).Y).To(Equal(uint8(0)))
	})

	It("should leave mid-gray in place", func() {
		Expect(Preprocess(paint(color.RGBA{128, 128, 128, 255})).GrayAt(0, 0).Y).To(Equal(uint8(128)))
	})

	It("should push light and dark grays apart", func() {
		Expect(Preprocess(paint(color.RGBA{200, 200, 200, 255})).GrayAt(0, 0).Y).To(Equal(uint8(214)))
		Expect(Preprocess(paint(color.RGBA{50, 50, 50, 255})).GrayAt(0, 0).Y).To(Equal(uint8(34)))
	})

	It("should weight green most heavily", func() {
		red := Preprocess(paint(color.RGBA{255, 0, 0, 255})).GrayAt(0, 0).Y
		green := Preprocess(paint(color.RGBA{0, 255, 0, 255})).GrayAt(0, 0).Y
		Expect(green).To(BeNumerically(">", red))
	})
})
