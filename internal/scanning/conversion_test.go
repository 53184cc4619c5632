package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("prepareImageData", func() {
	var (
		input       []byte
		contentType string
		output      []byte
		err         error
	)

	JustBeforeEach(func() {
		output, err = prepareImageData(input, contentType)
	})

	When("the input is already PNG", func() {
		BeforeEach(func() {
			input = solidPNG(4, 4, color.White)
			contentType = "image/png"
		})

		It("should return it unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(output).To(Equal(input))
		})
	})

	When("the input is JPEG", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			img := image.NewRGBA(image.Rect(0, 0, 8, 8))
			Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
			input = buf.Bytes()
			contentType = "IMAGE/JPEG; charset=binary"
		})

		It("should convert it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			_, format, decodeErr := image.Decode(bytes.NewReader(output))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
		})
	})

	When("the input is not an image", func() {
		BeforeEach(func() {
			input = []byte("definitely not an image")
			contentType = "image/jpeg"
		})

		It("should return an error", func() {
			Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
		})
	})
})

var _ = Describe("HEIC detection", func() {
	It("should recognise the ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEICFormat(data)).To(BeTrue())
	})

	It("should ignore other data", func() {
		Expect(isHEICFormat([]byte("short"))).To(BeFalse())
		Expect(isHEICFormat(solidPNG(2, 2, color.Black))).To(BeFalse())
	})

	It("should recognise HEIC MIME types", func() {
		Expect(isHEICMimeType(" image/HEIC ")).To(BeTrue())
		Expect(isHEICMimeType("image/heif")).To(BeTrue())
		Expect(isHEICMimeType("image/png")).To(BeFalse())
	})
})

var _ = Describe("normalizeMimeType", func() {
	It("should default to JPEG", func() {
		Expect(normalizeMimeType("")).To(Equal("image/jpeg"))
	})

	It("should drop parameters", func() {
		Expect(normalizeMimeType("Application/PDF; q=1")).To(Equal("application/pdf"))
	})
})
