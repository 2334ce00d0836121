package scanning

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	return img
}

func pngBytes() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, testImage())).To(Succeed())
	return buf.Bytes()
}

func jpegBytes() []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("normalizeMIME", func() {
	It("lowercases and drops parameters", func() {
		Expect(normalizeMIME("Image/JPEG; charset=binary", nil)).To(Equal("image/jpeg"))
	})

	It("sniffs an empty content type", func() {
		Expect(normalizeMIME("", pngBytes())).To(Equal("image/png"))
	})

	It("sniffs octet-stream PDFs", func() {
		Expect(normalizeMIME("application/octet-stream", []byte("%PDF-1.4\n"))).To(Equal(mimePDF))
	})

	It("recognises HEIC data sent without a type", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
		Expect(normalizeMIME("", data)).To(Equal("image/heic"))
	})

	It("trusts an explicit content type", func() {
		Expect(normalizeMIME("image/gif", pngBytes())).To(Equal("image/gif"))
	})
})

var _ = Describe("preparePNG", func() {
	var (
		data        []byte
		contentType string
		out         []byte
		err         error
	)

	JustBeforeEach(func() {
		out, err = preparePNG(data, contentType)
	})

	When("the upload is already PNG", func() {
		BeforeEach(func() {
			data = pngBytes()
			contentType = "image/png"
		})

		It("passes it through unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(data))
		})
	})

	When("the upload is JPEG", func() {
		BeforeEach(func() {
			data = jpegBytes()
			contentType = "image/jpeg"
		})

		It("re-encodes it as PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			img, format, decodeErr := image.Decode(bytes.NewReader(out))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
			Expect(img.Bounds().Dx()).To(Equal(4))
		})
	})

	When("the upload is not an image", func() {
		BeforeEach(func() {
			data = []byte("definitely not an image")
			contentType = "image/jpeg"
		})

		It("reports an unsupported format", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("converting image to PNG"))
			Expect(err.Error()).To(ContainSubstring("unsupported image format"))
			Expect(errors.Is(err, ErrUnreadableImage)).To(BeTrue())
		})
	})

	When("the upload claims to be a PDF but is not", func() {
		BeforeEach(func() {
			data = []byte("not a pdf")
			contentType = "application/pdf"
		})

		It("returns a conversion error", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("converting PDF to image"))
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	DescribeTable("brands",
		func(brand string, expected bool) {
			data := append([]byte{0, 0, 0, 24}, []byte("ftyp"+brand)...)
			Expect(isHEICFormat(data)).To(Equal(expected))
		},
		Entry("heic", "heic", true),
		Entry("heix", "heix", true),
		Entry("mif1", "mif1", true),
		Entry("mp4", "isom", false),
	)

	It("rejects short data", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})
})
