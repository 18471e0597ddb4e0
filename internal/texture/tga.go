package texture

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// ErrTGA is returned for TGA data the decoder cannot handle.
var ErrTGA = errors.New("texture: unsupported or corrupt TGA")

// TGA image types.
const (
	tgaTrueColor    = 2
	tgaGray         = 3
	tgaTrueColorRLE = 10
	tgaGrayRLE      = 11
)

type tgaHeader struct {
	idLength     int
	colorMapType byte
	imageType    byte
	width        int
	height       int
	bpp          int
	topToBottom  bool
}

func parseTGAHeader(data []byte) (tgaHeader, error) {
	if len(data) < 18 {
		return tgaHeader{}, errors.Wrap(ErrTGA, "header too short")
	}
	h := tgaHeader{
		idLength:     int(data[0]),
		colorMapType: data[1],
		imageType:    data[2],
		width:        int(data[12]) | int(data[13])<<8,
		height:       int(data[14]) | int(data[15])<<8,
		bpp:          int(data[16]),
		topToBottom:  data[17]&0x20 != 0,
	}
	if h.colorMapType != 0 {
		return h, errors.Wrap(ErrTGA, "color-mapped images are not supported")
	}
	switch h.imageType {
	case tgaTrueColor, tgaTrueColorRLE:
		if h.bpp != 24 && h.bpp != 32 {
			return h, errors.Wrapf(ErrTGA, "true-color depth %d", h.bpp)
		}
	case tgaGray, tgaGrayRLE:
		if h.bpp != 8 {
			return h, errors.Wrapf(ErrTGA, "grayscale depth %d", h.bpp)
		}
	default:
		return h, errors.Wrapf(ErrTGA, "image type %d", h.imageType)
	}
	if h.width == 0 || h.height == 0 {
		return h, errors.Wrap(ErrTGA, "empty image")
	}
	return h, nil
}

// DecodeTGA decodes true-color (24/32 bit) and 8 bit grayscale TGA data,
// raw or RLE compressed.
func DecodeTGA(data []byte) (image.Image, error) {
	h, err := parseTGAHeader(data)
	if err != nil {
		return nil, err
	}
	offset := 18 + h.idLength
	if offset > len(data) {
		return nil, errors.Wrap(ErrTGA, "truncated id field")
	}

	d := &tgaDecoder{
		h:   h,
		src: data[offset:],
		img: image.NewNRGBA(image.Rect(0, 0, h.width, h.height)),
	}
	if h.imageType == tgaTrueColorRLE || h.imageType == tgaGrayRLE {
		err = d.decodeRLE()
	} else {
		err = d.decodeRaw()
	}
	if err != nil {
		return nil, err
	}
	return d.img, nil
}

type tgaDecoder struct {
	h   tgaHeader
	src []byte
	pos int
	img *image.NRGBA
	n   int // pixels written
}

func (d *tgaDecoder) readPixel() (color.NRGBA, error) {
	size := d.h.bpp / 8
	if d.pos+size > len(d.src) {
		return color.NRGBA{}, errors.Wrap(ErrTGA, "truncated pixel data")
	}
	p := d.src[d.pos : d.pos+size]
	d.pos += size

	switch size {
	case 1:
		return color.NRGBA{R: p[0], G: p[0], B: p[0], A: 255}, nil
	case 3:
		return color.NRGBA{R: p[2], G: p[1], B: p[0], A: 255}, nil
	default:
		return color.NRGBA{R: p[2], G: p[1], B: p[0], A: p[3]}, nil
	}
}

// put stores the next pixel in file order, which is bottom-up unless the
// descriptor says otherwise.
func (d *tgaDecoder) put(c color.NRGBA) {
	x := d.n % d.h.width
	y := d.n / d.h.width
	if !d.h.topToBottom {
		y = d.h.height - 1 - y
	}
	d.img.SetNRGBA(x, y, c)
	d.n++
}

func (d *tgaDecoder) total() int {
	return d.h.width * d.h.height
}

func (d *tgaDecoder) decodeRaw() error {
	for d.n < d.total() {
		c, err := d.readPixel()
		if err != nil {
			return err
		}
		d.put(c)
	}
	return nil
}

func (d *tgaDecoder) decodeRLE() error {
	for d.n < d.total() {
		if d.pos >= len(d.src) {
			return errors.Wrap(ErrTGA, "truncated RLE stream")
		}
		packet := d.src[d.pos]
		d.pos++
		count := int(packet&0x7f) + 1

		if packet&0x80 != 0 {
			c, err := d.readPixel()
			if err != nil {
				return err
			}
			for i := 0; i < count && d.n < d.total(); i++ {
				d.put(c)
			}
			continue
		}
		for i := 0; i < count && d.n < d.total(); i++ {
			c, err := d.readPixel()
			if err != nil {
				return err
			}
			d.put(c)
		}
	}
	return nil
}
