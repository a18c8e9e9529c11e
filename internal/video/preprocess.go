package video

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

const DefaultImageSize = 224

// Tensor is a batch of one normalized RGB image, laid out NHWC.
type Tensor struct {
	Shape [4]int
	Data  []float32
}

// Bytes encodes Data as little-endian float32.
func (t *Tensor) Bytes() []byte {
	buf := make([]byte, 4*len(t.Data))
	for i, v := range t.Data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// ShapeString renders the shape as "1,224,224,3".
func (t *Tensor) ShapeString() string {
	return fmt.Sprintf("%d,%d,%d,%d", t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3])
}

// Preprocessor stretches frames to Size x Size and scales channels to [0,1].
// It holds no state between calls and is safe for concurrent use.
type Preprocessor struct {
	size int
}

func NewPreprocessor(size int) *Preprocessor {
	if size <= 0 {
		size = DefaultImageSize
	}
	return &Preprocessor{size: size}
}

func (p *Preprocessor) Size() int { return p.size }

func (p *Preprocessor) Preprocess(f *Frame) (*Tensor, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	src := f.RGBA()
	dst := image.NewRGBA(image.Rect(0, 0, p.size, p.size))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	data := make([]float32, p.size*p.size*3)
	for i, j := 0, 0; j < len(dst.Pix); i, j = i+3, j+4 {
		data[i] = float32(dst.Pix[j]) / 255
		data[i+1] = float32(dst.Pix[j+1]) / 255
		data[i+2] = float32(dst.Pix[j+2]) / 255
	}

	return &Tensor{Shape: [4]int{1, p.size, p.size, 3}, Data: data}, nil
}
