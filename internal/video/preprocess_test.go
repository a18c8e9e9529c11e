package video

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidFrame(w, h int, r, g, b byte) *Frame {
	pix := make([]byte, w*h*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i], pix[i+1], pix[i+2] = r, g, b
	}
	return &Frame{Width: w, Height: h, Pix: pix}
}

func TestPreprocessShapeAndRange(t *testing.T) {
	p := NewPreprocessor(224)

	f := &Frame{Width: 64, Height: 48, Pix: make([]byte, 64*48*3)}
	for i := range f.Pix {
		f.Pix[i] = byte(i * 7)
	}

	tensor, err := p.Preprocess(f)
	require.NoError(t, err)

	assert.Equal(t, [4]int{1, 224, 224, 3}, tensor.Shape)
	require.Len(t, tensor.Data, 224*224*3)
	for _, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("value %v outside [0,1]", v)
		}
	}
}

func TestPreprocessSolidColorSurvivesResize(t *testing.T) {
	p := NewPreprocessor(32)

	tensor, err := p.Preprocess(solidFrame(100, 30, 255, 0, 51))
	require.NoError(t, err)

	for i := 0; i < len(tensor.Data); i += 3 {
		assert.InDelta(t, 1.0, tensor.Data[i], 1.0/255)
		assert.InDelta(t, 0.0, tensor.Data[i+1], 1.0/255)
		assert.InDelta(t, 0.2, tensor.Data[i+2], 1.0/255)
	}
}

func TestPreprocessIsDeterministic(t *testing.T) {
	p := NewPreprocessor(224)
	f := solidFrame(10, 10, 12, 34, 56)
	f.Pix[0] = 200

	a, err := p.Preprocess(f)
	require.NoError(t, err)
	b, err := p.Preprocess(f)
	require.NoError(t, err)

	assert.Equal(t, a.Data, b.Data)
}

func TestPreprocessRejectsMalformedFrames(t *testing.T) {
	p := NewPreprocessor(224)

	cases := map[string]*Frame{
		"nil":           nil,
		"zero width":    {Width: 0, Height: 10, Pix: nil},
		"negative":      {Width: -1, Height: 10, Pix: nil},
		"four channels": {Width: 2, Height: 2, Pix: make([]byte, 16)},
		"short buffer":  {Width: 2, Height: 2, Pix: make([]byte, 11)},
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Preprocess(f)
			assert.ErrorIs(t, err, ErrMalformedFrame)
		})
	}
}

func TestNewPreprocessorDefaultsSize(t *testing.T) {
	assert.Equal(t, DefaultImageSize, NewPreprocessor(0).Size())
}

func TestTensorBytesLittleEndian(t *testing.T) {
	tensor := &Tensor{Shape: [4]int{1, 1, 1, 2}, Data: []float32{0.5, 1}}

	b := tensor.Bytes()
	require.Len(t, b, 8)
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(b[0:])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(b[4:])))
	assert.Equal(t, "1,1,1,2", tensor.ShapeString())
}
