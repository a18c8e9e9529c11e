package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
)

var (
	// ErrOpen means the container could not be opened or decoded at all.
	ErrOpen = errors.New("could not open video file")
	// ErrMalformedFrame means a frame does not carry width*height*3 bytes of RGB.
	ErrMalformedFrame = errors.New("malformed frame")
)

// Frame is one decoded RGB24 image, rows top to bottom, pixels interleaved R,G,B.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrMalformedFrame)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrMalformedFrame, f.Width, f.Height)
	}
	if want := f.Width * f.Height * 3; len(f.Pix) != want {
		return fmt.Errorf("%w: %d bytes for %dx%d, want %d (3 channels)", ErrMalformedFrame, len(f.Pix), f.Width, f.Height, want)
	}
	return nil
}

// RGBA copies the frame into an opaque *image.RGBA. The frame must be valid.
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// FrameSource yields the frames of one video in presentation order.
//
// Next returns io.EOF once the video is exhausted. The returned frame is only
// valid until the following call to Next. Close releases the decoder and may be
// called more than once.
type FrameSource interface {
	Next() (*Frame, error)
	Close() error
}

// Opener opens a video file as a FrameSource. Failures wrap ErrOpen.
type Opener interface {
	Open(ctx context.Context, path string) (FrameSource, error)
}

// SliceSource serves frames from memory. It backs tests and callers that
// already hold decoded frames.
type SliceSource struct {
	Frames []*Frame
	Closed bool
	pos    int
}

func (s *SliceSource) Next() (*Frame, error) {
	if s.Closed {
		return nil, errors.New("frame source closed")
	}
	if s.pos >= len(s.Frames) {
		return nil, io.EOF
	}
	f := s.Frames[s.pos]
	s.pos++
	return f, nil
}

func (s *SliceSource) Close() error {
	s.Closed = true
	return nil
}
