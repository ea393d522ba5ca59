package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"ppemonitor/internal/logger"
)

// Boundary separates the parts of the multipart response.
const Boundary = "frame"

// ContentType is the response content type of the live stream.
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// ErrReleased is returned when a publisher is used after its source was released.
var ErrReleased = errors.New("stream: source released")

// Source yields encoded frames until it is exhausted.
type Source interface {
	ReadFrame() ([]byte, bool)
	Release() error
}

// FrameProcessor turns a captured frame into the frame to publish.
type FrameProcessor interface {
	Process(ctx context.Context, frame []byte) ([]byte, error)
}

// Publisher drives one capture session: read, process, frame as a multipart chunk.
// The source is released exactly once, whichever way the session ends.
type Publisher struct {
	source    Source
	processor FrameProcessor
	logger    *logger.Logger
	mu        sync.Mutex
	released  bool
}

func NewPublisher(source Source, processor FrameProcessor, logger *logger.Logger) *Publisher {
	return &Publisher{
		source:    source,
		processor: processor,
		logger:    logger,
	}
}

// Chunk wraps a JPEG image into one part of the multipart stream.
func Chunk(jpeg []byte) []byte {
	header := fmt.Sprintf("--%s\r\nContent-Type: image/jpeg\r\n\r\n", Boundary)
	out := make([]byte, 0, len(header)+len(jpeg)+2)
	out = append(out, header...)
	out = append(out, jpeg...)
	return append(out, "\r\n"...)
}

// Next returns the next chunk. It returns io.EOF once the source is exhausted
// and ctx.Err() when the consumer has gone away; the source is released in both cases.
func (p *Publisher) Next(ctx context.Context) ([]byte, error) {
	if p.isReleased() {
		return nil, ErrReleased
	}
	if err := ctx.Err(); err != nil {
		p.Release()
		return nil, err
	}

	frame, ok := p.source.ReadFrame()
	if !ok {
		p.Release()
		return nil, io.EOF
	}

	out, err := p.processor.Process(ctx, frame)
	if err != nil {
		p.Release()
		return nil, err
	}

	return Chunk(out), nil
}

// Run writes chunks to w until the source ends, ctx is cancelled or a write fails.
// End of stream is not an error.
func (p *Publisher) Run(ctx context.Context, w io.Writer) error {
	defer p.Release()

	flusher, _ := w.(http.Flusher)
	for {
		chunk, err := p.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Release frees the source. Calling it more than once is a no-op.
func (p *Publisher) Release() {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return
	}
	p.released = true
	p.mu.Unlock()

	if err := p.source.Release(); err != nil {
		p.logger.Error("Failed to release capture source: %v", err)
	}
}

func (p *Publisher) isReleased() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}
