package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ppemonitor/internal/logger"
)

// fakeSource serves a fixed list of frames and counts releases.
type fakeSource struct {
	mu       sync.Mutex
	frames   [][]byte
	reads    int
	releases int
}

func (s *fakeSource) ReadFrame() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reads >= len(s.frames) {
		return nil, false
	}
	f := s.frames[s.reads]
	s.reads++
	return f, true
}

func (s *fakeSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
	return nil
}

func (s *fakeSource) releaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

type passthrough struct{}

func (passthrough) Process(_ context.Context, frame []byte) ([]byte, error) {
	return frame, nil
}

// cancellingProcessor cancels the session while processing the n-th frame.
type cancellingProcessor struct {
	cancel context.CancelFunc
	at     int
	seen   int
}

func (c *cancellingProcessor) Process(ctx context.Context, frame []byte) ([]byte, error) {
	c.seen++
	if c.seen == c.at {
		c.cancel()
		return frame, ctx.Err()
	}
	return frame, nil
}

// failingWriter accepts n writes, then fails.
type failingWriter struct {
	n int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n == 0 {
		return 0, errors.New("broken pipe")
	}
	w.n--
	return len(p), nil
}

func frames(names ...string) [][]byte {
	out := make([][]byte, len(names))
	for i, n := range names {
		out[i] = []byte(n)
	}
	return out
}

func TestChunk(t *testing.T) {
	got := string(Chunk([]byte("JPEG")))
	want := "--frame\r\nContent-Type: image/jpeg\r\n\r\nJPEG\r\n"
	if got != want {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestContentType(t *testing.T) {
	if ContentType != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Unexpected content type %q", ContentType)
	}
}

func TestNext_EndOfSource(t *testing.T) {
	src := &fakeSource{frames: frames("a", "b")}
	p := NewPublisher(src, passthrough{}, logger.NewDiscard())
	ctx := context.Background()

	for _, want := range []string{"a", "b"} {
		chunk, err := p.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if !bytes.Equal(chunk, Chunk([]byte(want))) {
			t.Errorf("Expected chunk for %q, got %q", want, chunk)
		}
	}

	if _, err := p.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("Expected io.EOF, got %v", err)
	}
	if src.releaseCount() != 1 {
		t.Errorf("Expected source released once, got %d", src.releaseCount())
	}

	if _, err := p.Next(ctx); !errors.Is(err, ErrReleased) {
		t.Errorf("Expected ErrReleased after end, got %v", err)
	}
	if src.releaseCount() != 1 {
		t.Errorf("Source released again: %d", src.releaseCount())
	}
}

func TestRun_WritesAllFrames(t *testing.T) {
	src := &fakeSource{frames: frames("one", "two", "three")}
	p := NewPublisher(src, passthrough{}, logger.NewDiscard())
	rec := httptest.NewRecorder()

	if err := p.Run(context.Background(), rec); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	body := rec.Body.String()
	if n := strings.Count(body, "--frame\r\n"); n != 3 {
		t.Errorf("Expected 3 parts, got %d", n)
	}
	if !rec.Flushed {
		t.Error("Expected response to be flushed")
	}
	if src.releaseCount() != 1 {
		t.Errorf("Expected source released once, got %d", src.releaseCount())
	}
}

func TestRun_ConsumerGone(t *testing.T) {
	src := &fakeSource{frames: frames("a", "b", "c", "d")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPublisher(src, &cancellingProcessor{cancel: cancel, at: 2}, logger.NewDiscard())
	var out bytes.Buffer

	err := p.Run(ctx, &out)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if strings.Count(out.String(), "--frame") != 1 {
		t.Errorf("Expected exactly one part before cancellation, got %q", out.String())
	}
	if src.releaseCount() != 1 {
		t.Errorf("Expected source released once, got %d", src.releaseCount())
	}
}

func TestRun_AlreadyCancelled(t *testing.T) {
	src := &fakeSource{frames: frames("a")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPublisher(src, passthrough{}, logger.NewDiscard())
	if err := p.Run(ctx, io.Discard); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if src.reads != 0 {
		t.Errorf("Expected no frames read, got %d", src.reads)
	}
	if src.releaseCount() != 1 {
		t.Errorf("Expected source released once, got %d", src.releaseCount())
	}
}

func TestRun_WriteFailure(t *testing.T) {
	src := &fakeSource{frames: frames("a", "b", "c")}
	p := NewPublisher(src, passthrough{}, logger.NewDiscard())

	if err := p.Run(context.Background(), &failingWriter{n: 1}); err == nil {
		t.Fatal("Expected write error")
	}
	if src.releaseCount() != 1 {
		t.Errorf("Expected source released once, got %d", src.releaseCount())
	}

	p.Release()
	if src.releaseCount() != 1 {
		t.Errorf("Explicit Release after Run released again: %d", src.releaseCount())
	}
}
