package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// scriptedReader returns one scripted chunk per Read, then err (io.EOF by default).
type scriptedReader struct {
	chunks [][]byte
	err    error
	reads  atomic.Int32
	closed atomic.Bool
}

func newScripted(chunks ...string) *scriptedReader {
	r := &scriptedReader{}
	for _, c := range chunks {
		r.chunks = append(r.chunks, []byte(c))
	}
	return r
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	r.reads.Add(1)
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func (r *scriptedReader) Close() error {
	r.closed.Store(true)
	return nil
}

// blockingReader blocks every Read until Close is called.
type blockingReader struct {
	reads    atomic.Int32
	entered  chan struct{}
	done     chan struct{}
	once     sync.Once
	doneOnce sync.Once
}

func newBlocking() *blockingReader {
	return &blockingReader{entered: make(chan struct{}), done: make(chan struct{})}
}

func (r *blockingReader) Read(p []byte) (int, error) {
	r.reads.Add(1)
	r.once.Do(func() { close(r.entered) })
	<-r.done
	return 0, errors.New("read on closed body")
}

func (r *blockingReader) Close() error {
	r.doneOnce.Do(func() { close(r.done) })
	return nil
}

type recordingWriter struct {
	writes  [][]byte
	flushes int
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (w *recordingWriter) Flush() { w.flushes++ }

func (w *recordingWriter) String() string {
	return string(bytes.Join(w.writes, nil))
}

type closedWriter struct{}

func (closedWriter) Write(p []byte) (int, error) {
	return 0, errors.New("write: broken pipe")
}

func TestCopy_ForwardsChunksInOrder(t *testing.T) {
	src := newScripted("data: {\"a\":1}\n\n", "data: {\"b\":2}\n\n", "data: [DONE]\n\n")
	dst := &recordingWriter{}

	stats, err := Copy(context.Background(), dst, src)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}

	want := "data: {\"a\":1}\n\ndata: {\"b\":2}\n\ndata: [DONE]\n\n"
	if dst.String() != want {
		t.Errorf("forwarded %q, want %q", dst.String(), want)
	}
	if stats.Chunks != 3 {
		t.Errorf("Chunks = %d, want 3", stats.Chunks)
	}
	if stats.Bytes != len(want) {
		t.Errorf("Bytes = %d, want %d", stats.Bytes, len(want))
	}
	if dst.flushes != 3 {
		t.Errorf("flushes = %d, want 3", dst.flushes)
	}
}

func TestCopy_DropsMarkerChunks(t *testing.T) {
	src := newScripted(
		": OPENROUTER PROCESSING\n\n",
		"data: {\"a\":1}\n\n",
		": OPENROUTER PROCESSING\n\n",
		"data: [DONE]\n\n",
	)
	dst := &recordingWriter{}

	stats, err := Copy(context.Background(), dst, src)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}

	if strings.Contains(dst.String(), ProcessingMarker) {
		t.Errorf("marker forwarded: %q", dst.String())
	}
	if dst.String() != "data: {\"a\":1}\n\ndata: [DONE]\n\n" {
		t.Errorf("forwarded %q", dst.String())
	}
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped)
	}
}

func TestCopy_DropsWholeChunkContainingMarker(t *testing.T) {
	src := newScripted("data: {\"a\":1}\n\n: OPENROUTER PROCESSING\n\n")
	dst := &recordingWriter{}

	if _, err := Copy(context.Background(), dst, src); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if len(dst.writes) != 0 {
		t.Errorf("expected nothing forwarded, got %q", dst.String())
	}
}

func TestCopy_EmptyStream(t *testing.T) {
	dst := &recordingWriter{}

	stats, err := Copy(context.Background(), dst, newScripted())
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if stats.Chunks != 0 || len(dst.writes) != 0 {
		t.Errorf("stats = %+v, writes = %d; want nothing", stats, len(dst.writes))
	}
}

func TestCopy_MultiByteSplitAcrossReads(t *testing.T) {
	payload := []byte("data: héllo 世界\n\n")
	// Split inside "é" (2 bytes) and inside "世" (3 bytes).
	e := bytes.IndexRune(payload, 'é') + 1
	w := bytes.IndexRune(payload, '世') + 2
	src := &scriptedReader{chunks: [][]byte{payload[:e], payload[e:w], payload[w:]}}
	dst := &recordingWriter{}

	if _, err := Copy(context.Background(), dst, src); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	if dst.String() != string(payload) {
		t.Errorf("forwarded %q, want %q", dst.String(), payload)
	}
	for i, wr := range dst.writes {
		if !utf8Valid(wr) {
			t.Errorf("write %d splits a character: %q", i, wr)
		}
	}
}

func TestCopy_TrailingPartialBytesFlushedAtEOF(t *testing.T) {
	// Stream ends with the first byte of a 3-byte sequence.
	src := &scriptedReader{chunks: [][]byte{[]byte("abc"), {0xe4}}}
	dst := &recordingWriter{}

	if _, err := Copy(context.Background(), dst, src); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if !bytes.Equal(bytes.Join(dst.writes, nil), []byte{'a', 'b', 'c', 0xe4}) {
		t.Errorf("forwarded %v", dst.writes)
	}
}

func TestCopy_SinkClosedStopsReading(t *testing.T) {
	src := newScripted("data: 1\n\n", "data: 2\n\n", "data: 3\n\n")

	_, err := Copy(context.Background(), closedWriter{}, src)
	if !errors.Is(err, ErrSinkClosed) {
		t.Fatalf("err = %v, want ErrSinkClosed", err)
	}
	if got := src.reads.Load(); got != 1 {
		t.Errorf("reads = %d, want 1", got)
	}
}

func TestCopy_UpstreamReadError(t *testing.T) {
	src := newScripted("data: 1\n\n")
	src.err = errors.New("connection reset by peer")
	dst := &recordingWriter{}

	_, err := Copy(context.Background(), dst, src)
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("err = %v, want upstream read error", err)
	}
	if dst.String() != "data: 1\n\n" {
		t.Errorf("forwarded %q", dst.String())
	}
}

func TestCopy_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := newScripted("data: 1\n\n")

	_, err := Copy(ctx, &recordingWriter{}, src)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := src.reads.Load(); got != 0 {
		t.Errorf("reads = %d, want 0", got)
	}
}

func TestCopy_DisconnectCancelsPendingRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := newBlocking()

	done := make(chan error, 1)
	go func() {
		_, err := Copy(ctx, &recordingWriter{}, src)
		done <- err
	}()

	<-src.entered
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Copy did not return promptly after cancellation")
	}

	if got := src.reads.Load(); got != 1 {
		t.Errorf("reads = %d, want 1 (no reads after cancellation)", got)
	}
}

func TestCopy_DoesNotCloseSourceAfterReturn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := newScripted("data: 1\n\n")

	if _, err := Copy(ctx, &recordingWriter{}, src); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	cancel()

	// Cancellation after a completed relay must not touch the source.
	time.Sleep(10 * time.Millisecond)
	if src.closed.Load() {
		t.Error("source closed after Copy returned")
	}
}

func utf8Valid(b []byte) bool {
	return strings.ToValidUTF8(string(b), "�") == string(b)
}
