package largeobjects_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	largeobjects "github.com/frerich/pg-large-objects"
	"github.com/frerich/pg-large-objects/backend"
	"github.com/frerich/pg-large-objects/data"
)

// TestAllStores_ReaderStreaming verifies the forward-only stream: small
// chunk pulls reassemble the full content and the stream ends with io.EOF.
func TestAllStores_ReaderStreaming(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store, err := factory(tst)
			if err != nil {
				tst.Fatalf("Init failed: %v", err)
			}

			content := bytes.Repeat([]byte("streaming-data-"), 64)
			oid := createObject(tst, store, content)

			sess := beginSession(tst, store)

			h, err := largeobjects.Open(ctx, sess, oid,
				largeobjects.WithBufferSize(7))
			if err != nil {
				tst.Fatalf("Open failed: %v", err)
			}

			r := largeobjects.NewReader(ctx, h)

			got, err := io.ReadAll(r)
			if err != nil {
				tst.Fatalf("ReadAll failed: %v", err)
			}
			if !bytes.Equal(got, content) {
				tst.Errorf("Streamed content differs: expected %d bytes, got %d", len(content), len(got))
			}

			// The handle was released on exhaustion, so closing the reader
			// afterwards must not fail.
			if err := r.Close(); err != nil {
				tst.Errorf("Close after exhaustion failed: %v", err)
			}
			if err := r.Close(); !errors.Is(err, data.ErrClosed) {
				tst.Errorf("Expected ErrClosed on second close, got %v", err)
			}
		})
	}
}

// TestAllStores_ReaderNextChunk verifies chunk-at-a-time consumption honors
// the handle's buffer size.
func TestAllStores_ReaderNextChunk(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store, err := factory(tst)
			if err != nil {
				tst.Fatalf("Init failed: %v", err)
			}

			oid := createObject(tst, store, []byte("ABCDEFGH"))

			sess := beginSession(tst, store)

			h, err := largeobjects.Open(ctx, sess, oid,
				largeobjects.WithBufferSize(3))
			if err != nil {
				tst.Fatalf("Open failed: %v", err)
			}

			r := largeobjects.NewReader(ctx, h)

			var chunks [][]byte
			for {
				chunk, err := r.NextChunk()
				if err == io.EOF {
					break
				}
				if err != nil {
					tst.Fatalf("NextChunk failed: %v", err)
				}
				chunks = append(chunks, chunk)
			}

			want := [][]byte{[]byte("ABC"), []byte("DEF"), []byte("GH")}
			if len(chunks) != len(want) {
				tst.Fatalf("Expected %d chunks, got %d", len(want), len(chunks))
			}
			for i := range want {
				if !bytes.Equal(chunks[i], want[i]) {
					tst.Errorf("Chunk %d: expected %q, got %q", i, want[i], chunks[i])
				}
			}
		})
	}
}

// TestAllStores_ReaderCancellation verifies that a cancelled context stops
// the stream instead of issuing further backend reads.
func TestAllStores_ReaderCancellation(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			store, err := factory(tst)
			if err != nil {
				tst.Fatalf("Init failed: %v", err)
			}

			oid := createObject(tst, store, []byte("content"))

			sess := beginSession(tst, store)

			ctx, cancel := context.WithCancel(tst.Context())

			h, err := largeobjects.Open(ctx, sess, oid)
			if err != nil {
				tst.Fatalf("Open failed: %v", err)
			}

			r := largeobjects.NewReader(ctx, h)
			cancel()

			buf := make([]byte, 4)
			if _, err := r.Read(buf); !errors.Is(err, context.Canceled) {
				tst.Errorf("Expected context.Canceled, got %v", err)
			}
		})
	}
}

// TestAllStores_WriterStreaming verifies push-based writes of caller-chosen
// chunk sizes and descriptor release on close.
func TestAllStores_WriterStreaming(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store, err := factory(tst)
			if err != nil {
				tst.Fatalf("Init failed: %v", err)
			}

			sess := beginSession(tst, store)

			h, err := largeobjects.Create(ctx, sess)
			if err != nil {
				tst.Fatalf("Create failed: %v", err)
			}
			oid := h.OID()

			w := largeobjects.NewWriter(ctx, h)

			for _, piece := range []string{"hello", " ", "world"} {
				n, err := w.Write([]byte(piece))
				if err != nil {
					tst.Fatalf("Write failed: %v", err)
				}
				if n != len(piece) {
					tst.Errorf("Expected %d bytes written, got %d", len(piece), n)
				}
			}

			if err := w.Close(); err != nil {
				tst.Fatalf("Close failed: %v", err)
			}
			if _, err := w.Write([]byte("late")); !errors.Is(err, data.ErrClosed) {
				tst.Errorf("Expected ErrClosed after close, got %v", err)
			}

			// Reopen within the same session and verify the content.
			h2, err := largeobjects.Open(ctx, sess, oid)
			if err != nil {
				tst.Fatalf("Reopen failed: %v", err)
			}

			got, err := h2.Read(ctx, 100)
			if err != nil {
				tst.Fatalf("Read failed: %v", err)
			}
			if !bytes.Equal(got, []byte("hello world")) {
				tst.Errorf("Expected %q, got %q", "hello world", got)
			}
		})
	}
}

// TestAllStores_WriterAbort verifies that aborting releases the descriptor
// and rejects further writes.
func TestAllStores_WriterAbort(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store, err := factory(tst)
			if err != nil {
				tst.Fatalf("Init failed: %v", err)
			}

			sess := beginSession(tst, store)

			h, err := largeobjects.Create(ctx, sess)
			if err != nil {
				tst.Fatalf("Create failed: %v", err)
			}

			w := largeobjects.NewWriter(ctx, h)

			if _, err := w.Write([]byte("partial")); err != nil {
				tst.Fatalf("Write failed: %v", err)
			}

			w.Abort()

			if _, err := w.Write([]byte("late")); !errors.Is(err, data.ErrClosed) {
				tst.Errorf("Expected ErrClosed after abort, got %v", err)
			}
			if err := w.Close(); !errors.Is(err, data.ErrClosed) {
				tst.Errorf("Expected ErrClosed from close after abort, got %v", err)
			}
		})
	}
}

// TestAllStores_ChunkView verifies random-access chunk addressing, short
// final chunks, and independence from the handle's cursor.
func TestAllStores_ChunkView(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store, err := factory(tst)
			if err != nil {
				tst.Fatalf("Init failed: %v", err)
			}

			oid := createObject(tst, store, []byte("ABCDEFGH"))

			sess := beginSession(tst, store)

			h, err := largeobjects.Open(ctx, sess, oid,
				largeobjects.WithBufferSize(3))
			if err != nil {
				tst.Fatalf("Open failed: %v", err)
			}

			view := largeobjects.NewChunkView(h)

			count, err := view.Count(ctx)
			if err != nil {
				tst.Fatalf("Count failed: %v", err)
			}
			if count != 3 {
				tst.Errorf("Expected 3 chunks, got %d", count)
			}

			// Move the cursor, then verify indexed reads ignore it.
			if _, err := h.Seek(ctx, 5, backend.SeekStart); err != nil {
				tst.Fatalf("Seek failed: %v", err)
			}

			chunk, err := view.At(ctx, 0)
			if err != nil {
				tst.Fatalf("At(0) failed: %v", err)
			}
			if !bytes.Equal(chunk, []byte("ABC")) {
				tst.Errorf("Expected %q, got %q", "ABC", chunk)
			}

			chunk, err = view.At(ctx, 2)
			if err != nil {
				tst.Fatalf("At(2) failed: %v", err)
			}
			if !bytes.Equal(chunk, []byte("GH")) {
				tst.Errorf("Expected short final chunk %q, got %q", "GH", chunk)
			}

			chunk, err = view.At(ctx, 3)
			if err != nil {
				tst.Fatalf("At(3) failed: %v", err)
			}
			if len(chunk) != 0 {
				tst.Errorf("Expected empty chunk past end, got %q", chunk)
			}

			if _, err := view.At(ctx, -1); !errors.Is(err, data.ErrInvalidOffset) {
				tst.Errorf("Expected ErrInvalidOffset for negative index, got %v", err)
			}
		})
	}
}
