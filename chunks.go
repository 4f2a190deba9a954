package largeobjects

import (
	"context"
	"fmt"

	"github.com/frerich/pg-large-objects/backend"
	"github.com/frerich/pg-large-objects/data"
)

// ChunkView exposes an object as a random-access sequence of fixed-size
// chunks. Chunk i covers bytes [i*bufferSize, (i+1)*bufferSize); the view
// seeks explicitly before every indexed read instead of relying on cursor
// continuity, so it can be mixed freely with other operations on the same
// handle.
type ChunkView struct {
	h *Handle
}

// NewChunkView creates a chunked random-access view over the given handle.
// The view does not take ownership; closing the handle is the caller's
// responsibility.
func NewChunkView(h *Handle) *ChunkView {
	return &ChunkView{h: h}
}

// Count reports the number of chunks, i.e. ceil(size / bufferSize).
func (v *ChunkView) Count(ctx context.Context) (int64, error) {
	size, err := v.h.Size(ctx)
	if err != nil {
		return 0, err
	}

	bs := int64(v.h.bufferSize)
	return (size + bs - 1) / bs, nil
}

// At reads chunk index. The final chunk may be short; an index at or past
// the end of the object yields an empty slice.
func (v *ChunkView) At(ctx context.Context, index int64) ([]byte, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: chunk index %d", data.ErrInvalidOffset, index)
	}

	offset := index * int64(v.h.bufferSize)
	if _, err := v.h.backend.Seek(ctx, v.h.fd, offset, backend.SeekStart); err != nil {
		return nil, err
	}

	return v.h.Read(ctx, v.h.bufferSize)
}
