// Package largeobjects provides random-access, streaming I/O over large
// binary objects stored in a PostgreSQL-style object store.
//
// Objects are identified by an opaque numeric id and accessed through a
// small set of primitive operations defined by the backend package. On top
// of those primitives this package builds:
//
//   - Handle: one opened object with cursor operations (read, write, seek,
//     tell, size, resize). Cursor state lives in the backend; handles are
//     valid only within the session that opened them.
//   - Reader / Writer: chunked stream adapters turning a handle into a lazy
//     pull-based byte stream or a push-based sink, moving data in bounded
//     pieces so arbitrarily large payloads stream through fixed-size
//     buffers.
//   - Import / Export: orchestration that turns an arbitrary byte source or
//     sink into object-store traffic inside a single transactional session,
//     guaranteeing that no partially written object survives a failure.
//   - Upload: chunk-at-a-time assembly across sessions for push-based
//     pipelines that cannot hold one session open.
//
// Backend implementations live in backend/postgres (the real thing, via
// pgx), backend/sqlite (embedded) and backend/memory (tests).
package largeobjects
