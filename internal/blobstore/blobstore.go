// Package blobstore is the pluggable storage backend behind both the
// per-tile sample shard and the finished mesh file (spec.md §6's two named
// "external collaborator" binary streams). It mirrors the teacher's
// temp-file-then-publish convention from internal/pmtiles/writer.go (write
// to a temp file, rename/finalize on success) without that writer's
// dedup/entry bookkeeping, which is specific to tile archives.
package blobstore

import "io"

// Store opens named blobs for reading and creates named blobs for writing.
// Both shard and meshio read/write through a Store rather than raw
// os.File/azblob calls so either backend (or a future one) can serve them.
type Store interface {
	Open(name string) (io.ReadCloser, error)
	Create(name string) (io.WriteCloser, error)
}
