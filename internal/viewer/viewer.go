// Package viewer abstracts the document viewer/editor behind a small
// capability interface so the rest of the application depends only on
// load/export/unload, never on a concrete SDK.
package viewer

import "context"

// Instance is one loaded document inside the viewer.
type Instance interface {
	// Export returns the current document bytes, including any edits the
	// user made inside the viewer. Export output is the authoritative
	// edited document when the viewer edit path is used.
	Export() ([]byte, error)
	// PageCount returns the number of pages in the loaded document.
	PageCount() int
	// Unload releases the instance. Export after Unload fails.
	Unload() error
}

// Viewer loads documents into viewer instances.
type Viewer interface {
	Load(ctx context.Context, document []byte) (Instance, error)
}
