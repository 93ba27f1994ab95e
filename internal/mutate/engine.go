package mutate

import (
	"log/slog"

	"github.com/starford/ehwaz/internal/storage"
)

// Index is the metadata surface the engine consults and maintains. It is
// deliberately narrow so tests can substitute an in-memory fake; *index.DB
// satisfies it.
type Index interface {
	// Tags returns the cached tag set of a document without a content read.
	Tags(path string) ([]string, error)
	// PathsWithTag returns documents whose tag set contains tag or any
	// hierarchical child (tag/...).
	PathsWithTag(tag string) ([]string, error)
	// RenamePath re-keys an indexed document.
	RenamePath(oldPath, newPath string) error
	// DeleteNote drops a document from the index.
	DeleteNote(path string) error
}

// ReindexFunc is called after the engine rewrites a document's content,
// so the index reflects the new tag set without waiting for the watcher.
type ReindexFunc func(path string, data []byte)

// Engine executes mutation instructions against the injected store and
// index. It holds no state across invocations: every handler reads fresh,
// computes in memory, and performs the minimum writes. The engine offers
// no locking between concurrent mutations of the same document; two
// simultaneous requests are last-write-wins.
type Engine struct {
	store   storage.Provider
	idx     Index
	logger  *slog.Logger
	reindex ReindexFunc
}

// NewEngine creates a mutation engine. reindex may be nil.
func NewEngine(store storage.Provider, idx Index, logger *slog.Logger, reindex ReindexFunc) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, idx: idx, logger: logger, reindex: reindex}
}

func (e *Engine) reindexDoc(path string, data []byte) {
	if e.reindex != nil {
		e.reindex(path, data)
	}
}
