package index

// MetadataIndex is the read surface the mutation engine depends on:
// cached structural facts per document, no content reads. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with fakes.
type MetadataIndex interface {
	Tags(path string) ([]string, error)
	PathsWithTag(tag string) ([]string, error)
	RenamePath(oldPath, newPath string) error
	DeleteNote(path string) error
}

// NoteIndex is the full index surface used by the read API, sync, and
// the watcher.
type NoteIndex interface {
	MetadataIndex
	UpsertNote(n NoteRow, body string, links []string) error
	GetChecksum(path string) (string, error)
	GetNote(path string) (*NoteRow, error)
	ListNotes(limit, offset int, tag, sort string) ([]NoteRow, int, error)
	TagCounts() ([]TagCount, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Backlinks(target string) ([]string, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
