// Package mutate implements the vault mutation engine: the directive
// classifier and the file, directory, and tag mutation handlers.
package mutate

// Kind identifies the mutation variant selected by the classifier.
type Kind int

const (
	KindInvalid Kind = iota
	KindRenameFile
	KindMoveFile
	KindMoveDirectory
	KindCreateDirectory
	KindDeleteDirectory
	KindTagBatch
	KindTagRename
	KindGenericPatch
)

// String returns the variant name, mostly for logs and tests.
func (k Kind) String() string {
	switch k {
	case KindRenameFile:
		return "rename-file"
	case KindMoveFile:
		return "move-file"
	case KindMoveDirectory:
		return "move-directory"
	case KindCreateDirectory:
		return "create-directory"
	case KindDeleteDirectory:
		return "delete-directory"
	case KindTagBatch:
		return "tag-batch"
	case KindTagRename:
		return "tag-rename"
	case KindGenericPatch:
		return "generic-patch"
	default:
		return "invalid"
	}
}

// TagOp is the direction of a tag batch.
type TagOp string

const (
	TagAdd    TagOp = "add"
	TagRemove TagOp = "remove"
)

// TagLocation selects which surface of a document a tag edit touches.
type TagLocation string

const (
	LocationFrontmatter TagLocation = "frontmatter"
	LocationInline      TagLocation = "inline"
	LocationBoth        TagLocation = "both"
)

// Instruction is the classifier's output: exactly one non-invalid variant
// per request, or KindInvalid with a diagnostic. Payload values that
// travel in the request body (new name, new path, tag list) are attached
// by the dispatcher, not the classifier; the classifier sees only the
// directives.
type Instruction struct {
	Kind Kind
	Path string

	// TagOp and LegacyTag are set for KindTagBatch. LegacyTag carries
	// the single-tag form where the Target directive names the tag.
	TagOp     TagOp
	LegacyTag string

	// Reason is the diagnostic for KindInvalid: it names the violated
	// precedence rule or the first missing/invalid directive.
	Reason string
}

func invalid(reason string) Instruction {
	return Instruction{Kind: KindInvalid, Reason: reason}
}
