package mutate

import (
	"fmt"
	"strings"
)

// Directive allow-lists for the generic patch path. Anything outside
// these is rejected outright rather than delegated.
var (
	patchTargetTypes = map[string]bool{
		"heading": true, "block": true, "frontmatter": true,
		"file": true, "directory": true, "tag": true,
	}
	patchOperations = map[string]bool{
		"append": true, "prepend": true, "replace": true,
		"rename": true, "move": true, "add": true, "remove": true,
	}
)

// Classify interprets the request directives into exactly one mutation
// variant. The precedence order below is load-bearing: several directive
// combinations are structurally ambiguous (move applies to files and
// directories, replace doubles as a legacy rename), so the most specific
// cases are matched first and each match is a hard short-circuit.
func Classify(operation, targetType, target, path string) Instruction {
	op := strings.ToLower(strings.TrimSpace(operation))
	tt := strings.ToLower(strings.TrimSpace(targetType))
	tgt := strings.TrimSpace(target)

	// 1+2: file rename / file move. 3: legacy replace-as-rename.
	if tt == "file" {
		switch op {
		case "rename":
			if tgt != "name" {
				return invalid("rename operation requires Target: name")
			}
			return fileInstruction(KindRenameFile, path)
		case "move":
			if tgt != "path" {
				return invalid("move operation requires Target: path")
			}
			return fileInstruction(KindMoveFile, path)
		case "replace":
			if tgt == "name" {
				return fileInstruction(KindRenameFile, path)
			}
			// replace with any other Target is a generic content patch.
		}
	}

	// 4: directory move.
	if tt == "directory" && op == "move" {
		if tgt != "path" {
			return invalid("move operation requires Target: path")
		}
		return Instruction{Kind: KindMoveDirectory, Path: strings.TrimSuffix(path, "/")}
	}

	// 5: tag batch. Only add and remove are meaningful here; the Target
	// directive may carry a tag name (legacy single-tag form).
	if tt == "tag" {
		switch op {
		case "add":
			return Instruction{Kind: KindTagBatch, Path: path, TagOp: TagAdd, LegacyTag: tgt}
		case "remove":
			return Instruction{Kind: KindTagBatch, Path: path, TagOp: TagRemove, LegacyTag: tgt}
		case "":
			return invalid("missing Operation directive")
		default:
			return invalid("only add or remove supported for tag target")
		}
	}

	// 6: rename/move against a non-file, non-directory target is a
	// semantic operation that must not fall through to the generic patch
	// path. The one combination that slips past rules 1-4 with a valid
	// target type, directory+rename, is rule 7's to answer.
	if (op == "rename" || op == "move") && tt != "file" && tt != "directory" {
		return invalid("operation " + op + " only valid for file or directory target type")
	}

	// 7: generic patch delegation for known directive pairs.
	if patchTargetTypes[tt] && patchOperations[op] {
		return Instruction{Kind: KindGenericPatch, Path: path}
	}

	// 8: name the first missing or invalid directive.
	switch {
	case tt == "":
		return invalid("missing Target-Type directive")
	case !patchTargetTypes[tt]:
		return invalid(fmt.Sprintf("invalid target type %q", targetType))
	case op == "":
		return invalid("missing Operation directive")
	default:
		return invalid(fmt.Sprintf("invalid operation %q", operation))
	}
}

// fileInstruction guards the one classifier-level path check: a file
// operation addressed at a container can never succeed.
func fileInstruction(kind Kind, path string) Instruction {
	if strings.HasSuffix(path, "/") {
		return invalid("path refers to a directory; a file operation requires a document path")
	}
	return Instruction{Kind: kind, Path: path}
}
