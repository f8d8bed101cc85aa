package permission

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// GenerateDiff computes the unified diff between two versions of a file
// and parses it into structured lines a host can render at the approval
// prompt.
func GenerateDiff(filePath, oldContent, newContent string) *DiffMetadata {
	edits := myers.ComputeEdits(span.URIFromPath(filePath), oldContent, newContent)
	diffStr := fmt.Sprint(gotextdiff.ToUnified(filePath, filePath, oldContent, edits))

	lines := ParseDiffLines(diffStr)

	var added, removed int
	for _, line := range lines {
		switch line.Type {
		case DiffLineAdded:
			added++
		case DiffLineRemoved:
			removed++
		}
	}

	return &DiffMetadata{
		OldContent:   oldContent,
		NewContent:   newContent,
		UnifiedDiff:  diffStr,
		Lines:        lines,
		IsNewFile:    oldContent == "",
		AddedCount:   added,
		RemovedCount: removed,
	}
}

// hunkHeaderRegex captures the old/new starting line numbers from an
// "@@ -1,3 +1,4 @@" header.
var hunkHeaderRegex = regexp.MustCompile(`^@@\s+-(\d+)(?:,\d+)?\s+\+(\d+)(?:,\d+)?\s+@@`)

// ParseDiffLines turns unified-diff text into typed lines with running
// old/new line numbers.
func ParseDiffLines(unifiedDiff string) []DiffLine {
	if unifiedDiff == "" {
		return nil
	}

	var out []DiffLine
	var oldLineNo, newLineNo int

	appendContext := func(content string) {
		out = append(out, DiffLine{
			Type:      DiffLineContext,
			Content:   content,
			OldLineNo: oldLineNo,
			NewLineNo: newLineNo,
		})
		oldLineNo++
		newLineNo++
	}

	for _, line := range strings.Split(unifiedDiff, "\n") {
		switch {
		case strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++"):
			// File headers carry no line content.
			continue

		case strings.HasPrefix(line, "\\"):
			// "\ No newline at end of file" and friends: metadata, no
			// line-number advance.
			out = append(out, DiffLine{
				Type:    DiffLineMetadata,
				Content: strings.TrimPrefix(line, "\\ "),
			})
			continue
		}

		if matches := hunkHeaderRegex.FindStringSubmatch(line); matches != nil {
			oldLineNo, _ = strconv.Atoi(matches[1])
			newLineNo, _ = strconv.Atoi(matches[2])
			out = append(out, DiffLine{Type: DiffLineHunk, Content: line})
			continue
		}

		if line == "" {
			appendContext("")
			continue
		}

		content := line[1:]
		switch line[0] {
		case '+':
			out = append(out, DiffLine{Type: DiffLineAdded, Content: content, NewLineNo: newLineNo})
			newLineNo++
		case '-':
			out = append(out, DiffLine{Type: DiffLineRemoved, Content: content, OldLineNo: oldLineNo})
			oldLineNo++
		case ' ':
			appendContext(content)
		default:
			// Unknown prefix: keep the whole line as context.
			appendContext(line)
		}
	}

	return out
}

// GenerateNewFileDiff builds the all-additions diff for a file that
// doesn't exist yet.
func GenerateNewFileDiff(filePath, content string) *DiffMetadata {
	lines := strings.Split(content, "\n")
	diffLines := make([]DiffLine, 0, len(lines)+1)

	diffLines = append(diffLines, DiffLine{
		Type:    DiffLineHunk,
		Content: fmt.Sprintf("@@ -0,0 +1,%d @@", len(lines)),
	})
	for i, line := range lines {
		diffLines = append(diffLines, DiffLine{
			Type:      DiffLineAdded,
			Content:   line,
			NewLineNo: i + 1,
		})
	}

	return &DiffMetadata{
		NewContent: content,
		Lines:      diffLines,
		IsNewFile:  true,
		AddedCount: len(lines),
	}
}

// GeneratePreview builds a plain content preview (every line rendered as
// context), used by the Write tool where a diff against the old content
// is less useful than seeing the file as it will be.
func GeneratePreview(filePath, content string, isNewFile bool) *DiffMetadata {
	lines := strings.Split(content, "\n")
	previewLines := make([]DiffLine, 0, len(lines))
	for i, line := range lines {
		previewLines = append(previewLines, DiffLine{
			Type:      DiffLineContext,
			Content:   line,
			NewLineNo: i + 1,
		})
	}

	return &DiffMetadata{
		NewContent:  content,
		Lines:       previewLines,
		IsNewFile:   isNewFile,
		PreviewMode: true,
		AddedCount:  len(lines),
	}
}
