package tool

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

const (
	maxGrepMatches = 50
	maxGrepFiles   = 100
)

// GrepTool searches file contents with a case-insensitive regex,
// optionally filtered by an include pattern on file names.
type GrepTool struct{}

func (t *GrepTool) Name() string        { return "Grep" }
func (t *GrepTool) Description() string { return "Search for patterns in files" }
func (t *GrepTool) Icon() string        { return ui.IconGrep }

func (t *GrepTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	start := time.Now()

	pattern, ok := params["pattern"].(string)
	if !ok || pattern == "" {
		return ui.NewErrorResult(t.Name(), "pattern is required")
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return ui.NewErrorResult(t.Name(), "invalid pattern: "+err.Error())
	}

	basePath := cwd
	if path, ok := params["path"].(string); ok && path != "" {
		basePath = resolvePath(path, cwd)
	}
	includePattern, _ := params["include"].(string)

	info, err := os.Stat(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return ui.NewErrorResult(t.Name(), "path not found: "+basePath)
		}
		return ui.NewErrorResult(t.Name(), "failed to access path: "+err.Error())
	}

	var matches []ui.ContentLine
	filesSearched := 0

	searchFile := func(filePath, relPath string) error {
		file, err := os.Open(filePath)
		if err != nil {
			return nil // unreadable files are skipped, not reported
		}
		defer file.Close()

		header := make([]byte, 512)
		if n, _ := file.Read(header); n > 0 && bytes.IndexByte(header[:n], 0) >= 0 {
			return nil // binary
		}
		file.Seek(0, 0)

		scanner := bufio.NewScanner(file)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if !re.MatchString(line) {
				continue
			}

			display := line
			if len(display) > maxLineLength {
				display = display[:maxLineLength] + "..."
			}
			matches = append(matches, ui.ContentLine{
				LineNo: lineNo,
				Text:   strings.TrimSpace(display),
				Type:   ui.LineMatch,
				File:   relPath,
			})
			if len(matches) >= maxGrepMatches {
				return filepath.SkipAll
			}
		}
		return nil
	}

	if !info.IsDir() {
		searchFile(basePath, filepath.Base(basePath))
	} else {
		filepath.WalkDir(basePath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if d.IsDir() {
				if ignoredDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if includePattern != "" {
				if matched, _ := filepath.Match(includePattern, d.Name()); !matched {
					return nil
				}
			}

			relPath, err := filepath.Rel(basePath, path)
			if err != nil {
				relPath = path
			}
			filesSearched++
			if filesSearched > maxGrepFiles {
				return filepath.SkipAll
			}
			return searchFile(path, relPath)
		})
	}

	subtitle := "pattern: \"" + pattern + "\""
	if includePattern != "" {
		subtitle += " (" + includePattern + ")"
	}

	return ui.ToolResult{
		Success: true,
		Lines:   matches,
		Metadata: ui.ResultMetadata{
			Title:     t.Name(),
			Icon:      t.Icon(),
			Subtitle:  subtitle,
			ItemCount: len(matches),
			Duration:  time.Since(start),
			Truncated: len(matches) >= maxGrepMatches,
		},
	}
}

func init() {
	Register(&GrepTool{})
}
