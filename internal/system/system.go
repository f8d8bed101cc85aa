// Package system assembles the system prompt for an agent loop: a base
// identity section, a tool-usage section, a backend-specific section, a
// dynamic environment block, and optional memory/plan-mode/extension
// sections layered on top.
package system

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arjunsethi/agentcore/internal/backend"
	"github.com/arjunsethi/agentcore/internal/log"
)

// maxImportDepth bounds @import recursion in memory files.
const maxImportDepth = 5

//go:embed prompts/*.txt
var promptFS embed.FS

// Config parameterizes one prompt assembly.
type Config struct {
	Backend  string // backend name: anthropic, openai, gemini
	Model    string
	Cwd      string
	IsGit    bool

	Memory   string
	PlanMode bool
	Extra    []string
}

// System builds a loop's system prompt from live fields (backend identity,
// cwd, mode) rather than a frozen Config, so it reflects the loop's current
// state on every turn.
type System struct {
	Client   *backend.Client
	Cwd      string
	IsGit    bool
	PlanMode bool
	Extra    []string
	Memory   string
}

// Prompt builds the complete system prompt from the System's current state.
func (s *System) Prompt() string {
	backendName := ""
	modelID := ""
	if s.Client != nil {
		// Client.Name() is "vendor:auth-method"; only the vendor selects a
		// prompt section.
		backendName, _, _ = strings.Cut(s.Client.Name(), ":")
		modelID = s.Client.ModelID()
	}
	memory := s.Memory
	if memory == "" {
		memory = LoadMemory(s.Cwd)
	}
	return BuildPrompt(Config{
		Backend:  backendName,
		Model:    modelID,
		Cwd:      s.Cwd,
		IsGit:    s.IsGit,
		PlanMode: s.PlanMode,
		Memory:   memory,
		Extra:    s.Extra,
	})
}

// BuildPrompt assembles base + tools + backend-specific + environment,
// plus optional plan-mode, memory, and extension sections.
func BuildPrompt(cfg Config) string {
	base := load("base.txt")
	tools := load("tools.txt")
	backendPrompt := backendOrGeneric(cfg.Backend)
	env := formatEnv(cfg)

	if base == "" {
		log.Logger().Warn("system prompt: base.txt missing or empty")
	}

	parts := []string{base, tools, backendPrompt, env}

	if cfg.PlanMode {
		if planPrompt := load("planmode.txt"); planPrompt != "" {
			parts = append(parts, planPrompt)
		}
	}
	if cfg.Memory != "" {
		parts = append(parts, formatMemory(cfg.Memory))
	}
	parts = append(parts, cfg.Extra...)

	result := join(parts)

	preview := result
	if len(preview) > 100 {
		preview = preview[:100]
	}
	log.Logger().Debug("system prompt assembled",
		zap.Int("total_len", len(result)),
		zap.String("first_100", preview))

	return result
}

func load(name string) string {
	data, err := promptFS.ReadFile("prompts/" + name)
	if err != nil {
		return ""
	}
	return string(data)
}

// backendOrGeneric returns the backend-specific prompt section if present,
// falling back to generic.txt (used by backends without a tailored
// section, and by tests with no backend configured).
func backendOrGeneric(name string) string {
	if name == "" {
		return load("generic.txt")
	}
	data, err := promptFS.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return load("generic.txt")
	}
	return string(data)
}

func formatEnv(cfg Config) string {
	gitStatus := "No"
	if cfg.IsGit {
		gitStatus = "Yes"
	}
	return fmt.Sprintf(`<env>
Working directory: %s
Is git repo: %s
Platform: %s
Date: %s
Model: %s
</env>`, cfg.Cwd, gitStatus, runtime.GOOS, time.Now().Format("2006-01-02"), cfg.Model)
}

func formatMemory(m string) string {
	return "<memory>\n" + m + "\n</memory>"
}

func join(parts []string) string {
	var filtered []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			filtered = append(filtered, p)
		}
	}
	return strings.Join(filtered, "\n\n")
}

// CompactPrompt returns the system prompt used for the dedicated
// non-streaming compaction call.
func CompactPrompt() string {
	return load("compact.txt")
}

// MemoryFile is one loaded memory source with provenance metadata.
type MemoryFile struct {
	Path    string
	Size    int64
	Content string
	Level   string // "global", "project", or "local"
	Source  string // "rules" for rules-directory files, empty otherwise
}

// LoadMemory concatenates all applicable memory files for cwd.
func LoadMemory(cwd string) string {
	files := LoadMemoryFiles(cwd)
	if len(files) == 0 {
		return ""
	}
	var parts []string
	for _, f := range files {
		parts = append(parts, f.Content)
	}
	return strings.Join(parts, "\n\n")
}

// LoadMemoryFiles loads memory in order: global, global rules, project,
// project rules, local. AGENTCORE.md is preferred at each level; CLAUDE.md
// is read as a compatibility fallback, same as the config package's
// settings-file precedence.
func LoadMemoryFiles(cwd string) []MemoryFile {
	var files []MemoryFile
	homeDir, _ := os.UserHomeDir()
	seen := make(map[string]bool)

	userSources := []string{
		filepath.Join(homeDir, ".agentcore", "AGENTCORE.md"),
		filepath.Join(homeDir, ".claude", "CLAUDE.md"),
	}
	if f := loadMemoryFile(userSources, "global", "", seen); f != nil {
		files = append(files, *f)
	}
	files = append(files, loadRulesDirectory(filepath.Join(homeDir, ".agentcore", "rules"), "global", seen)...)

	projectSources := []string{
		filepath.Join(cwd, ".agentcore", "AGENTCORE.md"),
		filepath.Join(cwd, "AGENTCORE.md"),
		filepath.Join(cwd, ".claude", "CLAUDE.md"),
		filepath.Join(cwd, "CLAUDE.md"),
	}
	if f := loadMemoryFile(projectSources, "project", "", seen); f != nil {
		files = append(files, *f)
	}
	files = append(files, loadRulesDirectory(filepath.Join(cwd, ".agentcore", "rules"), "project", seen)...)

	localSources := []string{filepath.Join(cwd, ".agentcore", "AGENTCORE.local.md")}
	if f := loadMemoryFile(localSources, "local", "", seen); f != nil {
		files = append(files, *f)
	}

	return files
}

func loadMemoryFile(sources []string, level, source string, seen map[string]bool) *MemoryFile {
	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			continue
		}
		if seen[src] {
			continue
		}
		data, err := os.ReadFile(src)
		if err != nil {
			continue
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			continue
		}
		seen[src] = true
		content = resolveImports(content, filepath.Dir(src), 0, seen)

		return &MemoryFile{
			Path:    src,
			Size:    info.Size(),
			Content: fmt.Sprintf("<!-- Source: %s -->\n%s", src, content),
			Level:   level,
			Source:  source,
		}
	}
	return nil
}

func loadRulesDirectory(dir string, level string, seen map[string]bool) []MemoryFile {
	var files []MemoryFile

	entries, err := os.ReadDir(dir)
	if err != nil {
		return files
	}

	var mdFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".md") {
			mdFiles = append(mdFiles, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(mdFiles)

	for _, path := range mdFiles {
		if f := loadMemoryFile([]string{path}, level, "rules", seen); f != nil {
			files = append(files, *f)
		}
	}
	return files
}

// importPattern matches "@path/to/file.md" on its own line.
var importPattern = regexp.MustCompile(`(?m)^@([^\s@]+\.md)\s*$`)

func resolveImports(content string, basePath string, depth int, seen map[string]bool) string {
	if depth >= maxImportDepth {
		return content
	}
	return importPattern.ReplaceAllStringFunc(content, func(match string) string {
		importPath := strings.TrimPrefix(strings.TrimSpace(match), "@")
		fullPath := filepath.Clean(filepath.Join(basePath, importPath))

		if seen[fullPath] {
			return fmt.Sprintf("<!-- Skipped (cycle): @%s -->", importPath)
		}
		data, err := os.ReadFile(fullPath)
		if err != nil {
			return fmt.Sprintf("<!-- Import not found: @%s -->", importPath)
		}
		seen[fullPath] = true
		imported := resolveImports(strings.TrimSpace(string(data)), filepath.Dir(fullPath), depth+1, seen)
		return fmt.Sprintf("<!-- Imported: %s -->\n%s", importPath, imported)
	})
}
