package system

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildPromptIncludesCoreSections(t *testing.T) {
	prompt := BuildPrompt(Config{Backend: "anthropic", Model: "claude-x", Cwd: "/tmp/proj", IsGit: true})

	if !strings.Contains(prompt, "Working directory: /tmp/proj") {
		t.Errorf("expected the env block to report the cwd, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Is git repo: Yes") {
		t.Error("expected IsGit true to render as Yes")
	}
	if !strings.Contains(prompt, "Model: claude-x") {
		t.Error("expected the model id to appear in the env block")
	}
}

func TestBuildPromptFallsBackToGenericForUnknownBackend(t *testing.T) {
	prompt := BuildPrompt(Config{Backend: "some-future-vendor"})
	generic := load("generic.txt")
	if !strings.Contains(prompt, generic) {
		t.Error("expected an unrecognized backend to fall back to the generic backend section")
	}
}

func TestBuildPromptOmitsPlanSectionWhenNotInPlanMode(t *testing.T) {
	withPlan := BuildPrompt(Config{PlanMode: true})
	withoutPlan := BuildPrompt(Config{PlanMode: false})
	if len(withPlan) <= len(withoutPlan) {
		t.Error("expected plan mode to add the plan-mode section")
	}
}

func TestBuildPromptAppendsMemoryAndExtras(t *testing.T) {
	prompt := BuildPrompt(Config{Memory: "remember the coffee order", Extra: []string{"extra section"}})
	if !strings.Contains(prompt, "<memory>") || !strings.Contains(prompt, "remember the coffee order") {
		t.Error("expected the memory section to be wrapped and included")
	}
	if !strings.Contains(prompt, "extra section") {
		t.Error("expected extension sections to be appended verbatim")
	}
}

func TestJoinDropsBlankParts(t *testing.T) {
	got := join([]string{"a", "", "  ", "b"})
	want := "a\n\nb"
	if got != want {
		t.Errorf("expected blank parts to be dropped, got %q want %q", got, want)
	}
}

func TestSystemPromptReflectsLiveState(t *testing.T) {
	s := &System{Cwd: "/work", PlanMode: true}
	prompt := s.Prompt()
	if !strings.Contains(prompt, "Working directory: /work") {
		t.Error("expected System.Prompt to use its own Cwd field")
	}
	if !strings.Contains(prompt, load("planmode.txt")) {
		t.Error("expected System.Prompt to honor PlanMode")
	}
}

func TestLoadMemoryFilesPrefersProjectFileOverClaudeCompat(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "AGENTCORE.md"), []byte("agentcore notes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "CLAUDE.md"), []byte("claude notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	files := LoadMemoryFiles(dir)
	var project *MemoryFile
	for i := range files {
		if files[i].Level == "project" {
			project = &files[i]
		}
	}
	if project == nil {
		t.Fatal("expected a project-level memory file")
	}
	if !strings.Contains(project.Content, "agentcore notes") {
		t.Errorf("expected AGENTCORE.md to win over CLAUDE.md, got %q", project.Content)
	}
}

func TestLoadMemoryFilesSkipsEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	files := LoadMemoryFiles(dir)
	if len(files) != 0 {
		t.Errorf("expected no memory files in an empty directory, got %d", len(files))
	}
}

func TestResolveImportsInlinesReferencedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "shared.md"), []byte("shared rule text"), 0o644); err != nil {
		t.Fatal(err)
	}
	content := "top level notes\n@shared.md\n"

	got := resolveImports(content, dir, 0, map[string]bool{})
	if !strings.Contains(got, "shared rule text") {
		t.Errorf("expected the @import to be inlined, got %q", got)
	}
	if !strings.Contains(got, "Imported: shared.md") {
		t.Error("expected an import provenance comment")
	}
}

func TestResolveImportsReportsMissingFile(t *testing.T) {
	got := resolveImports("@nope.md\n", t.TempDir(), 0, map[string]bool{})
	if !strings.Contains(got, "Import not found: @nope.md") {
		t.Errorf("expected a not-found marker, got %q", got)
	}
}

func TestResolveImportsBreaksCycles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.md"), []byte("A\n@b.md\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.md"), []byte("B\n@a.md\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{filepath.Join(dir, "a.md"): true}
	got := resolveImports("@b.md\n", dir, 0, seen)
	if !strings.Contains(got, "Skipped (cycle): @a.md") {
		t.Errorf("expected the cyclic re-import to be short-circuited, got %q", got)
	}
}

func TestResolveImportsStopsAtMaxDepth(t *testing.T) {
	got := resolveImports("@whatever.md\n", t.TempDir(), maxImportDepth, map[string]bool{})
	if strings.Contains(got, "Import not found") {
		t.Error("expected resolveImports to stop recursing at max depth rather than attempt the read")
	}
	if got != "@whatever.md\n" {
		t.Errorf("expected the content to pass through unchanged at max depth, got %q", got)
	}
}
