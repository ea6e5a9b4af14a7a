package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/recap-org/backend/internal/templates"
)

// writeTemplateFixture lays out a registry root with one "article"
// template rendered by the built-in engine.
func writeTemplateFixture(t *testing.T) *templates.Registry {
	t.Helper()
	root := t.TempDir()

	mustWrite(t, filepath.Join(root, "cookiecutter.json"),
		`{"templates": {"article": {"path": "article", "title": "Article", "description": "A writing project"}}}`)

	dir := filepath.Join(root, "article")
	projectDir := filepath.Join(dir, "{{ .project_name }}")
	if err := os.MkdirAll(filepath.Join(projectDir, "src"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	mustWrite(t, filepath.Join(dir, "cookiecutter.json"),
		`{"project_name": "Article", "author": "Anonymous"}`)
	mustWrite(t, filepath.Join(projectDir, "README.md"),
		"# {{ .project_name }}\nBy {{ .author }}\n")
	mustWrite(t, filepath.Join(projectDir, "src", "main.txt"), "static content\n")
	return templates.NewRegistry(root)
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestGenerateRendersProject(t *testing.T) {
	reg := writeTemplateFixture(t)
	gen := New(reg, NewTemplateEngine(), zap.NewNop())

	res, err := gen.Generate(context.Background(), "article", map[string]any{"project_name": "My Project"}, "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	defer res.Cleanup()

	if filepath.Base(res.OutputDir) != "My Project" {
		t.Errorf("output dir = %s, want base 'My Project'", res.OutputDir)
	}
	body, err := os.ReadFile(filepath.Join(res.OutputDir, "README.md"))
	if err != nil {
		t.Fatalf("read rendered file: %v", err)
	}
	want := "# My Project\nBy Anonymous\n"
	if string(body) != want {
		t.Errorf("rendered README = %q, want %q", body, want)
	}
	if _, err := os.Stat(filepath.Join(res.OutputDir, "src", "main.txt")); err != nil {
		t.Errorf("nested file missing: %v", err)
	}
	// The template's schema file is not part of the render output.
	if _, err := os.Stat(filepath.Join(res.OutputDir, "cookiecutter.json")); !os.IsNotExist(err) {
		t.Error("schema file leaked into rendered project")
	}
}

func TestGenerateUnknownTemplate(t *testing.T) {
	reg := writeTemplateFixture(t)
	gen := New(reg, NewTemplateEngine(), zap.NewNop())

	_, err := gen.Generate(context.Background(), "nonexistent", nil, "")
	if !errors.Is(err, templates.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestGenerateTypeMismatchLeavesNoWorkspace(t *testing.T) {
	reg := writeTemplateFixture(t)
	engine := &recordingEngine{}
	gen := New(reg, engine, zap.NewNop())

	_, err := gen.Generate(context.Background(), "article", map[string]any{"author": true}, "")
	var mismatch *templates.TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
	if engine.calls != 0 {
		t.Error("engine invoked despite validation failure")
	}
}

func TestGenerateEngineFailureDeletesTempDir(t *testing.T) {
	reg := writeTemplateFixture(t)
	engine := &recordingEngine{err: errors.New("render exploded")}
	gen := New(reg, engine, zap.NewNop())

	_, err := gen.Generate(context.Background(), "article", nil, "")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if engine.outputDir == "" {
		t.Fatal("engine never called")
	}
	if _, statErr := os.Stat(engine.outputDir); !os.IsNotExist(statErr) {
		t.Errorf("temp dir %s still exists after engine failure", engine.outputDir)
	}
}

func TestGenerateFallbackProjectName(t *testing.T) {
	reg := writeTemplateFixture(t)
	engine := &recordingEngine{}
	gen := New(reg, engine, zap.NewNop())

	res, err := gen.Generate(context.Background(), "article", nil, "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	defer res.Cleanup()
	// Schema default wins when present.
	if res.Context["project_name"] != "Article" {
		t.Errorf("project_name = %v", res.Context["project_name"])
	}
}

// recordingEngine is a scriptable engine fake.
type recordingEngine struct {
	calls     int
	outputDir string
	err       error
}

func (e *recordingEngine) Render(_ context.Context, _, outputDir string, vars map[string]any) (string, error) {
	e.calls++
	e.outputDir = outputDir
	if e.err != nil {
		return "", e.err
	}
	dir := filepath.Join(outputDir, "rendered")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
