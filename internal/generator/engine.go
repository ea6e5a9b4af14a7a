package generator

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
)

// Engine renders a template directory into an output directory with the
// given variable context and returns the rendered project root. Engines
// must never prompt; rendering is fully non-interactive.
type Engine interface {
	Render(ctx context.Context, templateDir, outputDir string, vars map[string]any) (string, error)
}

// TemplateEngine is the built-in engine. Templates are directory trees
// whose path segments and file contents may use Go template syntax over
// the variable context (e.g. a directory named "{{ .project_name }}" or a
// file containing "Hello {{ .author }}"). The template's own schema file
// is not rendered. Symlinks are copied as symlinks with templated targets.
type TemplateEngine struct{}

const schemaFileName = "cookiecutter.json"

// NewTemplateEngine returns the built-in rendering engine.
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{}
}

// Render renders templateDir into outputDir. The rendered project root is
// the template's single top-level directory after name expansion.
func (e *TemplateEngine) Render(ctx context.Context, templateDir, outputDir string, vars map[string]any) (string, error) {
	entries, err := os.ReadDir(templateDir)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}

	var roots []string
	for _, entry := range entries {
		if entry.Name() == schemaFileName {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rendered, err := e.renderEntry(templateDir, outputDir, entry.Name(), vars)
		if err != nil {
			return "", err
		}
		if entry.IsDir() {
			roots = append(roots, rendered)
		}
	}
	if len(roots) == 0 {
		return "", fmt.Errorf("template %s has no project directory", templateDir)
	}
	sort.Strings(roots)
	return roots[0], nil
}

func (e *TemplateEngine) renderEntry(srcDir, dstDir, name string, vars map[string]any) (string, error) {
	renderedName, err := expand(name, vars)
	if err != nil {
		return "", fmt.Errorf("render path %q: %w", name, err)
	}
	src := filepath.Join(srcDir, name)
	dst := filepath.Join(dstDir, renderedName)

	info, err := os.Lstat(src)
	if err != nil {
		return "", err
	}

	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return "", err
		}
		renderedTarget, err := expand(target, vars)
		if err != nil {
			return "", fmt.Errorf("render symlink target %q: %w", target, err)
		}
		return dst, os.Symlink(renderedTarget, dst)

	case info.IsDir():
		if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
			return "", err
		}
		children, err := os.ReadDir(src)
		if err != nil {
			return "", err
		}
		for _, child := range children {
			if _, err := e.renderEntry(src, dst, child.Name(), vars); err != nil {
				return "", err
			}
		}
		return dst, nil

	default:
		raw, err := os.ReadFile(src)
		if err != nil {
			return "", err
		}
		body, err := expand(string(raw), vars)
		if err != nil {
			return "", fmt.Errorf("render %s: %w", name, err)
		}
		return dst, os.WriteFile(dst, []byte(body), info.Mode().Perm())
	}
}

func expand(text string, vars map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New("").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", err
	}
	return sb.String(), nil
}
