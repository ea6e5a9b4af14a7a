// Package generator renders a named template into a fresh, exclusively
// owned temporary directory.
package generator

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/recap-org/backend/internal/templates"
)

// ErrGenerationFailed wraps any rendering-engine failure.
var ErrGenerationFailed = errors.New("project generation failed")

// Result is a rendered project. TempDir is owned by the caller, which must
// call Cleanup exactly once on every exit path, success or failure.
type Result struct {
	TempDir      string
	OutputDir    string
	TemplatePath string
	Context      map[string]any
}

// Cleanup deletes the temporary directory and everything under it.
func (r *Result) Cleanup() {
	if r != nil && r.TempDir != "" {
		os.RemoveAll(r.TempDir)
	}
}

// Generator resolves templates, builds render contexts and drives the
// rendering engine.
type Generator struct {
	registry *templates.Registry
	builder  *templates.Builder
	engine   Engine
	logger   *zap.Logger
}

// New creates a generator over the given registry and engine.
func New(registry *templates.Registry, engine Engine, logger *zap.Logger) *Generator {
	return &Generator{
		registry: registry,
		builder:  templates.NewBuilder(registry),
		engine:   engine,
		logger:   logger,
	}
}

// Builder exposes the generator's context builder so callers can derive
// project names without rendering.
func (g *Generator) Builder() *templates.Builder {
	return g.builder
}

// Generate renders the named template with the merged context.
// fallbackName substitutes project_name only when the caller supplied
// none. On failure the temporary directory is already deleted.
func (g *Generator) Generate(ctx context.Context, name string, overrides map[string]any, fallbackName string) (*Result, error) {
	templatePath, err := g.registry.Resolve(name)
	if err != nil {
		return nil, err
	}

	renderContext, err := g.builder.Build(name, overrides, fallbackName)
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "recap-render-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	outputDir, err := g.engine.Render(ctx, templatePath, tempDir, renderContext)
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	g.logger.Info("project rendered",
		zap.String("template", name),
		zap.String("output_dir", outputDir),
	)

	return &Result{
		TempDir:      tempDir,
		OutputDir:    outputDir,
		TemplatePath: templatePath,
		Context:      renderContext,
	}, nil
}
