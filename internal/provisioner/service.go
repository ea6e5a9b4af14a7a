// Package provisioner creates a remote repository, renders the requested
// template and pushes the result as the repository's initial commit.
package provisioner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/recap-org/backend/internal/generator"
	"github.com/recap-org/backend/internal/gitcmd"
	"github.com/recap-org/backend/internal/github"
	"github.com/recap-org/backend/internal/templates"
)

// ErrMissingToken means no GitHub token was available for provisioning.
var ErrMissingToken = errors.New("missing GitHub token")

// GitError reports a failed local git step before the push.
type GitError struct {
	Step   string
	Stderr string
}

func (e *GitError) Error() string {
	return fmt.Sprintf("git %s failed: %s", e.Step, strings.TrimSpace(e.Stderr))
}

// PushError reports a failed push. The remote repository already exists at
// this point and is not rolled back.
type PushError struct {
	Stderr string
}

func (e *PushError) Error() string {
	return fmt.Sprintf("git push failed: %s", strings.TrimSpace(e.Stderr))
}

// Options are the repository settings accepted alongside template
// overrides.
type Options struct {
	Description         string
	Private             bool
	Org                 string
	AllowSquashMerge    *bool
	AllowMergeCommit    *bool
	AllowRebaseMerge    *bool
	DeleteBranchOnMerge *bool
}

// Service orchestrates repository creation, rendering and the initial
// push.
type Service struct {
	gen        *generator.Generator
	gh         *github.Client
	git        gitcmd.Runner
	defaultOrg string
	logger     *zap.Logger
}

// New creates a provisioner service.
func New(gen *generator.Generator, gh *github.Client, git gitcmd.Runner, defaultOrg string, logger *zap.Logger) *Service {
	return &Service{gen: gen, gh: gh, git: git, defaultOrg: defaultOrg, logger: logger}
}

// CreateAndPush creates the remote repository, renders the template and
// pushes the rendered tree to the remote's default branch with the bearer
// token embedded in the push URL. The rendered temporary directory is
// deleted on every exit path.
func (s *Service) CreateAndPush(ctx context.Context, name string, overrides map[string]any, token string, opts Options) (*github.Repository, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	// Build the render context up front: it validates the overrides and
	// yields the project name the repository is named after.
	renderContext, err := s.gen.Builder().Build(name, overrides, "")
	if err != nil {
		return nil, err
	}
	projectName, _ := renderContext["project_name"].(string)
	repoName := templates.Slugify(projectName)

	org := opts.Org
	if org == "" {
		org = s.defaultOrg
	}

	repo, err := s.gh.CreateRepository(ctx, token, github.CreateRepoOptions{
		Name:                repoName,
		Description:         opts.Description,
		Private:             opts.Private,
		Org:                 org,
		AllowSquashMerge:    opts.AllowSquashMerge,
		AllowMergeCommit:    opts.AllowMergeCommit,
		AllowRebaseMerge:    opts.AllowRebaseMerge,
		DeleteBranchOnMerge: opts.DeleteBranchOnMerge,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.gen.Generate(ctx, name, overrides, repoName)
	if err != nil {
		return nil, err
	}
	defer result.Cleanup()

	if err := s.commitAndPush(ctx, result.OutputDir, repo, overrides, token); err != nil {
		return nil, err
	}

	s.logger.Info("repository provisioned",
		zap.String("template", name),
		zap.String("repository", repo.FullName),
		zap.Bool("private", repo.Private),
	)
	return repo, nil
}

func (s *Service) commitAndPush(ctx context.Context, dir string, repo *github.Repository, overrides map[string]any, token string) error {
	email, userName := committerIdentity(overrides)
	branch := repo.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	steps := [][]string{
		{"init"},
		{"config", "user.email", email},
		{"config", "user.name", userName},
		{"checkout", "-b", branch},
		{"add", "-A"},
		{"commit", "-m", "Initial commit from project template"},
		{"remote", "add", "origin", authenticatedURL(repo.CloneURL, token)},
	}
	for _, args := range steps {
		out, err := s.git.Run(ctx, dir, args...)
		if err != nil {
			return &GitError{Step: args[0], Stderr: err.Error()}
		}
		if out.ExitCode != 0 {
			return &GitError{Step: args[0], Stderr: out.Stderr}
		}
	}

	out, err := s.git.Run(ctx, dir, "push", "--set-upstream", "origin", branch)
	if err != nil {
		return &PushError{Stderr: err.Error()}
	}
	if out.ExitCode != 0 {
		return &PushError{Stderr: out.Stderr}
	}
	return nil
}

// committerIdentity derives the commit author from caller-supplied
// override fields, with fixed fallbacks.
func committerIdentity(overrides map[string]any) (email, name string) {
	email = stringOr(overrides["email"], "noreply@example.com")
	first := stringOr(overrides["first_name"], "User")
	last := stringOr(overrides["last_name"], "")
	name = strings.TrimSpace(first + " " + last)
	return email, name
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

// authenticatedURL embeds the bearer token as the URL's userinfo
// component.
func authenticatedURL(cloneURL, token string) string {
	return strings.Replace(cloneURL, "https://", "https://"+token+"@", 1)
}
