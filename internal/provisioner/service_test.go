package provisioner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/recap-org/backend/internal/generator"
	"github.com/recap-org/backend/internal/gitcmd"
	"github.com/recap-org/backend/internal/github"
	"github.com/recap-org/backend/internal/templates"
)

// scriptRunner scripts git steps: every command succeeds unless its first
// argument matches failOn.
type scriptRunner struct {
	calls  [][]string
	dirs   []string
	failOn string
	stderr string
}

func (r *scriptRunner) Run(_ context.Context, dir string, args ...string) (gitcmd.Output, error) {
	r.calls = append(r.calls, args)
	r.dirs = append(r.dirs, dir)
	if r.failOn != "" && args[0] == r.failOn {
		return gitcmd.Output{ExitCode: 1, Stderr: r.stderr}, nil
	}
	return gitcmd.Output{ExitCode: 0}, nil
}

func writeTemplateFixture(t *testing.T) *templates.Registry {
	t.Helper()
	root := t.TempDir()
	write := func(path, content string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	write(filepath.Join(root, "cookiecutter.json"),
		`{"templates": {"article": {"path": "article", "title": "Article", "description": ""}}}`)
	dir := filepath.Join(root, "article")
	if err := os.MkdirAll(filepath.Join(dir, "{{ .project_name }}"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	write(filepath.Join(dir, "cookiecutter.json"), `{"project_name": "Article"}`)
	write(filepath.Join(dir, "{{ .project_name }}", "README.md"), "# {{ .project_name }}\n")
	return templates.NewRegistry(root)
}

func githubStub(t *testing.T, status int, body map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
}

func newService(t *testing.T, apiURL string, git gitcmd.Runner) *Service {
	t.Helper()
	gen := generator.New(writeTemplateFixture(t), generator.NewTemplateEngine(), zap.NewNop())
	return New(gen, github.NewClient(apiURL, apiURL+"/token"), git, "", zap.NewNop())
}

func TestCreateAndPushRequiresToken(t *testing.T) {
	svc := newService(t, "http://unused.invalid", &scriptRunner{})
	_, err := svc.CreateAndPush(context.Background(), "article", nil, "", Options{})
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestCreateAndPushHappyPath(t *testing.T) {
	srv := githubStub(t, http.StatusCreated, map[string]any{
		"id": 7, "name": "my-project", "full_name": "octocat/my-project",
		"private": true, "clone_url": "https://github.com/octocat/my-project.git",
		"default_branch": "trunk",
	})
	defer srv.Close()

	git := &scriptRunner{}
	svc := newService(t, srv.URL, git)

	repo, err := svc.CreateAndPush(context.Background(), "article",
		map[string]any{"project_name": "My Project"}, "tok123", Options{Private: true})
	if err != nil {
		t.Fatalf("CreateAndPush failed: %v", err)
	}
	if repo.FullName != "octocat/my-project" {
		t.Errorf("repo = %+v", repo)
	}

	wantFirstArgs := []string{"init", "config", "config", "checkout", "add", "commit", "remote", "push"}
	if len(git.calls) != len(wantFirstArgs) {
		t.Fatalf("git calls = %d, want %d: %v", len(git.calls), len(wantFirstArgs), git.calls)
	}
	for i, want := range wantFirstArgs {
		if git.calls[i][0] != want {
			t.Errorf("step %d = %v, want %s", i, git.calls[i], want)
		}
	}

	// Branch named after the remote's reported default branch.
	checkout := git.calls[3]
	if checkout[2] != "trunk" {
		t.Errorf("checkout branch = %s, want trunk", checkout[2])
	}

	// Token embedded as userinfo in the remote URL.
	remote := git.calls[6]
	if remote[3] != "https://tok123@github.com/octocat/my-project.git" {
		t.Errorf("remote url = %s", remote[3])
	}

	push := git.calls[7]
	if push[len(push)-1] != "trunk" {
		t.Errorf("push args = %v", push)
	}

	// All git steps ran inside the rendered tree, which is gone afterwards.
	if _, err := os.Stat(git.dirs[0]); !os.IsNotExist(err) {
		t.Errorf("rendered tree %s not cleaned up", git.dirs[0])
	}
}

func TestCreateAndPushDefaultCommitterIdentity(t *testing.T) {
	srv := githubStub(t, http.StatusCreated, map[string]any{
		"id": 1, "name": "article", "full_name": "o/article",
		"clone_url": "https://github.com/o/article.git",
	})
	defer srv.Close()

	git := &scriptRunner{}
	svc := newService(t, srv.URL, git)
	if _, err := svc.CreateAndPush(context.Background(), "article", nil, "tok", Options{}); err != nil {
		t.Fatalf("CreateAndPush failed: %v", err)
	}

	emailCfg, nameCfg := git.calls[1], git.calls[2]
	if emailCfg[2] != "noreply@example.com" {
		t.Errorf("committer email = %s", emailCfg[2])
	}
	if nameCfg[2] != "User" {
		t.Errorf("committer name = %q", nameCfg[2])
	}
}

func TestCreateAndPushCustomCommitterIdentity(t *testing.T) {
	srv := githubStub(t, http.StatusCreated, map[string]any{
		"id": 1, "name": "article", "full_name": "o/article",
		"clone_url": "https://github.com/o/article.git",
	})
	defer srv.Close()

	git := &scriptRunner{}
	svc := newService(t, srv.URL, git)
	overrides := map[string]any{
		"email":      "ada@example.org",
		"first_name": "Ada",
		"last_name":  "Lovelace",
	}
	if _, err := svc.CreateAndPush(context.Background(), "article", overrides, "tok", Options{}); err != nil {
		t.Fatalf("CreateAndPush failed: %v", err)
	}
	if git.calls[1][2] != "ada@example.org" || git.calls[2][2] != "Ada Lovelace" {
		t.Errorf("committer identity = %s / %s", git.calls[1][2], git.calls[2][2])
	}
}

func TestCreateAndPushUpstreamValidationError(t *testing.T) {
	srv := githubStub(t, http.StatusUnprocessableEntity, map[string]any{
		"message": "Validation Failed",
		"errors":  []map[string]any{{"field": "name", "code": "already_exists"}},
	})
	defer srv.Close()

	git := &scriptRunner{}
	svc := newService(t, srv.URL, git)
	_, err := svc.CreateAndPush(context.Background(), "article", nil, "tok", Options{})
	var apiErr *github.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if len(git.calls) != 0 {
		t.Error("git invoked although repository creation failed")
	}
}

func TestCreateAndPushPushFailure(t *testing.T) {
	srv := githubStub(t, http.StatusCreated, map[string]any{
		"id": 1, "name": "article", "full_name": "o/article",
		"clone_url": "https://github.com/o/article.git",
	})
	defer srv.Close()

	git := &scriptRunner{failOn: "push", stderr: "remote: permission denied"}
	svc := newService(t, srv.URL, git)
	_, err := svc.CreateAndPush(context.Background(), "article", nil, "tok", Options{})
	var pushErr *PushError
	if !errors.As(err, &pushErr) {
		t.Fatalf("expected PushError, got %v", err)
	}
	if !strings.Contains(pushErr.Error(), "permission denied") {
		t.Errorf("push error %q does not carry stderr", pushErr.Error())
	}
	// Temp dir deleted even on push failure.
	if _, statErr := os.Stat(git.dirs[0]); !os.IsNotExist(statErr) {
		t.Errorf("rendered tree %s not cleaned up after push failure", git.dirs[0])
	}
}

func TestCreateAndPushTypeMismatchBeforeRepoCreation(t *testing.T) {
	// The API stub fails the test if it is ever called.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("repository creation attempted despite invalid overrides")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newService(t, srv.URL, &scriptRunner{})
	_, err := svc.CreateAndPush(context.Background(), "article",
		map[string]any{"project_name": true}, "tok", Options{})
	var mismatch *templates.TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
}
