package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/recap-org/backend/internal/archive"
	"github.com/recap-org/backend/internal/generator"
	"github.com/recap-org/backend/internal/github"
	"github.com/recap-org/backend/internal/middleware"
	"github.com/recap-org/backend/internal/provisioner"
	"github.com/recap-org/backend/internal/session"
	"github.com/recap-org/backend/internal/templates"
)

// TemplateHandler serves template discovery, download and repository
// provisioning endpoints.
type TemplateHandler struct {
	registry    *templates.Registry
	generator   *generator.Generator
	provisioner *provisioner.Service
	sessions    session.Provider
	serverToken string
	metrics     *middleware.Metrics
	logger      *zap.Logger
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(
	registry *templates.Registry,
	gen *generator.Generator,
	prov *provisioner.Service,
	sessions session.Provider,
	serverToken string,
	metrics *middleware.Metrics,
	logger *zap.Logger,
) *TemplateHandler {
	return &TemplateHandler{
		registry:    registry,
		generator:   gen,
		provisioner: prov,
		sessions:    sessions,
		serverToken: serverToken,
		metrics:     metrics,
		logger:      logger,
	}
}

// List returns the template index.
func (h *TemplateHandler) List(c *gin.Context) {
	idx, err := h.registry.LoadIndex()
	if err != nil {
		h.respondTemplateError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": idx})
}

// GetSchema returns a template's variable schema, reserved keys removed.
func (h *TemplateHandler) GetSchema(c *gin.Context) {
	schema, err := h.registry.LoadSchema(c.Param("name"))
	if err != nil {
		h.respondTemplateError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates.StripReserved(schema))
}

// Download renders a template with the posted overrides and streams the
// result as a zip attachment.
func (h *TemplateHandler) Download(c *gin.Context) {
	name := c.Param("name")
	overrides, ok := h.bindOverrides(c)
	if !ok {
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), name, overrides, "")
	if err != nil {
		h.respondTemplateError(c, err)
		return
	}
	defer result.Cleanup()

	data, err := archive.BuildZip(result.OutputDir)
	if err != nil {
		middleware.InternalError(c, middleware.ErrCodeGenerationFailed,
			fmt.Sprintf("Error generating template: %v", err))
		return
	}

	projectName, _ := result.Context["project_name"].(string)
	filename := templates.Slugify(projectName) + ".zip"

	if h.metrics != nil {
		h.metrics.ProjectsGenerated.Inc()
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/zip", data)
}

// repoOptionKeys are peeled off the request body before the rest is
// treated as template overrides.
var repoOptionKeys = map[string]struct{}{
	"description":            {},
	"private":                {},
	"org":                    {},
	"allow_squash_merge":     {},
	"allow_merge_commit":     {},
	"allow_rebase_merge":     {},
	"delete_branch_on_merge": {},
}

// CreateRepo creates a GitHub repository and pushes a generated project
// into it.
func (h *TemplateHandler) CreateRepo(c *gin.Context) {
	name := c.Param("name")
	body, ok := h.bindOverrides(c)
	if !ok {
		return
	}

	opts, overrides := splitRepoOptions(body)

	token := h.resolveToken(c)
	if token == "" {
		middleware.Unauthorized(c,
			"Missing GitHub token. Provide 'Authorization: Bearer <token>' header, sign in via /auth/github/login, or set GITHUB_TOKEN.")
		return
	}

	repo, err := h.provisioner.CreateAndPush(c.Request.Context(), name, overrides, token, opts)
	if err != nil {
		if h.metrics != nil {
			var pushErr *provisioner.PushError
			if errors.As(err, &pushErr) {
				h.metrics.PushFailures.Inc()
			}
		}
		h.respondProvisionError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ReposProvisioned.Inc()
	}
	c.JSON(http.StatusCreated, repo)
}

// bindOverrides decodes the optional JSON request body.
func (h *TemplateHandler) bindOverrides(c *gin.Context) (map[string]any, bool) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		middleware.BadRequest(c, middleware.ErrCodeBadRequest, "unreadable request body")
		return nil, false
	}
	if len(raw) == 0 {
		return map[string]any{}, true
	}
	var overrides map[string]any
	if err := json.Unmarshal(raw, &overrides); err != nil {
		middleware.BadRequest(c, middleware.ErrCodeBadRequest, "request body must be a JSON object")
		return nil, false
	}
	if overrides == nil {
		overrides = map[string]any{}
	}
	return overrides, true
}

// resolveToken picks the GitHub token: bearer header, then session, then
// the configured server token.
func (h *TemplateHandler) resolveToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if h.sessions != nil {
		if token, ok := h.sessions(c).Get(session.KeyGitHubToken); ok {
			return token
		}
	}
	return h.serverToken
}

func splitRepoOptions(body map[string]any) (provisioner.Options, map[string]any) {
	opts := provisioner.Options{Private: true}
	if v, ok := body["description"].(string); ok {
		opts.Description = v
	}
	if v, ok := body["private"].(bool); ok {
		opts.Private = v
	}
	if v, ok := body["org"].(string); ok {
		opts.Org = v
	}
	opts.AllowSquashMerge = boolOption(body, "allow_squash_merge")
	opts.AllowMergeCommit = boolOption(body, "allow_merge_commit")
	opts.AllowRebaseMerge = boolOption(body, "allow_rebase_merge")
	opts.DeleteBranchOnMerge = boolOption(body, "delete_branch_on_merge")

	overrides := make(map[string]any, len(body))
	for k, v := range body {
		if _, isOption := repoOptionKeys[k]; isOption {
			continue
		}
		overrides[k] = v
	}
	return opts, overrides
}

func boolOption(body map[string]any, key string) *bool {
	if v, ok := body[key].(bool); ok {
		return &v
	}
	return nil
}

func (h *TemplateHandler) respondTemplateError(c *gin.Context, err error) {
	var mismatch *templates.TypeMismatchError
	switch {
	case errors.As(err, &mismatch):
		middleware.BadRequest(c, middleware.ErrCodeTypeMismatch, mismatch.Error())
	case errors.Is(err, templates.ErrIndexMissing):
		middleware.InternalError(c, middleware.ErrCodeConfigMissing, "Template configuration not found")
	case errors.Is(err, templates.ErrTemplateNotFound):
		middleware.NotFound(c, middleware.ErrCodeTemplateNotFound, err.Error())
	case errors.Is(err, templates.ErrSchemaMissing):
		middleware.NotFound(c, middleware.ErrCodeSchemaMissing, err.Error())
	case errors.Is(err, generator.ErrGenerationFailed):
		middleware.InternalError(c, middleware.ErrCodeGenerationFailed,
			fmt.Sprintf("Error generating template: %v", err))
	default:
		h.logger.Error("template request failed", zap.Error(err))
		middleware.InternalError(c, middleware.ErrCodeInternalError, err.Error())
	}
}

func (h *TemplateHandler) respondProvisionError(c *gin.Context, err error) {
	var apiErr *github.APIError
	var pushErr *provisioner.PushError
	var gitErr *provisioner.GitError

	switch {
	case errors.Is(err, provisioner.ErrMissingToken):
		middleware.Unauthorized(c, "Missing GitHub token.")
	case errors.As(err, &apiErr):
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			middleware.Unauthorized(c, apiErr.Error())
		case http.StatusForbidden:
			middleware.RespondError(c, http.StatusForbidden, middleware.ErrCodeForbidden, apiErr.Error())
		case http.StatusNotFound:
			middleware.NotFound(c, middleware.ErrCodeNotFound, apiErr.Error())
		case http.StatusUnprocessableEntity:
			middleware.RespondError(c, http.StatusUnprocessableEntity, middleware.ErrCodeValidationFailed, apiErr.Error())
		default:
			middleware.UpstreamError(c, apiErr.Error())
		}
	case errors.As(err, &pushErr):
		middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodePushFailed, pushErr.Error())
	case errors.As(err, &gitErr):
		middleware.InternalError(c, middleware.ErrCodeInternalError,
			fmt.Sprintf("Git operation failed: %s", gitErr.Error()))
	case errors.Is(err, github.ErrUpstream):
		middleware.UpstreamError(c, err.Error())
	default:
		h.respondTemplateError(c, err)
	}
}
