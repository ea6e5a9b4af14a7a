package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/recap-org/backend/internal/github"
	"github.com/recap-org/backend/internal/middleware"
	"github.com/recap-org/backend/internal/oauthstate"
	"github.com/recap-org/backend/internal/session"
)

// OAuthScopes requested from GitHub at login.
const OAuthScopes = "repo read:user"

// AuthConfig carries the OAuth app settings the handler needs.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	SuccessURL   string
}

// AuthHandler drives the GitHub OAuth delegation flow.
type AuthHandler struct {
	cfg      AuthConfig
	client   *github.Client
	signer   *oauthstate.Signer
	sessions session.Provider
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg AuthConfig, client *github.Client, signer *oauthstate.Signer, sessions session.Provider, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, client: client, signer: signer, sessions: sessions, logger: logger}
}

// Login mints a signed anti-CSRF state, stores it in the session and
// redirects to the GitHub authorize endpoint.
func (h *AuthHandler) Login(c *gin.Context) {
	if h.cfg.ClientID == "" || h.cfg.RedirectURI == "" {
		middleware.InternalError(c, middleware.ErrCodeOAuthNotConfigured,
			"GitHub OAuth not configured (client_id/redirect_uri)")
		return
	}

	state, err := h.signer.Mint()
	if err != nil {
		h.logger.Error("failed to mint OAuth state", zap.Error(err))
		middleware.InternalError(c, middleware.ErrCodeInternalError, "failed to create OAuth state")
		return
	}

	sess := h.sessions(c)
	sess.Set(session.KeyOAuthState, state)
	if err := sess.Save(); err != nil {
		h.logger.Error("failed to persist session", zap.Error(err))
		middleware.InternalError(c, middleware.ErrCodeInternalError, "failed to persist session")
		return
	}

	query := url.Values{
		"client_id":    {h.cfg.ClientID},
		"redirect_uri": {h.cfg.RedirectURI},
		"scope":        {OAuthScopes},
		"state":        {state},
	}
	c.Redirect(http.StatusFound, h.cfg.AuthorizeURL+"?"+query.Encode())
}

// Callback verifies the returned state, exchanges the code for an access
// token and stores it in the session. The stored state must match the
// callback's byte-for-byte and is cleared after use.
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")

	if code == "" {
		middleware.BadRequest(c, middleware.ErrCodeMissingCode, "Missing 'code' parameter")
		return
	}

	sess := h.sessions(c)
	expected, ok := sess.Get(session.KeyOAuthState)
	if !ok || state == "" {
		middleware.BadRequest(c, middleware.ErrCodeMissingState, "Missing OAuth state")
		return
	}
	if state != expected {
		middleware.BadRequest(c, middleware.ErrCodeInvalidState, "OAuth state mismatch")
		return
	}
	if err := h.signer.Verify(state); err != nil {
		middleware.BadRequest(c, middleware.ErrCodeInvalidState, "Invalid OAuth state")
		return
	}
	sess.Delete(session.KeyOAuthState)

	if h.cfg.ClientID == "" || h.cfg.ClientSecret == "" || h.cfg.RedirectURI == "" {
		middleware.InternalError(c, middleware.ErrCodeOAuthNotConfigured, "GitHub OAuth not configured")
		return
	}

	token, err := h.client.ExchangeCode(c.Request.Context(), h.cfg.ClientID, h.cfg.ClientSecret, code, h.cfg.RedirectURI)
	if err != nil {
		middleware.UpstreamError(c, "GitHub token exchange failed: "+err.Error())
		return
	}
	sess.Set(session.KeyGitHubToken, token)

	// Best-effort profile fetch; the token stays valid either way.
	if user, status, err := h.client.GetUser(c.Request.Context(), token); err == nil && status < 400 {
		if profile, err := json.Marshal(user); err == nil {
			sess.Set(session.KeyGitHubUser, string(profile))
		}
	} else if err != nil {
		h.logger.Warn("profile fetch after token exchange failed", zap.Error(err))
	}

	if err := sess.Save(); err != nil {
		h.logger.Error("failed to persist session", zap.Error(err))
		middleware.InternalError(c, middleware.ErrCodeInternalError, "failed to persist session")
		return
	}
	c.Redirect(http.StatusFound, h.cfg.SuccessURL)
}

// Me returns the authenticated GitHub user, if any.
func (h *AuthHandler) Me(c *gin.Context) {
	sess := h.sessions(c)
	token, ok := sess.Get(session.KeyGitHubToken)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}

	user, status, err := h.client.GetUser(c.Request.Context(), token)
	if err != nil {
		if status >= 400 {
			c.JSON(status, gin.H{"authenticated": false})
			return
		}
		middleware.UpstreamError(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": user})
}

// Logout clears the stored token and profile.
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := h.sessions(c)
	sess.Delete(session.KeyGitHubToken)
	sess.Delete(session.KeyGitHubUser)
	sess.Delete(session.KeyOAuthState)
	if err := sess.Save(); err != nil {
		h.logger.Error("failed to persist session", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}
