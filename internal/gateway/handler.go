// Package gateway exposes the Marketing Cloud asset-search operations
// over plain HTTP, for callers that want REST instead of the MCP stdio
// bridge. One gateway process holds one session at a time.
package gateway

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mktcloud/sfmc-asset-agent/pkg/mcpmanifest"
	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

// maxQueryBytes caps the advanced-search request body.
const maxQueryBytes = 64 << 10

// Handler handles HTTP requests for the asset gateway.
type Handler struct {
	mu      sync.RWMutex
	session *sfmc.Client

	// opts are applied to every session built from a connection request.
	opts     []sfmc.Option
	manifest mcpmanifest.Manifest
	logger   *zap.Logger
}

// NewHandler creates a gateway handler with no active session. manifest is
// served verbatim on the manifest route; opts are passed to every client
// built by the connection endpoint.
func NewHandler(manifest mcpmanifest.Manifest, logger *zap.Logger, opts ...sfmc.Option) *Handler {
	return &Handler{manifest: manifest, logger: logger, opts: opts}
}

// Register registers all gateway routes on the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/connection", h.Connect)
	rg.GET("/connection/status", h.ConnectionStatus)

	assets := rg.Group("/assets")
	{
		assets.GET("", h.SearchAssets)
		assets.POST("/query", h.AdvancedSearch)
		assets.GET("/:id", h.GetAsset)
	}

	rg.GET("/reference/asset-types", h.AssetTypes)
	rg.GET("/mcp-manifest.json", h.Manifest)
}

// ActiveSession returns the active client, or nil before the first
// successful connection.
func (h *Handler) ActiveSession() *sfmc.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session
}

// SetSession replaces the active client. Used at startup when credentials
// arrive through the environment.
func (h *Handler) SetSession(c *sfmc.Client) {
	h.mu.Lock()
	h.session = c
	h.mu.Unlock()
}

// writeError maps a failure kind onto an HTTP status and writes the
// error body. Unknown kinds fall through to 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch sfmc.KindOf(err) {
	case sfmc.KindNotInitialized:
		status = http.StatusConflict
	case sfmc.KindAuth:
		status = http.StatusUnauthorized
	case sfmc.KindParse:
		status = http.StatusBadRequest
	case sfmc.KindTransport:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
		"kind":  string(sfmc.KindOf(err)),
	})
}

// Connect handles POST /connection — builds a session from the supplied
// credentials and verifies them with an eager token exchange. A failed
// attempt leaves any previous session in place.
func (h *Handler) Connect(c *gin.Context) {
	var req struct {
		Subdomain    string `json:"subdomain"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := sfmc.New(sfmc.Credentials{
		Subdomain:    strings.TrimSpace(req.Subdomain),
		ClientID:     strings.TrimSpace(req.ClientID),
		ClientSecret: req.ClientSecret,
	}, h.opts...)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := client.Token(c.Request.Context()); err != nil {
		h.logger.Warn("connection attempt failed", zap.String("subdomain", req.Subdomain), zap.Error(err))
		recordConnectionAttempt(false)
		h.writeError(c, err)
		return
	}

	h.SetSession(client)
	recordConnectionAttempt(true)
	h.logger.Info("session established", zap.String("subdomain", client.Subdomain()))

	c.JSON(http.StatusOK, client.Status(c.Request.Context()))
}

// ConnectionStatus handles GET /connection/status. Always 200; the state
// field carries the verdict.
func (h *Handler) ConnectionStatus(c *gin.Context) {
	sess := h.ActiveSession()
	if sess == nil {
		c.JSON(http.StatusOK, sfmc.NotInitializedStatus())
		return
	}
	c.JSON(http.StatusOK, sess.Status(c.Request.Context()))
}

// SearchAssets handles GET /assets — simple search driven by query
// parameters. name, type and category_id are optional filters; page and
// page_size control paging and are clamped by the client.
func (h *Handler) SearchAssets(c *gin.Context) {
	sess := h.ActiveSession()
	if sess == nil {
		h.writeError(c, sfmc.ErrNotInitialized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	categoryID, _ := strconv.Atoi(c.Query("category_id"))

	res, err := sess.SearchAssets(c.Request.Context(), sfmc.SearchParams{
		Name:       c.Query("name"),
		AssetType:  c.Query("type"),
		CategoryID: categoryID,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		h.logger.Error("asset search", zap.Error(err))
		recordSearch("simple", err)
		h.writeError(c, err)
		return
	}

	recordSearch("simple", nil)
	c.JSON(http.StatusOK, res)
}

// AdvancedSearch handles POST /assets/query — the request body is the raw
// query document, merged over defaults before being sent upstream.
func (h *Handler) AdvancedSearch(c *gin.Context) {
	sess := h.ActiveSession()
	if sess == nil {
		h.writeError(c, sfmc.ErrNotInitialized)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxQueryBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read request body: " + err.Error()})
		return
	}

	res, err := sess.AdvancedSearch(c.Request.Context(), raw)
	if err != nil {
		h.logger.Error("advanced search", zap.Error(err))
		recordSearch("advanced", err)
		h.writeError(c, err)
		return
	}

	recordSearch("advanced", nil)
	c.JSON(http.StatusOK, res)
}

// GetAsset handles GET /assets/:id — relays the provider's full record
// without reshaping it.
func (h *Handler) GetAsset(c *gin.Context) {
	sess := h.ActiveSession()
	if sess == nil {
		h.writeError(c, sfmc.ErrNotInitialized)
		return
	}

	raw, err := sess.AssetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("asset lookup", zap.String("asset_id", c.Param("id")), zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}

// AssetTypes handles GET /reference/asset-types.
func (h *Handler) AssetTypes(c *gin.Context) {
	c.JSON(http.StatusOK, sfmc.TypesReference())
}

// Manifest handles GET /mcp-manifest.json — the same capability document
// the stdio bridge prints with its manifest subcommand.
func (h *Handler) Manifest(c *gin.Context) {
	c.JSON(http.StatusOK, h.manifest)
}
