// Package api provides the HTTP surface of the locking service: edit
// locks over ideas, plus the minimal idea registry the locks refer to.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ideaboard-hq/locking-system/internal/idea"
	"github.com/ideaboard-hq/locking-system/internal/lock"
	"github.com/ideaboard-hq/locking-system/internal/metrics"
)

// Handler handles idea and lock requests.
type Handler struct {
	ideas   idea.Store
	locks   *lock.Manager
	sweeper *lock.Sweeper
	logger  zerolog.Logger
}

// NewHandler creates a new API handler with the provided dependencies.
func NewHandler(ideas idea.Store, locks *lock.Manager, sweeper *lock.Sweeper, logger zerolog.Logger) *Handler {
	return &Handler{
		ideas:   ideas,
		locks:   locks,
		sweeper: sweeper,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// ErrorResponse is the JSON body returned on failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// lockRequest carries the owner for acquire and release calls.
type lockRequest struct {
	OwnerID string `json:"ownerId"`
}

// lockView is the wire representation of a lock record.
type lockView struct {
	ResourceID string    `json:"resourceId"`
	OwnerID    string    `json:"ownerId"`
	AcquiredAt time.Time `json:"acquiredAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Operation  string    `json:"operation"`
}

func (h *Handler) lockViewOf(rec *lock.Record) *lockView {
	if rec == nil {
		return nil
	}
	return &lockView{
		ResourceID: rec.ResourceID,
		OwnerID:    rec.OwnerID,
		AcquiredAt: rec.AcquiredAt,
		ExpiresAt:  rec.ExpiresAt(h.locks.TTL()),
		Operation:  rec.Operation,
	}
}

// ideaView is the wire representation of an idea, with its derived
// matrix quadrant.
type ideaView struct {
	*idea.Idea
	Quadrant idea.Quadrant `json:"quadrant"`
}

func ideaViewOf(i *idea.Idea) ideaView {
	return ideaView{Idea: i, Quadrant: i.Quadrant()}
}

// RegisterRoutes registers all API routes on the provided router group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	ideas := router.Group("/ideas")
	ideas.POST("", h.CreateIdea)
	ideas.GET("", h.ListIdeas)
	ideas.GET("/:id", h.GetIdea)
	ideas.PUT("/:id", h.UpdateIdea)
	ideas.DELETE("/:id", h.DeleteIdea)

	ideas.PUT("/:id/lock", h.AcquireLock)
	ideas.GET("/:id/lock", h.QueryLock)
	ideas.DELETE("/:id/lock", h.ReleaseLock)

	router.POST("/locks/cleanup", h.CleanupLocks)
}

// AcquireLock takes or renews the edit lock on an idea. A conflict with
// another owner is a 200 with acquired=false, not an error.
func (h *Handler) AcquireLock(c *gin.Context) {
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "request body must be JSON with an ownerId field",
		})
		return
	}

	resourceID := c.Param("id")
	acquired, err := h.locks.Acquire(c.Request.Context(), resourceID, req.OwnerID)
	if err != nil {
		h.respondLockError(c, err)
		return
	}

	if acquired {
		c.JSON(http.StatusOK, gin.H{"acquired": true})
		return
	}

	// Best effort: tell the caller who holds the lock so the UI can
	// show "being edited by X".
	var holder *lockView
	if rec, qerr := h.locks.Query(c.Request.Context(), resourceID); qerr == nil {
		holder = h.lockViewOf(rec)
	}
	c.JSON(http.StatusOK, gin.H{"acquired": false, "lock": holder})
}

// QueryLock reports the live lock on an idea, or null when unlocked.
func (h *Handler) QueryLock(c *gin.Context) {
	rec, err := h.locks.Query(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lock": h.lockViewOf(rec)})
}

// ReleaseLock gives up the edit lock on an idea. Idempotent; releasing
// an absent lock or someone else's lock reports success without change.
func (h *Handler) ReleaseLock(c *gin.Context) {
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "request body must be JSON with an ownerId field",
		})
		return
	}

	released, err := h.locks.Release(c.Request.Context(), c.Param("id"), req.OwnerID)
	if err != nil {
		h.respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": released})
}

// CleanupLocks removes stale lock records and reports how many.
func (h *Handler) CleanupLocks(c *gin.Context) {
	removed, err := h.sweeper.Cleanup(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("lock cleanup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal",
			Message: "failed to clean up stale locks",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// CreateIdea adds an idea to the registry.
func (h *Handler) CreateIdea(c *gin.Context) {
	var in idea.Idea
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "request body must be a JSON idea",
		})
		return
	}

	created, err := h.ideas.Create(c.Request.Context(), &in)
	if err != nil {
		h.respondIdeaError(c, err)
		return
	}

	metrics.IdeasTotal.WithLabelValues("created").Inc()
	c.JSON(http.StatusCreated, ideaViewOf(created))
}

// ListIdeas returns all ideas.
func (h *Handler) ListIdeas(c *gin.Context) {
	ideas, err := h.ideas.List(c.Request.Context())
	if err != nil {
		h.respondIdeaError(c, err)
		return
	}

	views := make([]ideaView, 0, len(ideas))
	for _, i := range ideas {
		views = append(views, ideaViewOf(i))
	}
	c.JSON(http.StatusOK, gin.H{"ideas": views})
}

// GetIdea returns a single idea.
func (h *Handler) GetIdea(c *gin.Context) {
	i, err := h.ideas.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondIdeaError(c, err)
		return
	}
	c.JSON(http.StatusOK, ideaViewOf(i))
}

// UpdateIdea modifies an idea. It refuses to touch an idea that is
// live-locked by a different owner; pass ownerId to prove ownership.
func (h *Handler) UpdateIdea(c *gin.Context) {
	var in struct {
		idea.Idea
		OwnerID string `json:"ownerId"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "request body must be a JSON idea",
		})
		return
	}

	id := c.Param("id")
	if !h.allowEdit(c, id, in.OwnerID) {
		return
	}

	in.Idea.ID = id
	updated, err := h.ideas.Update(c.Request.Context(), &in.Idea)
	if err != nil {
		h.respondIdeaError(c, err)
		return
	}
	c.JSON(http.StatusOK, ideaViewOf(updated))
}

// DeleteIdea removes an idea, subject to the same lock check as updates.
func (h *Handler) DeleteIdea(c *gin.Context) {
	id := c.Param("id")
	if !h.allowEdit(c, id, c.Query("ownerId")) {
		return
	}

	if err := h.ideas.Delete(c.Request.Context(), id); err != nil {
		h.respondIdeaError(c, err)
		return
	}

	metrics.IdeasTotal.WithLabelValues("deleted").Inc()
	c.Status(http.StatusNoContent)
}

// allowEdit rejects the request with a 409 when the idea is live-locked
// by someone other than ownerID. Returns false when the response has
// already been written.
func (h *Handler) allowEdit(c *gin.Context, resourceID, ownerID string) bool {
	rec, err := h.locks.Query(c.Request.Context(), resourceID)
	if err != nil {
		h.respondLockError(c, err)
		return false
	}
	if rec != nil && rec.OwnerID != ownerID {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "locked",
			"message": "idea is being edited by another user",
			"lock":    h.lockViewOf(rec),
		})
		return false
	}
	return true
}

func (h *Handler) respondLockError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lock.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: err.Error(),
		})
	case errors.Is(err, lock.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "idea does not exist",
		})
	default:
		h.logger.Error().Err(err).Msg("lock operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal",
			Message: "lock store unavailable",
		})
	}
}

func (h *Handler) respondIdeaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, idea.ErrInvalidIdea):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_idea",
			Message: "idea must have a title and value/effort scores between 1 and 10",
		})
	case errors.Is(err, idea.ErrIdeaNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "idea does not exist",
		})
	default:
		h.logger.Error().Err(err).Msg("idea operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal",
			Message: "idea store unavailable",
		})
	}
}
