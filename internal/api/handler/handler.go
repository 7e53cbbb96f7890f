// Package handler is the thin HTTP surface over the complaint core. It
// binds requests, resolves the current actor, and delegates to the command
// surface and the lifecycle engine; no business rules live here.
package handler

import (
	"civicgo/backend/internal/complaint"
	"civicgo/backend/internal/lifecycle"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/stats"
	"civicgo/backend/internal/storage"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler holds the handles to the lifecycle engine, the command surface
// and the store (for one-shot scoped queries).
type Handler struct {
	Engine     *lifecycle.EngineService
	Complaints *complaint.Service
	Storage    storage.Storage
}

func NewHandler(engine *lifecycle.EngineService, svc *complaint.Service, store storage.Storage) *Handler {
	return &Handler{Engine: engine, Complaints: svc, Storage: store}
}

// RegisterRoutes wires all endpoints onto the gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/token", h.IssueToken)

	authed := r.Group("/", h.RequireActor())
	{
		authed.POST("/complaints", h.SubmitComplaint)
		authed.GET("/complaints", h.ListComplaints)
		authed.GET("/complaints/:id", h.GetComplaint)
		authed.POST("/complaints/:id/assign", h.AssignComplaint)
		authed.PATCH("/complaints/:id/status", h.UpdateStatus)
		authed.POST("/complaints/:id/replies", h.AddReply)
		authed.DELETE("/complaints/:id/replies/:index", h.DeleteReply)
		authed.POST("/complaints/bulk/status", h.BulkUpdateStatus)
		authed.DELETE("/complaints/:id", h.DeleteComplaint)
		authed.POST("/complaints/:id/votes", h.Vote)
		authed.GET("/stats", h.Stats)
		authed.GET("/ws", h.ServeWebSocket)
	}
}

type submitRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Department  models.Department `json:"department"`
	Priority    models.Priority   `json:"priority"`
	Location    models.Location   `json:"location"`
	IsAnonymous bool              `json:"is_anonymous"`
	IsPublic    bool              `json:"is_public"`
	Contact     string            `json:"contact"`
	Email       string            `json:"email"`
	Tags        []string          `json:"tags"`
}

// SubmitComplaint files a new complaint on behalf of the current actor.
func (h *Handler) SubmitComplaint(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor := currentActor(c)

	submitter := models.Submitter{}
	if !req.IsAnonymous {
		submitter = models.Submitter{
			UserID:  actor.ID,
			Name:    actor.Name,
			Contact: req.Contact,
			Email:   req.Email,
		}
	}

	created, err := h.Complaints.Submit(complaint.SubmitInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Department:  req.Department,
		Priority:    req.Priority,
		Location:    req.Location,
		Submitter:   submitter,
		IsAnonymous: req.IsAnonymous,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListComplaints serves a one-shot scoped query. Without filters it
// answers from the in-memory projection (no database round-trip).
func (h *Handler) ListComplaints(c *gin.Context) {
	dept := c.Query("department")
	mine := c.Query("mine") == "1"
	public := c.Query("public") == "1"

	if dept == "" && !mine && !public {
		c.JSON(http.StatusOK, h.Engine.CurrentSnapshot())
		return
	}

	filter := storage.Filter{Department: models.Department(dept), OnlyPublic: public}
	if mine {
		filter.SubmitterID = currentActor(c).ID
	}
	list, err := h.Storage.QueryComplaints(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetComplaint(c *gin.Context) {
	found, err := h.Storage.GetComplaint(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if found == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "complaint not found"})
		return
	}
	c.JSON(http.StatusOK, found)
}

type assignRequest struct {
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name" binding:"required"`
	OfficerID      string `json:"officer_id"`
	OfficerName    string `json:"officer_name"`
}

func (h *Handler) AssignComplaint(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.Complaints.Assign(c.Param("id"),
		req.DepartmentID, req.DepartmentName, req.OfficerID, req.OfficerName,
		currentActor(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}

type statusRequest struct {
	Status models.Status `json:"status" binding:"required"`
	Note   string        `json:"note" binding:"required"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Complaints.UpdateStatus(c.Param("id"), req.Status, req.Note, currentActor(c)); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(req.Status)})
}

type replyRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) AddReply(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Complaints.AddReply(c.Param("id"), req.Content, currentActor(c)); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reply added"})
}

func (h *Handler) DeleteReply(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a number"})
		return
	}
	if err := h.Complaints.DeleteReply(c.Param("id"), index, currentActor(c)); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "entry removed"})
}

type bulkStatusRequest struct {
	IDs    []string      `json:"ids" binding:"required"`
	Status models.Status `json:"status" binding:"required"`
	Note   string        `json:"note" binding:"required"`
}

// BulkUpdateStatus applies one status change to many complaints. Partial
// failure answers 207 with the per-id breakdown; it must never look like a
// full success.
func (h *Handler) BulkUpdateStatus(c *gin.Context) {
	var req bulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Complaints.BulkUpdateStatus(req.IDs, req.Status, req.Note, currentActor(c))
	if err != nil {
		if errors.Is(err, complaint.ErrPartialBatch) {
			failed := make(map[string]string, len(result.Failed))
			for id, e := range result.Failed {
				failed[id] = e.Error()
			}
			c.JSON(http.StatusMultiStatus, gin.H{
				"succeeded": result.Succeeded,
				"failed":    failed,
			})
			return
		}
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"succeeded": result.Succeeded})
}

func (h *Handler) DeleteComplaint(c *gin.Context) {
	if err := h.Complaints.Delete(c.Param("id"), currentActor(c)); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) Vote(c *gin.Context) {
	counted, err := h.Complaints.Vote(c.Param("id"), currentActor(c).ID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counted": counted})
}

// Stats serves the live aggregate plus the overdue figure for the caller's
// scope. Overdue is a view-level derivation, so a department-scoped call
// legitimately reports a different number than the global one.
func (h *Handler) Stats(c *gin.Context) {
	dept := c.Query("department")
	if dept == "" {
		snapshot := h.Engine.CurrentSnapshot()
		c.JSON(http.StatusOK, gin.H{
			"stats":   h.Engine.CurrentStats(),
			"overdue": stats.CountOverdue(snapshot, time.Now().UTC()),
		})
		return
	}

	list, err := h.Storage.QueryComplaints(storage.Filter{Department: models.Department(dept)})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":   stats.Compute(list),
		"overdue": stats.CountOverdue(list, time.Now().UTC()),
	})
}

func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, complaint.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, complaint.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
