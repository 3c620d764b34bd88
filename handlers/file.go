package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/basit/filevault-backend/files"
	"github.com/basit/filevault-backend/repository"
)

type Handler struct {
	Service *files.Service
	Repo    *repository.Repository
}

func New(service *files.Service, repo *repository.Repository) *Handler {
	return &Handler{Service: service, Repo: repo}
}

type storeRequest struct {
	// Content is a remote URL or base64 payload; used when no multipart
	// file is attached.
	Content      string     `form:"content" json:"content"`
	IsPublic     *bool      `form:"is_public" json:"is_public"`
	PreserveName bool       `form:"preserve_name" json:"preserve_name"`
	OwnerID      *uuid.UUID `form:"owner_id" json:"owner_id"`
	Tags         []string   `form:"tags" json:"tags"`
}

func (h *Handler) Upload(c *gin.Context) {
	var req storeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	opts := files.StoreOptions{
		Owner:        req.OwnerID,
		PreserveName: req.PreserveName,
		Tags:         req.Tags,
	}

	var in files.Input
	if header, err := c.FormFile("file"); err == nil {
		src, err := header.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
			return
		}
		defer src.Close()
		in = files.Upload{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Content:  src,
		}
	} else if req.Content != "" {
		in = files.Raw(req.Content)
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	record, err := h.Service.Store(c.Request.Context(), isPublic, in, opts)
	if err != nil {
		if errors.Is(err, files.ErrUploadFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Upload failed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if record == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Input is not a file, URL or base64 payload"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"file": record})
}

func (h *Handler) List(c *gin.Context) {
	var owner *uuid.UUID
	if raw := c.Query("owner_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid owner_id"})
			return
		}
		owner = &id
	}

	records, err := h.Repo.List(c.Request.Context(), owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch files"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": records})
}

func (h *Handler) Show(c *gin.Context) {
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	record, err := h.Service.GetRecord(c.Request.Context(), id)
	if err != nil {
		h.notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"file": record})
}

// Touch re-evaluates the record's URL and persists the result.
func (h *Handler) Touch(c *gin.Context) {
	h.Show(c)
}

func (h *Handler) Destroy(c *gin.Context) {
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	if err := h.Service.DeleteRecord(c.Request.Context(), id); err != nil {
		h.notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Restore(c *gin.Context) {
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	record, err := h.Service.RestoreRecord(c.Request.Context(), id)
	if err != nil {
		h.notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"file": record})
}

type attachRequest struct {
	OwnerType   string         `json:"owner_type" binding:"required"`
	OwnerID     string         `json:"owner_id" binding:"required"`
	Description datatypes.JSON `json:"description"`
}

func (h *Handler) Attach(c *gin.Context) {
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if !h.Service.Registry().Known(req.OwnerType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown owner type"})
		return
	}

	record, err := h.Repo.FindByUUID(c.Request.Context(), id, false)
	if err != nil {
		h.notFoundOr500(c, err)
		return
	}
	if err := h.Repo.Attach(c.Request.Context(), record, req.OwnerType, req.OwnerID, req.Description); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Attach failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Detach(c *gin.Context) {
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	record, err := h.Repo.FindByUUID(c.Request.Context(), id, false)
	if err != nil {
		h.notFoundOr500(c, err)
		return
	}
	if err := h.Repo.Detach(c.Request.Context(), record, req.OwnerType, req.OwnerID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Detach failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) recordID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) notFoundOr500(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
