package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whatsapp-connect/internal/template"
)

// TemplateHandler exposes the template lifecycle over HTTP.
type TemplateHandler struct {
	DB      *gorm.DB
	Service *template.Service
}

func NewTemplateHandler(db *gorm.DB, svc *template.Service) *TemplateHandler {
	return &TemplateHandler{DB: db, Service: svc}
}

func (h *TemplateHandler) Create(c *gin.Context) {
	company, ok := resolveCompany(c, h.DB)
	if !ok {
		return
	}

	var input template.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tmpl, err := h.Service.Create(c.Request.Context(), company.ID, input)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

func (h *TemplateHandler) List(c *gin.Context) {
	company, ok := resolveCompany(c, h.DB)
	if !ok {
		return
	}
	templates, err := h.Service.List(c.Request.Context(), company.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *TemplateHandler) Submit(c *gin.Context) {
	company, ok := resolveCompany(c, h.DB)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	tmpl, err := h.Service.Submit(c.Request.Context(), company, id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *TemplateHandler) Sync(c *gin.Context) {
	company, ok := resolveCompany(c, h.DB)
	if !ok {
		return
	}
	count, err := h.Service.SyncFromRemote(c.Request.Context(), company)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "templates synced", "count": count})
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	company, ok := resolveCompany(c, h.DB)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.Service.Delete(c.Request.Context(), company, id); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "template deleted"})
}

func (h *TemplateHandler) renderError(c *gin.Context, err error) {
	var validationErr *template.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validationErr.Reason})
	case errors.Is(err, template.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, template.ErrTemplateExists),
		errors.Is(err, template.ErrTemplateInUse),
		errors.Is(err, template.ErrTemplateImmutable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
