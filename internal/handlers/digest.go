package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/response"
)

type DigestHandler struct {
	service *services.DigestService
}

func NewDigestHandler(service *services.DigestService) *DigestHandler {
	return &DigestHandler{service: service}
}

// GET /api/admin/digests
func (h *DigestHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	digests, err := h.service.List(page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, digests)
}

// Generate recomputes the digest for ?date= (default today). With ?send=true it is also posted.
// POST /api/admin/digests/generate
func (h *DigestHandler) Generate(c *gin.Context) {
	day := time.Now()
	if v := c.Query("date"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			response.BadRequest(c, "date must be YYYY-MM-DD")
			return
		}
		day = t
	}

	digest, err := h.service.Generate(day)
	if err != nil {
		fail(c, err)
		return
	}
	if c.Query("send") == "true" {
		if err := h.service.Resend(digest.ID); err != nil {
			response.Success(c, gin.H{"digest": digest, "notify_error": err.Error()})
			return
		}
	}
	response.Success(c, gin.H{"digest": digest})
}

// POST /api/admin/digests/:id/resend
func (h *DigestHandler) Resend(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Resend(id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "digest resent"})
}

// GET /api/admin/digests/countries
func (h *DigestHandler) Countries(c *gin.Context) {
	response.Success(c, h.service.SupportedCountries())
}
