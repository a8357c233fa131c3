package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
	"github.com/noah-isme/sma-admission-api/internal/service"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
	"github.com/noah-isme/sma-admission-api/pkg/response"
	"github.com/noah-isme/sma-admission-api/pkg/storage"
)

// LetterHandler exposes admin endpoints for admission letter issuance and
// roster exports.
type LetterHandler struct {
	letters *service.LetterService
	storage *storage.LocalStorage
	signer  *storage.SignedURLSigner
}

// NewLetterHandler constructs LetterHandler.
func NewLetterHandler(letters *service.LetterService, store *storage.LocalStorage, signer *storage.SignedURLSigner) *LetterHandler {
	return &LetterHandler{letters: letters, storage: store, signer: signer}
}

// List godoc
// @Summary List admission letters
// @Tags Letters
// @Produce json
// @Param search query string false "Search by number or child name"
// @Param gradeLevel query string false "Filter by grade level"
// @Param academicYear query string false "Filter by academic year"
// @Param used query bool false "Filter by consumption state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admission-letters [get]
func (h *LetterHandler) List(c *gin.Context) {
	filter := letterFilterFromQuery(c)
	letters, pagination, err := h.letters.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, letters, pagination)
}

// Create godoc
// @Summary Issue a single admission letter
// @Tags Letters
// @Accept json
// @Produce json
// @Param payload body dto.CreateLetterRequest true "Letter payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admission-letters [post]
func (h *LetterHandler) Create(c *gin.Context) {
	var req dto.CreateLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	var createdBy string
	if claims := claimsFromContext(c); claims != nil {
		createdBy = claims.UserID
	}
	letter, err := h.letters.Create(c.Request.Context(), req, createdBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, letter)
}

// BulkCreate godoc
// @Summary Issue many admission letters at once
// @Tags Letters
// @Accept json
// @Produce json
// @Param payload body dto.BulkCreateLettersRequest true "Bulk letters payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admission-letters/bulk [post]
func (h *LetterHandler) BulkCreate(c *gin.Context) {
	var req dto.BulkCreateLettersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	var createdBy string
	if claims := claimsFromContext(c); claims != nil {
		createdBy = claims.UserID
	}
	result, err := h.letters.BulkCreate(c.Request.Context(), req, createdBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export the letter roster as CSV or PDF
// @Tags Letters
// @Produce json
// @Param format query string true "csv or pdf"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admission-letters/export [get]
func (h *LetterHandler) Export(c *gin.Context) {
	filter := letterFilterFromQuery(c)
	result, err := h.letters.Export(c.Request.Context(), filter, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download an export file with a signed token
// @Tags Letters
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/download [get]
func (h *LetterHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	_, relPath, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token"))
		return
	}

	file, err := h.storage.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export file not found"))
		return
	}
	defer file.Close() //nolint:errcheck

	contentType := "text/csv"
	if strings.EqualFold(filepath.Ext(relPath), ".pdf") {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(relPath))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

func letterFilterFromQuery(c *gin.Context) models.LetterFilter {
	var filter models.LetterFilter
	filter.Search = c.Query("search")
	filter.GradeLevel = c.Query("gradeLevel")
	filter.AcademicYear = c.Query("academicYear")
	if raw := c.Query("used"); raw != "" {
		if used, err := strconv.ParseBool(raw); err == nil {
			filter.IsUsed = &used
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
