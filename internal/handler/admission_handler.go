package handler

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
	"github.com/noah-isme/sma-admission-api/internal/service"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
	"github.com/noah-isme/sma-admission-api/pkg/response"
)

// AdmissionHandler exposes the public admission workflow endpoints and the
// staff review endpoints. The public endpoints keep the legacy wire contract:
// bare objects on success and ``{"detail": ...}`` bodies on failure.
type AdmissionHandler struct {
	admissions *service.AdmissionService
	metrics    *service.MetricsService
}

// NewAdmissionHandler constructs AdmissionHandler.
func NewAdmissionHandler(admissions *service.AdmissionService, metrics *service.MetricsService) *AdmissionHandler {
	return &AdmissionHandler{admissions: admissions, metrics: metrics}
}

// Verify godoc
// @Summary Verify an admission letter
// @Tags Admission
// @Accept json
// @Produce json
// @Param payload body dto.VerifyAdmissionRequest true "Verification payload"
// @Success 200 {object} dto.VerifiedAdmission
// @Failure 400 {object} dto.DetailError
// @Router /admission/verify [post]
func (h *AdmissionHandler) Verify(c *gin.Context) {
	var req dto.VerifyAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Detail(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	verified, err := h.admissions.Verify(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordAdmissionEvent("verify", "failed")
		response.Detail(c, err)
		return
	}
	h.metrics.RecordAdmissionEvent("verify", "ok")
	c.JSON(http.StatusOK, verified)
}

// Register godoc
// @Summary Submit a registration for a verified admission letter
// @Tags Admission
// @Accept json
// @Produce json
// @Param payload body dto.RegisterAdmissionRequest true "Registration payload"
// @Success 201 {object} models.StudentAdmission
// @Failure 422 {object} dto.DetailError
// @Router /admission/register [post]
func (h *AdmissionHandler) Register(c *gin.Context) {
	var req dto.RegisterAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Detail(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	admission, err := h.admissions.Register(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordAdmissionEvent("register", "failed")
		if fields, ok := fieldErrorsFrom(err, reflect.TypeOf(req)); ok {
			response.DetailFields(c, http.StatusUnprocessableEntity, fields)
			return
		}
		response.Detail(c, err)
		return
	}
	h.metrics.RecordAdmissionEvent("register", "ok")
	c.JSON(http.StatusCreated, admission)
}

// Status godoc
// @Summary Check the review status of a submitted admission
// @Tags Admission
// @Produce json
// @Param admission_number path string true "Admission number"
// @Success 200 {object} dto.AdmissionStatusResponse
// @Failure 404 {object} dto.DetailError
// @Router /admission/status/{admission_number} [get]
func (h *AdmissionHandler) Status(c *gin.Context) {
	status, err := h.admissions.Status(c.Request.Context(), c.Param("admission_number"))
	if err != nil {
		response.Detail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// List godoc
// @Summary List submitted admissions
// @Tags Admissions
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param search query string false "Student name search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admissions [get]
func (h *AdmissionHandler) List(c *gin.Context) {
	var query dto.AdmissionQuery
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part != "" {
				query.Status = append(query.Status, models.AdmissionStatus(part))
			}
		}
	}
	query.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.Limit = limit
	}

	admissions, pagination, err := h.admissions.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admissions, pagination)
}

// Get godoc
// @Summary Get one admission
// @Tags Admissions
// @Produce json
// @Param id path string true "Admission ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admissions/{id} [get]
func (h *AdmissionHandler) Get(c *gin.Context) {
	admission, err := h.admissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admission, nil)
}

// Review godoc
// @Summary Approve or reject a pending admission
// @Tags Admissions
// @Accept json
// @Produce json
// @Param id path string true "Admission ID"
// @Param payload body dto.ReviewAdmissionRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admissions/{id}/review [patch]
func (h *AdmissionHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReviewAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	admission, err := h.admissions.Review(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordAdmissionEvent("review", strings.ToLower(string(req.Status)))
	response.JSON(c, http.StatusOK, admission, nil)
}
