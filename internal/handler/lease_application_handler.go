package handler

import (
	"errors"
	"io"
	"net/http"

	"tenurix/internal/auth"
	"tenurix/internal/middleware"
	"tenurix/internal/service"
	"tenurix/pkg/pagination"
	"tenurix/pkg/response"

	"github.com/gin-gonic/gin"
)

type LeaseApplicationHandler struct {
	applicationService service.LeaseApplicationService
}

func NewLeaseApplicationHandler(applicationService service.LeaseApplicationService) *LeaseApplicationHandler {
	return &LeaseApplicationHandler{applicationService: applicationService}
}

func (h *LeaseApplicationHandler) RegisterRoutes(router *gin.RouterGroup) {
	apps := router.Group("/lease-applications")
	{
		apps.GET("", middleware.RequireAnyPermission(auth.PermReviewLeaseAppKey, auth.PermApproveLeaseAppKey), h.ListApplications)
		apps.POST("/:id/approve", middleware.RequireAnyPermission(auth.PermApproveLeaseAppKey), h.ApproveApplication)
		apps.POST("/:id/reject", middleware.RequireAnyPermission(auth.PermApproveLeaseAppKey), h.RejectApplication)
	}
}

// ListApplications returns the lease application queue
// @Summary      List lease applications
// @Tags         lease-applications
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Pending, Approved, Rejected or all"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Failure      400     {object}  response.Response
// @Failure      403     {object}  response.Response
// @Router       /management/lease-applications [get]
func (h *LeaseApplicationHandler) ListApplications(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	p := pagination.FromQuery(c)

	items, total, err := h.applicationService.List(c.Request.Context(), session, service.ReviewQueueFilter{
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{
		Items: items,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}))
}

// ApproveApplication approves one application, rejects its rivals and occupies the listing
// @Summary      Approve a lease application
// @Description  Warnings in the result mean the approval committed but no lease record was written.
// @Tags         lease-applications
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                        true   "Application ID"
// @Param        payload  body      service.ReviewNoteRequest  false  "Optional note"
// @Success      200      {object}  response.Response{data=service.ApproveLeaseResult}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /management/lease-applications/{id}/approve [post]
func (h *LeaseApplicationHandler) ApproveApplication(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.ReviewNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badPayload(c, err)
		return
	}

	result, err := h.applicationService.Approve(c.Request.Context(), session, id, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RejectApplication rejects a pending application
// @Summary      Reject a lease application
// @Tags         lease-applications
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                        true  "Application ID"
// @Param        payload  body      service.ReviewNoteRequest  true  "Reason"
// @Success      200      {object}  response.Response{data=service.RejectLeaseResult}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /management/lease-applications/{id}/reject [post]
func (h *LeaseApplicationHandler) RejectApplication(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.ReviewNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badPayload(c, err)
		return
	}
	reason := ""
	if req.Note != nil {
		reason = *req.Note
	}

	result, err := h.applicationService.Reject(c.Request.Context(), session, id, reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
