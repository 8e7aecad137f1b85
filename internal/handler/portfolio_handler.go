package handler

import (
	"net/http"

	"tenurix/internal/auth"
	"tenurix/internal/middleware"
	"tenurix/internal/service"
	"tenurix/pkg/response"

	"github.com/gin-gonic/gin"
)

type PortfolioHandler struct {
	portfolioService service.PortfolioService
}

func NewPortfolioHandler(portfolioService service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

func (h *PortfolioHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/landlords/:id/portfolio", middleware.RequireAnyPermission(auth.PermViewLandlordPortfolioKey), h.GetPortfolio)
}

// GetPortfolio returns a landlord's properties, listings and leases
// @Summary      Landlord portfolio
// @Tags         landlords
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Landlord user ID"
// @Success      200  {object}  response.Response{data=service.PortfolioResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /management/landlords/{id}/portfolio [get]
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	portfolio, err := h.portfolioService.GetPortfolio(c.Request.Context(), session, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, portfolio))
}
