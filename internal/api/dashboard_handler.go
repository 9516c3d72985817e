package api

import (
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/service"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) Admin(c *gin.Context) {
	serveDashboard(c, h.dashboardService.Admin)
}

func (h *DashboardHandler) Instructor(c *gin.Context) {
	serveDashboard(c, h.dashboardService.Instructor)
}

func (h *DashboardHandler) Mentor(c *gin.Context) {
	serveDashboard(c, h.dashboardService.Mentor)
}

func (h *DashboardHandler) Student(c *gin.Context) {
	serveDashboard(c, h.dashboardService.Student)
}

func serveDashboard[T any](c *gin.Context, load func(context.Context, domain.Principal) (*T, error)) {
	p, ok := principal(c)
	if !ok {
		return
	}
	d, err := load(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
