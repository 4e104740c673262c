package joblogs

import (
	"github.com/hondanabooks/hondana/pkg/jobs"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all of the routes for job logs.
func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	jobLogService := NewService(db)
	jobService := jobs.NewService(db)

	h := &handler{
		jobLogService: jobLogService,
		jobService:    jobService,
	}

	e.GET("/jobs/:id/logs", h.listLogs)
}
