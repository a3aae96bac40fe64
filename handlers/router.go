package handlers

import (
	"github.com/gin-gonic/gin"

	"examsim-server/config"
	"examsim-server/db"
	"examsim-server/exam"
	"examsim-server/ingestion"
	"examsim-server/middleware"
)

// Deps are the shared services the routes close over.
type Deps struct {
	Assembler   *exam.Assembler
	Bank        *ingestion.BankSource
	Store       db.Store
	Auth        config.AuthConfig
	TemplateDir string
}

// NewRouter wires the API and admin routes.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.HTMLRender = NewRenderer(d.TemplateDir)

	specs := d.Assembler.Specs
	authMiddleware := middleware.AuthMiddleware(d.Auth)

	apiV1 := router.Group("/api/v1")
	apiV1.Use(authMiddleware)
	{
		apiV1.POST("/exams", AssembleExam(d.Assembler, d.Bank, d.Store))
		apiV1.GET("/exams", ListExams(d.Store))
		apiV1.GET("/exams/:id", GetExam(d.Store))
		apiV1.POST("/exams/:id/submit", SubmitExam(d.Store))
		apiV1.GET("/bank/summary", BankSummary(d.Bank, specs))
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware)
	admin.Use(middleware.RoleCheckMiddleware(middleware.RoleAdmin))
	{
		admin.GET("/dashboard", AdminDashboard(d.Bank, specs, d.Store))
		admin.POST("/bank/reload", ReloadBank(d.Bank, specs, d.Store))
		admin.GET("/events", AdminEvents(d.Store))
		admin.GET("/error_logs", AdminErrorLogs(d.Store))
	}
	return router
}
