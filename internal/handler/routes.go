package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler mounted by the API.
type Handlers struct {
	Students    *StudentHandler
	Enrollments *EnrollmentHandler
	Grades      *GradeHandler
	Reports     *ReportHandler
	Catalog     *CatalogHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts operational endpoints on the engine and the records API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.POST("/register-student", h.Students.Register)
	api.POST("/students", h.Students.Register)
	api.GET("/students", h.Students.List)
	api.GET("/students/:code", h.Students.Get)
	api.GET("/students/:code/transcript", h.Reports.Transcript)
	api.GET("/students/:code/transcript/export", h.Reports.ExportTranscript)

	api.POST("/enrollments", h.Enrollments.Enroll)
	api.DELETE("/enrollments/:studentCode/:courseCode", h.Enrollments.Drop)
	api.PUT("/enrollments/:studentCode/:courseCode/grade", h.Grades.UpdateGrade)

	api.GET("/courses", h.Catalog.ListCourses)
	api.GET("/courses/:code", h.Catalog.GetCourse)
	api.GET("/departments", h.Catalog.ListDepartments)
	api.GET("/departments/:code/stats", h.Reports.DepartmentStats)
}
