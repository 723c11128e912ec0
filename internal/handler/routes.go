package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the enrollment and grade endpoints under api.
func RegisterRoutes(api gin.IRouter, enrollments *EnrollmentHandler, grades *GradeHandler) {
	sections := api.Group("/sections/:id")
	sections.POST("/enrollments", enrollments.Enroll)
	sections.DELETE("/enrollments/:studentId", enrollments.Drop)
	sections.PUT("/grades", grades.EnterGrade)
	sections.GET("/grades", grades.SectionGrades)
	sections.GET("/grades/export", grades.Export)

	api.POST("/enrollments/:id/approve", enrollments.Approve)
	api.POST("/enrollments/:id/reject", enrollments.Reject)

	students := api.Group("/students/:id")
	students.GET("/enrollments", enrollments.ListByStudent)
	students.POST("/gpa/recalculate", grades.RecalculateGPA)
}

// RegisterProbes mounts liveness, readiness and metrics endpoints on the root router.
func RegisterProbes(r gin.IRouter, metrics *MetricsHandler) {
	r.GET("/health", metrics.Health)
	r.GET("/ready", metrics.Ready)
	r.GET("/metrics", metrics.Prometheus)
}
