package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Attendance tracking has no implementation yet; the routes exist so
// clients get an honest 501 rather than a 404.
func AttendanceNotImplemented(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{
		"error": "Attendance is not implemented",
	})
}
