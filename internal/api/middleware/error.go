package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"factor-backtest/internal/api/models"
)

// ErrorHandler middleware turns panics into a 500 ErrorResponse
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		msg := "An unexpected error occurred"
		switch v := recovered.(type) {
		case string:
			msg = v
		case error:
			msg = v.Error()
		}
		logrus.WithFields(logrus.Fields{
			"component": "api",
			"path":      c.Request.URL.Path,
			"panic":     fmt.Sprint(recovered),
		}).Error("recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: msg,
			},
		})
	})
}
