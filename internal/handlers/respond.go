package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nimbusiot/iot-dashboard-backend/internal/apperrors"
)

// respondError renders a service error through the standard envelope. Typed
// errors carry their own status and optional detail fields; anything else is
// an internal error and only the fallback message leaves the process.
func respondError(c *gin.Context, err error, fallback string) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logrus.Errorf("%s: %v", fallback, err)
		c.JSON(status, gin.H{
			"success": false,
			"message": fallback,
		})
		return
	}

	body := gin.H{
		"success": false,
		"message": apperrors.Message(err),
	}
	for k, v := range apperrors.Details(err) {
		body[k] = v
	}
	c.JSON(status, body)
}
