package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/apperrors"
)

// respondError translates a service error into the HTTP response. Internal
// errors are logged with their cause and masked from the client.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := apperrors.HTTPStatus(err)

	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Kind != apperrors.KindInternal {
		c.JSON(status, gin.H{"error": appErr.Message})
		return
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	}).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
