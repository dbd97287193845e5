package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"social_network/internal/ledger" // Ledger error taxonomy

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// fail writes {"success": false, "error": msg}
func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// internalError logs err server-side and answers with a generic message
func internalError(c *gin.Context, err error, msg string) {
	logrus.WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
		"error":  err.Error(),
	}).Error(msg)
	fail(c, http.StatusInternalServerError, msg)
}

// ledgerError maps ledger errors onto 400 / 404 / 500
func ledgerError(c *gin.Context, err error) {
	switch {
	case ledger.IsValidation(err):
		fail(c, http.StatusBadRequest, err.Error())
	case ledger.IsNotFound(err):
		fail(c, http.StatusNotFound, err.Error())
	default:
		internalError(c, err, "Internal server error")
	}
}

// isNotFound reports a missing row
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// paramID parses a positive numeric path parameter, answering 400 otherwise
func paramID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		fail(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(v), true
}
