package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondWithError logs the technical error and returns a user-friendly message
func respondWithError(c *gin.Context, statusCode int, technicalError error, userMessage string, logger *zap.Logger, fields ...zap.Field) {
	if logger != nil {
		fields = append(fields, zap.Error(technicalError), zap.String("path", c.FullPath()))
		logger.Error("Request failed", fields...)
	}
	c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
}

// respondWithClientError returns a client error; bad input is not logged
func respondWithClientError(c *gin.Context, statusCode int, userMessage string) {
	c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
}
