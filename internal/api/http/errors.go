package http

import (
	"errors"
	"net/http"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/domain/workspace"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/httpclient"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/resilience"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/providers/codegen"
	"github.com/gin-gonic/gin"
)

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	var upstream *codegen.UpstreamError

	switch {
	case errors.Is(err, workspace.ErrPathEscape):
		return http.StatusForbidden
	case errors.Is(err, workspace.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrInvalidPath),
		errors.Is(err, workspace.ErrIsDirectory),
		errors.Is(err, workspace.ErrNotDirectory),
		errors.Is(err, workspace.ErrInvalidPattern),
		errors.Is(err, codegen.ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, codegen.ErrNotConfigured),
		errors.Is(err, httpclient.ErrUnavailable),
		errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail records err on the context for the access log and writes the
// error body.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// bind decodes the JSON body into v. Oversized bodies get 413, anything
// else malformed gets 400.
func bind(c *gin.Context, v any) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return false
	}
	badRequest(c, err.Error())
	return false
}
