package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"humming/meet/internal/apperr"
	"humming/meet/internal/daily"
	"humming/meet/internal/orchestrator"
	"humming/meet/internal/rooms"
	"humming/meet/internal/tokens"
)

// toAppError maps domain errors onto HTTP errors, keeping the provider's
// message as the client-facing text.
func toAppError(err error) *apperr.AppError {
	var (
		appErr   *apperr.AppError
		invalid  *tokens.InvalidRequestError
		provErr  *rooms.ProvisioningError
		issueErr *tokens.IssuanceError
		connErr  *daily.ConnectionError
		attErr   *orchestrator.AttachError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &invalid):
		return apperr.InvalidInput(invalid.Error())
	case errors.Is(err, orchestrator.ErrJoinInProgress),
		errors.Is(err, orchestrator.ErrAlreadyJoined),
		errors.Is(err, orchestrator.ErrNotJoined),
		errors.Is(err, orchestrator.ErrCommandInFlight),
		errors.Is(err, orchestrator.ErrClosed),
		errors.Is(err, orchestrator.ErrJoinAborted),
		errors.Is(err, orchestrator.ErrMountUnavailable):
		return apperr.Wrap(apperr.ErrCodeConflict, err.Error(), http.StatusConflict, err)
	case errors.As(err, &attErr):
		return apperr.Wrap(apperr.ErrCodeTransport, err.Error(), http.StatusBadGateway, err)
	case errors.As(err, &provErr), errors.As(err, &issueErr), errors.Is(err, orchestrator.ErrNoToken):
		return apperr.Wrap(apperr.ErrCodeProvider, err.Error(), http.StatusInternalServerError, err)
	case errors.As(err, &connErr):
		return apperr.Wrap(apperr.ErrCodeProviderUnavail, connErr.Error(), http.StatusBadGateway, err)
	}
	return apperr.As(err)
}

func abortWithError(c *gin.Context, err error) {
	ae := toAppError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(ae.StatusCode, ae)
}
