package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/hashfleet/hashfleet/apitypes"
)

func errBadRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, apitypes.ErrorResponseDTO{
		Message: msg,
		Code:    apitypes.ErrorCodeValidation,
	})
}

// errInvalidCredentials is the single response for every credential failure.
// Unknown username and wrong password are deliberately indistinguishable.
func errInvalidCredentials() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, apitypes.ErrorResponseDTO{
		Message: "Invalid credentials",
		Code:    apitypes.ErrorCodeInvalidCredentials,
	})
}

func errForbidden(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusForbidden, apitypes.ErrorResponseDTO{
		Message: msg,
		Code:    apitypes.ErrorCodeForbidden,
	})
}

func errNotFound(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, apitypes.ErrorResponseDTO{
		Message: msg,
	})
}

func errServer(err error, msg string) *echo.HTTPError {
	log.Error().Err(err).Msg(msg)
	return echo.NewHTTPError(http.StatusInternalServerError, apitypes.ErrorResponseDTO{
		Message: "Something went wrong",
	})
}
