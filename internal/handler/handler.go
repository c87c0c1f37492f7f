package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"modtracker/internal/auth"
	"modtracker/internal/errors"
	"modtracker/internal/model"
	"modtracker/internal/service"
	"modtracker/internal/tracker"
)

// ClaimsKey is where the JWT middleware stores the parsed *auth.Claims.
const ClaimsKey = "user"

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

func claimsFrom(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(ClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// actorFrom builds the service actor from the authenticated request.
func actorFrom(c echo.Context) (service.Actor, error) {
	claims, ok := claimsFrom(c)
	if !ok {
		return service.Actor{}, unauthorized()
	}
	id, err := claims.UUID()
	if err != nil {
		return service.Actor{}, unauthorized()
	}
	return service.Actor{UserID: id, Role: model.Role(claims.Role)}, nil
}

func unauthorized() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: "invalid or missing token",
		Code:  "UNAUTHORIZED",
	})
}

func badRequest(code, msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: msg, Code: code})
}

func invalidBody() *echo.HTTPError {
	return badRequest("INVALID_REQUEST", "invalid request body")
}

func validationError(err error) *echo.HTTPError {
	return badRequest("VALIDATION_ERROR", err.Error())
}

// fromService converts a service error into an HTTP error.
func fromService(err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, badRequest("INVALID_UUID", "invalid "+name)
	}
	return id, nil
}

// bindAndValidate binds the request body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(req); err != nil {
		return validationError(err)
	}
	return nil
}

// dayOrToday returns day when set, else the server's current date key.
func dayOrToday(day string, now func() time.Time) string {
	if day != "" {
		return day
	}
	return tracker.DateKey(now())
}
