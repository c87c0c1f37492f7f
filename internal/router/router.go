package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"modtracker/internal/auth"
	"modtracker/internal/errors"
	"modtracker/internal/handler"
	"modtracker/internal/model"
	"modtracker/internal/service"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Project *handler.ProjectHandler
	Timer   *handler.TimerHandler
	Log     *handler.LogHandler
	Commit  *handler.CommitHandler
	Stats   *handler.StatsHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, jwtService *auth.JWTService, authService service.AuthService, h Handlers) {
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	// Secured routes (require JWT authentication)
	secured := api.Group("", JWT(jwtService), RejectRevoked(authService))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/me", h.User.Me)
	secured.PUT("/me/project-order", h.User.UpdateProjectOrder)

	secured.GET("/projects", h.Project.List)
	secured.POST("/projects", h.Project.Create)
	secured.PUT("/projects/:id", h.Project.Update)
	secured.PATCH("/projects/:id/active", h.Project.SetActive)
	secured.PUT("/projects/:id/hidden", h.Project.SetHidden)

	secured.GET("/timers", h.Timer.View)
	secured.GET("/timers/:projectId/display", h.Timer.Display)
	secured.POST("/timers/:projectId/start", h.Timer.Start)
	secured.POST("/timers/:projectId/stop", h.Timer.Stop)
	secured.POST("/timers/:projectId/preset", h.Timer.Preset)
	secured.POST("/timers/:projectId/adjust", h.Timer.Adjust)
	secured.POST("/timers/:projectId/reset", h.Timer.Reset)
	secured.POST("/timers/:projectId/comment", h.Timer.Comment)

	// Storage collaborator
	secured.GET("/users/:id/states", h.Timer.GetStates)
	secured.PUT("/users/:id/states/:projectId", h.Timer.PutState)

	secured.GET("/logs", h.Log.List)
	secured.POST("/logs", h.Log.Create)
	secured.PATCH("/logs/:id", h.Log.Edit)
	secured.GET("/logs/:id/history", h.Log.History)

	secured.POST("/commit", h.Commit.Commit)
	secured.POST("/commit/rollover", h.Commit.Rollover)

	secured.GET("/stats/me", h.Stats.Me)

	// Admin routes
	admin := secured.Group("", AdminOnly)
	admin.GET("/users", h.User.ListUsers)
	admin.POST("/users", h.User.CreateUser)
	admin.GET("/stats/overview", h.Stats.Overview)
}

// JWT validates bearer tokens with jwtService and stores *auth.Claims under handler.ClaimsKey.
func JWT(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.ClaimsKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "invalid or expired token",
				Code:  "UNAUTHORIZED",
			})
		},
	})
}

// RejectRevoked refuses access tokens that were blacklisted on logout.
func RejectRevoked(authService service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(handler.ClaimsKey).(*auth.Claims)
			if !ok || authService.IsRevoked(c.Request().Context(), claims.ID) {
				return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
					Error: "token has been revoked",
					Code:  "TOKEN_REVOKED",
				})
			}
			return next(c)
		}
	}
}

// AdminOnly lets only ADMIN callers through.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get(handler.ClaimsKey).(*auth.Claims)
		if !ok || model.Role(claims.Role) != model.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
				Error: "admin role required",
				Code:  "FORBIDDEN",
			})
		}
		return next(c)
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the validator the router installs.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
