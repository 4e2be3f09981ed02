package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // the Echo web framework handles routing

	"github.com/iliyamo/hold-a-spot/internal/handler" // handlers implement the business logic behind each route
)

// RegisterRoutes registers routes that carry no business state on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map GET /healthz to the Health handler.  Load balancers and
	// monitoring systems use this endpoint to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterUsers registers user registration, credit balance and
// per-user reservation history endpoints.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler) {
	// Registration is lookup-or-create keyed on email, so repeating the
	// call with the same address is always safe.
	e.POST("/users", u.CreateUser)
	e.GET("/users/:id/credits", u.GetCredits)
	e.GET("/users/:id/reservations", u.ListUserReservations)
}

// RegisterCatalog registers the read-only sport and facility listings.
func RegisterCatalog(e *echo.Echo, cat *handler.CatalogHandler) {
	e.GET("/sports", cat.ListSports)
	e.GET("/facilities", cat.ListFacilities)
}

// RegisterReservations registers the reservation lifecycle endpoints.
func RegisterReservations(e *echo.Echo, r *handler.ReservationHandler) {
	g := e.Group("/reservations")
	// The availability pre-check must be registered before the listing
	// route so Echo does not treat "availability" as a filter value.
	g.GET("/availability", r.CheckAvailability)
	g.GET("", r.List)
	g.POST("", r.Create)
	g.DELETE("/:id", r.Cancel)
}

// RegisterCredits registers the scheduler-driven weekly reset endpoint.
// The handler authenticates callers itself with a shared bearer secret.
func RegisterCredits(e *echo.Echo, reset *handler.ResetHandler) {
	e.POST("/credits/reset", reset.Run)
}
