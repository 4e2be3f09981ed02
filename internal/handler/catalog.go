package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hold-a-spot/internal/model"
	"github.com/iliyamo/hold-a-spot/internal/repository"
)

// CatalogHandler serves the reference data the booking calendar is drawn
// from: sports and facilities.  Both endpoints are unauthenticated reads.
type CatalogHandler struct {
	Catalog *repository.CatalogRepo
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalog *repository.CatalogRepo) *CatalogHandler {
	if catalog == nil {
		panic("nil repository passed to NewCatalogHandler")
	}
	return &CatalogHandler{Catalog: catalog}
}

// ListSports handles GET /sports.
func (h *CatalogHandler) ListSports(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sports, err := h.Catalog.ListSports(ctx)
	if err != nil {
		log.Printf("sports query failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to fetch sports"))
	}
	return c.JSON(http.StatusOK, sports)
}

// ListFacilities handles GET /facilities.  Active facilities come back
// with their sport's booking settings embedded, optionally filtered by
// ?type= (court|bay), ?sport_id= and a ?search= substring on the name.
func (h *CatalogHandler) ListFacilities(c echo.Context) error {
	filter := repository.FacilityFilter{
		Type:    c.QueryParam("type"),
		SportID: c.QueryParam("sport_id"),
		Search:  c.QueryParam("search"),
	}
	if filter.Type != "" && !model.ValidFacilityType(filter.Type) {
		return c.JSON(http.StatusBadRequest, errResp(`Invalid facility type. Must be "court" or "bay"`))
	}
	if filter.SportID != "" && !validUUID(filter.SportID) {
		return c.JSON(http.StatusBadRequest, errResp("Invalid sport ID format"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	facilities, err := h.Catalog.ListFacilities(ctx, filter)
	if err != nil {
		log.Printf("facilities query failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to fetch facilities"))
	}
	return c.JSON(http.StatusOK, facilities)
}
