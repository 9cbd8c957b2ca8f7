package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"

	"timelessmusic/entity"
)

const databaseErrorMessage = "Could not fetch data from database"

func (s Server) GetGigs(c echo.Context) error {
	gigs, err := s.gigsRepo.FindAll(c.Request().Context())
	if err != nil {
		log.FromContext(c.Request().Context()).WithError(err).Error("Could not list gigs")
		return jsonError(c, http.StatusInternalServerError, databaseErrorMessage)
	}

	return c.JSON(http.StatusOK, gigs)
}

func (s Server) GetGig(c echo.Context) error {
	gigID := c.Param("id")

	gig, err := s.gigsRepo.Get(c.Request().Context(), gigID)
	if errors.Is(err, entity.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, fmt.Sprintf(`Gig "%s" not found!`, gigID))
	}
	if err != nil {
		log.FromContext(c.Request().Context()).WithError(err).WithField("gig_id", gigID).Error("Could not get gig")
		return jsonError(c, http.StatusInternalServerError, databaseErrorMessage)
	}

	return c.JSON(http.StatusOK, gig)
}
