package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"

	"timelessmusic/metrics"
	"timelessmusic/purchase"
)

const (
	malformedBodyMessage   = "Invalid content, expected valid JSON"
	purchaseFailedMessage  = "Could not process the purchase, please try again later"
	tooLargeMessage        = "Request body too large"
	maxPurchaseRequestSize = 64 << 10
)

type purchaseResponse struct {
	TicketID string `json:"ticketId"`
}

func (s Server) PostPurchase(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxPurchaseRequestSize))
	var tooLargeErr *http.MaxBytesError
	switch {
	case errors.As(err, &tooLargeErr):
		metrics.Purchases.WithLabelValues("too_large").Inc()
		return jsonError(c, http.StatusRequestEntityTooLarge, tooLargeMessage)
	case err != nil:
		metrics.Purchases.WithLabelValues("malformed").Inc()
		return jsonError(c, http.StatusBadRequest, malformedBodyMessage)
	}

	record, err := s.purchaseService.Purchase(ctx, body)

	var validationErr *purchase.ValidationError
	switch {
	case err == nil:
		metrics.Purchases.WithLabelValues("accepted").Inc()
		return c.JSON(http.StatusAccepted, purchaseResponse{TicketID: record.TicketID})
	case errors.Is(err, purchase.ErrMalformedInput):
		metrics.Purchases.WithLabelValues("malformed").Inc()
		return jsonError(c, http.StatusBadRequest, malformedBodyMessage)
	case errors.As(err, &validationErr):
		metrics.Purchases.WithLabelValues("invalid").Inc()
		return jsonError(c, http.StatusBadRequest, validationErr.Error())
	default:
		metrics.Purchases.WithLabelValues("failed").Inc()
		log.FromContext(ctx).WithError(err).Error("Could not process purchase")
		return jsonError(c, http.StatusInternalServerError, purchaseFailedMessage)
	}
}
