package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"timelessmusic/entity"
	"timelessmusic/tracing"
)

type GigsRepository interface {
	FindAll(ctx context.Context) ([]entity.Gig, error)
	Get(ctx context.Context, gigID string) (entity.Gig, error)
}

type PurchaseService interface {
	Purchase(ctx context.Context, body []byte) (entity.PurchaseRecord, error)
}

type Server struct {
	addr            string
	e               *echo.Echo
	gigsRepo        GigsRepository
	purchaseService PurchaseService
}

func NewServer(
	addr string,
	gigsRepo GigsRepository,
	purchaseService PurchaseService,
) *Server {
	if gigsRepo == nil {
		panic("missing gigsRepo")
	}
	if purchaseService == nil {
		panic("missing purchaseService")
	}

	e := echoHTTP.NewEcho()
	e.Use(otelecho.Middleware(tracing.ServiceName))
	e.Use(middleware.CORS())
	e.Use(allowAnyOrigin)

	server := &Server{
		addr:            addr,
		e:               e,
		gigsRepo:        gigsRepo,
		purchaseService: purchaseService,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/gigs", server.GetGigs)
	e.GET("/gigs/:id", server.GetGig)
	e.POST("/purchase", server.PostPurchase)

	return server
}

// allowAnyOrigin sets the CORS header on every response, also for
// requests that carry no Origin header.
func allowAnyOrigin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")
		return next(c)
	}
}

func (s Server) Handler() http.Handler {
	return s.e
}

func (s Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(context.Background())
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func jsonError(c echo.Context, status int, message string) error {
	return c.JSON(status, errorResponse{Error: message})
}
