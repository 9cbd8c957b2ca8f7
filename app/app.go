package app

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	dbLib "timelessmusic/db"
	"timelessmusic/http"
	"timelessmusic/pubsub"
	"timelessmusic/pubsub/bus"
	"timelessmusic/pubsub/event"
	"timelessmusic/purchase"
)

type Config struct {
	HTTPAddr string
	Router   pubsub.RouterConfig
	Publish  purchase.PublishPolicy
	Notifier event.Config
}

type App struct {
	db              *sqlx.DB
	transport       pubsub.Transport
	watermillRouter *message.Router
	httpServer      *http.Server
	traceProvider   *tracesdk.TracerProvider
}

func New(
	config Config,
	db *sqlx.DB,
	transport pubsub.Transport,
	emailSender event.EmailSender,
	emailClaims event.EmailClaims,
	traceProvider *tracesdk.TracerProvider,
) (App, error) {
	if db == nil {
		return App{}, fmt.Errorf("missing db")
	}

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	eventBus, err := bus.NewEventBus(transport.Publisher, config.Router.Topic)
	if err != nil {
		return App{}, fmt.Errorf("could not create event bus: %w", err)
	}

	gigsRepo := dbLib.NewGigsPostgresRepository(db)
	dataLake := dbLib.NewDataLake(db)

	purchaseService := purchase.NewService(
		purchase.UUIDTicketIssuer{},
		bus.NewPurchasePublisher(eventBus),
		config.Publish,
	)

	eventHandler := event.NewHandler(emailSender, emailClaims, config.Notifier)

	watermillRouter, err := pubsub.NewWatermillRouter(
		transport,
		config.Router,
		eventHandler,
		dataLake,
		watermillLogger,
	)
	if err != nil {
		return App{}, fmt.Errorf("could not create watermill router: %w", err)
	}

	httpServer := http.NewServer(
		config.HTTPAddr,
		gigsRepo,
		purchaseService,
	)

	return App{
		db:              db,
		transport:       transport,
		watermillRouter: watermillRouter,
		httpServer:      httpServer,
		traceProvider:   traceProvider,
	}, nil
}

func (a App) Run(ctx context.Context) error {
	if err := dbLib.InitializeDatabaseSchema(a.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		if a.traceProvider == nil {
			return nil
		}
		return a.traceProvider.Shutdown(context.Background())
	})

	g.Go(func() error {
		err := a.watermillRouter.Run(ctx)
		if closeErr := a.transport.Close(); closeErr != nil {
			log.FromContext(ctx).WithError(closeErr).Error("failed to close transport")
		}
		return err
	})

	g.Go(func() error {
		// the app is not healthy before the router is ready
		select {
		case <-a.watermillRouter.Running():
		case <-ctx.Done():
			return nil
		}

		return a.httpServer.Run(ctx)
	})

	return g.Wait()
}
