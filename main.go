package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"timelessmusic/app"
	"timelessmusic/config"
	"timelessmusic/db"
	"timelessmusic/pubsub"
	"timelessmusic/tracing"
)

var opts config.Options

type serveCommand struct{}

func (serveCommand) Execute([]string) error {
	if err := opts.Validate(true); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	traceProvider, err := tracing.ConfigureTraceProvider(opts.JaegerEndpoint)
	if err != nil {
		return err
	}

	dbconn, err := app.OpenDB(opts.PostgresURL)
	if err != nil {
		return err
	}
	defer dbconn.Close()

	rdb := app.NewRedisClient(opts.Queue.RedisAddr)
	defer rdb.Close()

	transport, err := app.NewTransport(opts, dbconn, rdb)
	if err != nil {
		return err
	}

	application, err := app.NewFromOptions(opts, dbconn, rdb, transport, traceProvider)
	if err != nil {
		return err
	}

	return application.Run(ctx)
}

type drainCommand struct{}

func (drainCommand) Execute([]string) error {
	if err := opts.Validate(false); err != nil {
		return err
	}
	if opts.Queue.Backend != pubsub.BackendRedis {
		return fmt.Errorf("drain works with the redis queue backend only, got %s", opts.Queue.Backend)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb := app.NewRedisClient(opts.Queue.RedisAddr)
	defer rdb.Close()

	transport, err := app.NewTransport(opts, nil, rdb)
	if err != nil {
		return err
	}
	defer transport.Close()

	emailSender, err := app.NewEmailSender(opts)
	if err != nil {
		return err
	}

	emailClaims, err := app.NewEmailClaims(opts, rdb)
	if err != nil {
		return err
	}

	_, err = app.Drain(ctx, opts, rdb, transport, emailSender, emailClaims)
	return err
}

type seedGigsCommand struct {
	File string `long:"file" short:"f" required:"true" description:"JSON array of gigs"`
}

func (c *seedGigsCommand) Execute([]string) error {
	if err := opts.Validate(true); err != nil {
		return err
	}

	ctx := context.Background()

	dbconn, err := app.OpenDB(opts.PostgresURL)
	if err != nil {
		return err
	}
	defer dbconn.Close()

	if err := db.InitializeDatabaseSchema(dbconn); err != nil {
		return err
	}

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("could not open gigs file: %w", err)
	}
	defer f.Close()

	stored, err := db.SeedGigs(ctx, db.NewGigsPostgresRepository(dbconn), f)
	if err != nil {
		return err
	}

	log.FromContext(ctx).WithField("gigs", stored).Info("Gigs seeded")
	return nil
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logrus.WithError(err).Warn("Could not load .env file")
	}

	parser := config.NewParser(&opts)
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		level, err := logrus.ParseLevel(opts.LogLevel)
		if err != nil {
			return err
		}
		log.Init(level)

		if command == nil {
			return nil
		}
		return command.Execute(args)
	}

	mustAddCommand(parser, "serve", "Run the HTTP API and the e-mail worker", &serveCommand{})
	mustAddCommand(parser, "drain", "Send the e-mails of every queued purchase and exit", &drainCommand{})
	mustAddCommand(parser, "seed-gigs", "Load gigs from a JSON file", &seedGigsCommand{})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		logrus.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func mustAddCommand(parser *flags.Parser, name, description string, command any) {
	if _, err := parser.AddCommand(name, description, description, command); err != nil {
		panic(err)
	}
}
