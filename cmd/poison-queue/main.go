package main

import (
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func newHandler(c *cli.Context) (*Handler, func(), error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: c.String("redis-addr"),
	})

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, watermill.NopLogger{})
	if err != nil {
		rdb.Close()
		return nil, nil, err
	}

	closeFn := func() {
		_ = pub.Close()
		_ = rdb.Close()
	}

	return NewHandler(rdb, pub, c.String("topic")), closeFn, nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "poison-queue",
		Usage: "Manage the purchases poison queue",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "redis-addr",
				Value:   "localhost:6379",
				EnvVars: []string{"REDIS_ADDR"},
			},
			&cli.StringFlag{
				Name:    "topic",
				Value:   "purchases.poison",
				EnvVars: []string{"POISON_QUEUE_TOPIC"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "preview messages",
				Action: func(c *cli.Context) error {
					h, closeFn, err := newHandler(c)
					if err != nil {
						return err
					}
					defer closeFn()

					messages, err := h.Preview(c.Context)
					if err != nil {
						return err
					}

					if len(messages) == 0 {
						fmt.Fprintln(c.App.Writer, "No messages")
					}
					for _, m := range messages {
						fmt.Fprintf(c.App.Writer, "%v\t%v\t%v\n", m.ID, m.Topic, m.Reason)
					}

					return nil
				},
			},
			{
				Name:      "remove",
				ArgsUsage: "<message_id>",
				Usage:     "remove message",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return cli.Exit("message id is required", 2)
					}

					h, closeFn, err := newHandler(c)
					if err != nil {
						return err
					}
					defer closeFn()

					return h.Remove(c.Context, c.Args().First())
				},
			},
			{
				Name:      "requeue",
				ArgsUsage: "<message_id>",
				Usage:     "publish message back to its original topic",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return cli.Exit("message id is required", 2)
					}

					h, closeFn, err := newHandler(c)
					if err != nil {
						return err
					}
					defer closeFn()

					return h.Requeue(c.Context, c.Args().First())
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("poison-queue failed")
	}
}
