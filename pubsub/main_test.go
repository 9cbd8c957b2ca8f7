package pubsub_test

import (
	"context"
	"os"
	"testing"

	"timelessmusic/db"
)

func TestMain(m *testing.M) {
	var stop func()
	if os.Getenv("REDIS_ADDR") == "" {
		container, addr := db.StartRedisContainer()
		os.Setenv("REDIS_ADDR", addr)
		stop = func() { _ = container.Terminate(context.Background()) }
	}

	code := m.Run()
	if stop != nil {
		stop()
	}
	os.Exit(code)
}
