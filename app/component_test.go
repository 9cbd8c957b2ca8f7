package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"timelessmusic/app"
	"timelessmusic/config"
	"timelessmusic/db"
	"timelessmusic/entity"
	"timelessmusic/gateway"
	"timelessmusic/pubsub"
)

func TestComponent(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("github.com/testcontainers/testcontainers-go.(*Reaper).Connect.func1"),
	)
	defer http.DefaultClient.CloseIdleConnections()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbconn, err := sqlx.Open("postgres", os.Getenv("POSTGRES_URL"))
	require.NoError(t, err)
	defer dbconn.Close()

	httpAddr := freeAddr(t)

	opts, err := config.Parse([]string{"--queue-backend", pubsub.BackendMemory, "--http-addr", httpAddr})
	require.NoError(t, err)

	transport, err := app.NewTransport(opts, dbconn, nil)
	require.NoError(t, err)

	emails := &gateway.EmailMock{}

	application, err := app.New(
		app.ConfigFromOptions(opts),
		dbconn,
		transport,
		emails,
		nil,
		nil,
	)
	require.NoError(t, err)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		assert.NoError(t, application.Run(ctx))
	}()
	defer func() {
		cancel()
		<-finished
	}()

	baseURL := "http://" + httpAddr
	waitForHttpServer(t, baseURL)

	t.Run("purchase sends ticket email", func(t *testing.T) {
		email := uuid.NewString() + "@b.com"

		ticketID := purchaseTicket(t, baseURL, email)

		assert.EventuallyWithT(t, func(t *assert.CollectT) {
			sent := emails.SentTo(email)
			if !assert.Len(t, sent, 1) {
				return
			}
			assert.Contains(t, sent[0].Body, ticketID)
			assert.Equal(t, entity.TicketEmailSubject, sent[0].Subject)
		}, 10*time.Second, 100*time.Millisecond)

		assertStoredInDataLake(t, dbconn, ticketID)
	})

	t.Run("same purchase twice", func(t *testing.T) {
		email := uuid.NewString() + "@b.com"

		first := purchaseTicket(t, baseURL, email)
		second := purchaseTicket(t, baseURL, email)
		assert.NotEqual(t, first, second)

		assert.EventuallyWithT(t, func(t *assert.CollectT) {
			sent := emails.SentTo(email)
			if !assert.Len(t, sent, 2) {
				return
			}
			bodies := lo.Map(sent, func(e entity.TicketEmail, _ int) string { return e.Body })
			assert.True(t, lo.SomeBy(bodies, func(body string) bool { return strings.Contains(body, first) }))
			assert.True(t, lo.SomeBy(bodies, func(body string) bool { return strings.Contains(body, second) }))
		}, 10*time.Second, 100*time.Millisecond)
	})

	t.Run("invalid purchase sends nothing", func(t *testing.T) {
		before := emails.Count()

		resp, err := http.Post(baseURL+"/purchase", "application/json", strings.NewReader(`{"gigId":"g1"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, before, emails.Count())
	})

	t.Run("gigs catalog", func(t *testing.T) {
		gig := entity.Gig{
			ID:       uuid.NewString(),
			BandName: "Nirvana",
			City:     "New York",
			Year:     "1993",
			Date:     "1993-11-18",
			Venue:    "Sony Music Studios",
			Capacity: 300,
			Price:    "1993.00",
		}
		require.NoError(t, db.NewGigsPostgresRepository(dbconn).Store(context.Background(), gig))

		resp, err := http.Get(baseURL + "/gigs/" + gig.ID)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got entity.Gig
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, gig, got)

		resp, err = http.Get(baseURL + "/gigs")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var all []entity.Gig
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
		assert.Contains(t, all, gig)
	})
}

func purchaseTicket(t *testing.T, baseURL, email string) string {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"gigId":              "g1",
		"name":               "A",
		"email":              email,
		"nameOnCard":         "A",
		"cardNumber":         "4242424242424242",
		"cardExpiryMonth":    "12",
		"cardExpiryYear":     "2030",
		"cardCVC":            "123",
		"disclaimerAccepted": true,
	})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/purchase", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var response struct {
		TicketID string `json:"ticketId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	require.NotEmpty(t, response.TicketID)

	return response.TicketID
}

func assertStoredInDataLake(t *testing.T, dbconn *sqlx.DB, ticketID string) {
	dataLake := db.NewDataLake(dbconn)

	assert.EventuallyWithT(t, func(t *assert.CollectT) {
		events, err := dataLake.GetEvents(context.Background())
		if !assert.NoError(t, err) {
			return
		}

		_, ok := lo.Find(events, func(e entity.DataLakeEvent) bool {
			return e.Name == "PurchaseRecord" && bytes.Contains(e.Payload, []byte(ticketID))
		})
		assert.True(t, ok, "purchase %s not stored in data lake", ticketID)
	}, 10*time.Second, 100*time.Millisecond)
}

func waitForHttpServer(t *testing.T, baseURL string) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(baseURL + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			if assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode) {
				return
			}
		},
		10*time.Second,
		100*time.Millisecond,
	)
}

func freeAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	return fmt.Sprintf("127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port)
}
