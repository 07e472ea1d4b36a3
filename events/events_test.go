package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, ImageCreated, ImagePayload{ImageID: "img_1", AuthorID: "u_1"}))
	require.NoError(t, r.Publish(ctx, CreditDebited, CreditPayload{UserID: "u_1", Amount: -1, Balance: 4}))

	assert.Equal(t, []string{ImageCreated, CreditDebited}, r.Subjects())
	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "img_1", events[0].Payload.(ImagePayload).ImageID)

	// callers get a copy
	events[0].Subject = "changed"
	assert.Equal(t, ImageCreated, r.Events()[0].Subject)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Publish(context.Background(), UserCreated, nil))
}

func TestNATS_PublishWithoutConnection(t *testing.T) {
	p := &NATS{}
	err := p.Publish(context.Background(), ImageDeleted, ImagePayload{ImageID: "x"})
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	p.Close()
}

func TestEnvelopeShape(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b, err := json.Marshal(envelope{Subject: CreditDebited, OccurredAt: at, Data: CreditPayload{UserID: "u", Amount: -1, Balance: 9}})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"subject": "credits.debited",
		"occurredAt": "2024-05-01T12:00:00Z",
		"data": {"userId": "u", "amount": -1, "balance": 9}
	}`, string(b))
}
