package commander_test

import (
	"context"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/retailops/erpsync/pkg/v1/commander"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitRabbitMQSenderSend(t *testing.T) {
	body := []byte(`{"kind":"catalog"}`)
	routingKey := faker.Word()

	tests := map[string]struct {
		publisherError error
		wantErr        error
	}{
		"ok": {},
		"publisher error": {
			publisherError: assert.AnError,
			wantErr:        assert.AnError,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			publisher := &fakePublisher{err: tt.publisherError}

			sender := commander.NewRabbitMQSender(publisher, routingKey)
			err := sender.Send(context.TODO(), body)

			require.ErrorIs(t, err, tt.wantErr, "should return correct error")
			assert.Equal(t, routingKey, publisher.routingKey, "should publish to correct routing key")
			assert.Equal(t, body, publisher.published, "should publish correct message")
		})
	}
}

type fakePublisher struct {
	routingKey string
	published  []byte
	err        error
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, msg []byte) error {
	f.routingKey = routingKey
	f.published = msg
	return f.err
}
