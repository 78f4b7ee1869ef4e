package commander_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/retailops/erpsync/pkg/v1/commander"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitSendCatalogSync(t *testing.T) {
	documentURL := faker.URL()
	body := fmt.Sprintf(`{"kind":"catalog","documentUrl":"%s"}`, documentURL)

	tests := map[string]struct {
		senderError error
		wantErr     error
	}{
		"ok": {},
		"sender error": {
			senderError: assert.AnError,
			wantErr:     assert.AnError,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			sender := &fakeSender{err: tt.senderError}

			cmndr := commander.NewSyncCommander(sender)
			err := cmndr.SendCatalogSync(context.TODO(), documentURL)

			require.ErrorIs(t, err, tt.wantErr, "should return correct error")
			assert.Equal(t, body, string(sender.sent), "should send correct command")
		})
	}
}

func TestUnitSendSalesSync(t *testing.T) {
	sender := &fakeSender{}
	cmndr := commander.NewSyncCommander(sender)

	err := cmndr.SendSalesSync(context.TODO(), commander.SalesWindow{Full: true, ChunkDays: 7})

	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"sales","full":true,"chunkDays":7}`, string(sender.sent))
}

func TestUnitSendDedup(t *testing.T) {
	sender := &fakeSender{}
	cmndr := commander.NewSyncCommander(sender)

	err := cmndr.SendDedup(context.TODO(), "loose", true)

	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"dedup","strategy":"loose","apply":true}`, string(sender.sent))
}

func TestUnitSendCancel(t *testing.T) {
	sender := &fakeSender{}
	cmndr := commander.NewSyncCommander(sender)

	err := cmndr.SendCancel(context.TODO(), "task-1")

	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"cancel","taskId":"task-1"}`, string(sender.sent))
}

type fakeSender struct {
	sent []byte
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg []byte) error {
	f.sent = msg
	return f.err
}
