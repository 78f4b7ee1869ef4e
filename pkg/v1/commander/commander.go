package commander

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

//go:generate mockery --name Sender --filename sender.go

// Sender sends messages.
type Sender interface {
	Send(context.Context, []byte) error
}

// SalesWindow bounds one sales sync run.
type SalesWindow struct {
	From      *time.Time
	To        *time.Time
	Full      bool
	ChunkDays int
}

// SyncCommander sends sync commands.
type SyncCommander struct {
	sender Sender
}

// NewSyncCommander returns new SyncCommander using provided sender for sending messages.
func NewSyncCommander(sender Sender) SyncCommander {
	return SyncCommander{
		sender: sender,
	}
}

// SendCatalogSync sends a command to sync the catalog from the exchange
// document at documentURL.
func (c SyncCommander) SendCatalogSync(ctx context.Context, documentURL string) error {
	return c.send(ctx, SyncCommand{
		Kind:        KindCatalog,
		DocumentURL: documentURL,
	})
}

// SendSalesSync sends a command to sync sales over the given window.
func (c SyncCommander) SendSalesSync(ctx context.Context, window SalesWindow) error {
	return c.send(ctx, SyncCommand{
		Kind:      KindSales,
		From:      window.From,
		To:        window.To,
		Full:      window.Full,
		ChunkDays: window.ChunkDays,
	})
}

// SendDedup sends a command to run duplicate remediation. With apply false
// the worker only reports candidate groups.
func (c SyncCommander) SendDedup(ctx context.Context, strategy string, apply bool) error {
	return c.send(ctx, SyncCommand{
		Kind:     KindDedup,
		Strategy: strategy,
		Apply:    apply,
	})
}

// SendCancel sends a command to cancel a running task.
func (c SyncCommander) SendCancel(ctx context.Context, taskID string) error {
	return c.send(ctx, SyncCommand{
		Kind:   KindCancel,
		TaskID: taskID,
	})
}

func (c SyncCommander) send(ctx context.Context, cmd SyncCommand) error {
	cmdMsg, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("can't marshal sync command: %w", err)
	}

	return c.sender.Send(ctx, cmdMsg)
}
