package tasks

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/ledgerbill/invoice-service/internal/billing"
)

// Client enqueues email tasks for the worker to deliver
type Client struct {
	client *asynq.Client
	log    *logrus.Logger
}

// NewClient creates an asynq client on the given Redis connection
func NewClient(redisAddr, redisPassword string, redisDB int, log *logrus.Logger) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	return &Client{client: client, log: log}
}

// EnqueueReminder queues a reminder email. Reminders ride the critical
// queue; a rung that fires today is stale tomorrow.
func (c *Client) EnqueueReminder(invoiceID int64, dayOffset int, tone billing.Tone) error {
	task, err := NewReminderEmailTask(invoiceID, dayOffset, tone)
	if err != nil {
		return err
	}
	info, err := c.client.Enqueue(task, asynq.Queue("critical"), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}
	c.log.Debugf("Enqueued task %s for invoice %d (offset %+d)", info.ID, invoiceID, dayOffset)
	return nil
}

// EnqueueLateFeeNotice queues a late-fee notice email
func (c *Client) EnqueueLateFeeNotice(invoiceID int64) error {
	task, err := NewLateFeeEmailTask(invoiceID)
	if err != nil {
		return err
	}
	info, err := c.client.Enqueue(task, asynq.Queue("default"), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("failed to enqueue late fee notice: %w", err)
	}
	c.log.Debugf("Enqueued task %s for invoice %d", info.ID, invoiceID)
	return nil
}

// EnqueueInvoiceIssued queues a new-invoice notice email
func (c *Client) EnqueueInvoiceIssued(invoiceID int64) error {
	task, err := NewInvoiceIssuedTask(invoiceID)
	if err != nil {
		return err
	}
	info, err := c.client.Enqueue(task, asynq.Queue("default"), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("failed to enqueue issued notice: %w", err)
	}
	c.log.Debugf("Enqueued task %s for invoice %d", info.ID, invoiceID)
	return nil
}

// Close releases the underlying asynq client
func (c *Client) Close() error {
	return c.client.Close()
}
