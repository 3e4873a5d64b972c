package tasks

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// NewServer configures the asynq server that consumes email tasks
func NewServer(redisAddr, redisPassword string, redisDB, concurrency int, log *logrus.Logger) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Errorf("Task %s failed: %v", task.Type(), err)
			}),
		},
	)
}

// NewMux routes task types to the processor's handlers
func NewMux(p *Processor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReminderEmail, p.HandleReminderEmail)
	mux.HandleFunc(TypeLateFeeEmail, p.HandleLateFeeEmail)
	mux.HandleFunc(TypeIssuedEmail, p.HandleInvoiceIssued)
	return mux
}
