package agent

import (
	"context"

	"go.uber.org/zap"

	"arithmetic-calculator/internal/logger"
)

// Worker обрабатывает поступающие задачи из канала.
// Каждая задача пишет только в свою ячейку results.
func Worker(ctx context.Context, workerID int, client OperationClient, tasks <-chan task, results []JobResult) {
	for t := range tasks {
		out, err := client.Settle(ctx, t.job.Kind, t.job.First, t.job.Second)
		results[t.index] = JobResult{Job: t.job, Worker: workerID, Outcome: out, Err: err}

		if err != nil {
			logger.LogERROR("job failed",
				zap.Int("worker", workerID),
				zap.String("kind", t.job.Kind.String()),
				zap.Error(err))
			continue
		}
		logger.LogINFO("job completed",
			zap.Int("worker", workerID),
			zap.String("kind", t.job.Kind.String()),
			zap.String("result", out.Result),
			zap.Int64("balance", out.Balance))
	}
}
