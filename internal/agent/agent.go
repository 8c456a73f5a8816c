package agent

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"arithmetic-calculator/internal/evaluator"
	"arithmetic-calculator/internal/logger"
	"arithmetic-calculator/internal/settlement"
)

// OperationClient представляет интерфейс клиента сервиса операций
type OperationClient interface {
	Settle(ctx context.Context, kind evaluator.Kind, first, second *int64) (*settlement.Outcome, error)
}

type task struct {
	index int
	job   Job
}

// Run раздает задачи workers воркерам и ждет их завершения.
// Результаты возвращаются в порядке задач.
func Run(ctx context.Context, client OperationClient, jobs []Job, workers int) []JobResult {
	if workers < 1 {
		logger.LogERROR("worker count is not positive, using 1", zap.Int("workers", workers))
		workers = 1
	}
	if workers > len(jobs) && len(jobs) > 0 {
		workers = len(jobs)
	}

	results := make([]JobResult, len(jobs))
	tasks := make(chan task, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			Worker(ctx, id, client, tasks, results)
		}(i + 1)
	}

	logger.LogINFO("agent started", zap.Int("workers", workers), zap.Int("jobs", len(jobs)))

feed:
	for i, job := range jobs {
		select {
		case tasks <- task{index: i, job: job}:
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				results[j] = JobResult{Job: jobs[j], Err: ctx.Err()}
			}
			break feed
		}
	}
	close(tasks)
	wg.Wait()

	return results
}

// Summary считает успешные и неудачные задачи
func Summary(results []JobResult) (ok, failed int) {
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	return ok, failed
}
