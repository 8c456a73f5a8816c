package agent

import (
	"arithmetic-calculator/internal/evaluator"
	"arithmetic-calculator/internal/settlement"
)

// Job представляет собой одну операцию для отправки на сервер
type Job struct {
	Kind   evaluator.Kind `json:"type"`
	First  *int64         `json:"first_term,omitempty"`
	Second *int64         `json:"second_term,omitempty"`
}

// JobResult представляет собой результат выполнения задачи
type JobResult struct {
	Job     Job
	Worker  int
	Outcome *settlement.Outcome
	Err     error
}
