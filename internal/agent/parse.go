package agent

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"arithmetic-calculator/internal/evaluator"
)

// ParseJob разбирает строку вида "addition 1 2" или "randomString"
func ParseJob(line string) (Job, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Job{}, fmt.Errorf("%w: empty job", evaluator.ErrInvalidOperands)
	}
	if len(fields) > 3 {
		return Job{}, fmt.Errorf("%w: too many operands in %q", evaluator.ErrInvalidOperands, line)
	}

	kind, err := evaluator.ParseKind(fields[0])
	if err != nil {
		return Job{}, err
	}

	job := Job{Kind: kind}
	operands := []**int64{&job.First, &job.Second}
	for i, raw := range fields[1:] {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Job{}, fmt.Errorf("%w: operand %q is not an integer", evaluator.ErrInvalidOperands, raw)
		}
		*operands[i] = &n
	}
	return job, nil
}

// ParseJobs читает задачи по одной на строку; пустые строки и # пропускаются
func ParseJobs(r io.Reader) ([]Job, error) {
	var jobs []Job
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		job, err := ParseJob(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		jobs = append(jobs, job)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}
