package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrJobNotFound = errors.New("job not found")

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusDelayed   Status = "delayed"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Job struct {
	ID         string
	Queue      string
	Payload    json.RawMessage
	Priority   int
	Attempts   int // executions started so far, including the current one
	Status     Status
	LastError  string
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return Permanent(fmt.Errorf("failed to decode %s job payload: %w", j.Queue, err))
	}
	return nil
}

type Counts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; the job fails on its current attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

func jobFromHash(queue string, fields map[string]string) *Job {
	job := &Job{
		ID:        fields["id"],
		Queue:     queue,
		Payload:   json.RawMessage(fields["payload"]),
		Status:    Status(fields["status"]),
		LastError: fields["last_error"],
	}
	job.Priority, _ = strconv.Atoi(fields["priority"])
	job.Attempts, _ = strconv.Atoi(fields["attempts"])
	job.CreatedAt = millisToTime(fields["created_at"])
	job.FinishedAt = millisToTime(fields["finished_at"])
	return job
}

func millisToTime(value string) time.Time {
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
