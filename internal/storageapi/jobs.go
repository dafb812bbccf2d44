package storageapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var errJobRunning = errors.New("job is still running")

// GetJob returns the current state of an asynchronous job.
func (c *Client) GetJob(ctx context.Context, id int64) (*Job, error) {
	var job Job
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/jobs/%d", id), nil, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// WaitForJob polls the job until it finishes. A job that ends with an error is
// returned as *Error carrying the job's error detail.
func (c *Client) WaitForJob(ctx context.Context, job *Job) (*Job, error) {
	current := job
	poll := func() error {
		if current.Finished() {
			return nil
		}
		next, err := c.GetJob(ctx, current.ID)
		if err != nil {
			return backoff.Permanent(err)
		}
		current = next
		if !current.Finished() {
			return errJobRunning
		}
		return nil
	}

	notify := func(_ error, d time.Duration) {
		c.log.Debugf("Storage job %d is %s, next check in %s", current.ID, current.Status, d)
	}

	if err := backoff.RetryNotify(poll, backoff.WithContext(c.newPollBackOff(), ctx), notify); err != nil {
		if errors.Is(err, errJobRunning) {
			return nil, fmt.Errorf("storage job %d did not finish", current.ID)
		}
		return nil, err
	}

	if current.Status == JobStatusError {
		apiErr := &Error{Message: fmt.Sprintf("Storage job %d failed", current.ID)}
		if current.Error != nil {
			apiErr.Code = current.Error.Code
			apiErr.Message = current.Error.Message
			apiErr.ExceptionID = current.Error.ExceptionID
		}
		return nil, apiErr
	}
	return current, nil
}
