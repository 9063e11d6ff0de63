package gdc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
)

// errNotFinished marks a poll that has to be repeated.
var errNotFinished = errors.New("task not finished")

// PollHandler describes how to poll one kind of asynchronous task. Which HTTP
// status signals completion differs per endpoint, so every service supplies
// its own Finished predicate.
type PollHandler[T any] struct {
	// URI is the initial polling URI.
	URI string

	// Finished reports whether resp is the terminal response. It is only
	// called for 2xx responses. An error ends polling with that error.
	// Default: status 200.
	Finished func(resp *Response) (bool, error)

	// Redirect returns the URI to continue polling at, or "" to keep the
	// current one. It is called for unfinished responses. 3xx responses with
	// a Location header are followed without consulting Redirect.
	Redirect func(resp *Response) string

	// Result converts the terminal response into the task result, possibly
	// by fetching the final resource.
	// Default: decode the body into T.
	Result func(ctx context.Context, resp *Response) (T, error)

	// Err builds the error returned when a poll fails with a transport error
	// or a non-success status. err is an *Error carrying the URI.
	// Default: err unchanged.
	Err func(err error) error
}

func (h *PollHandler[T]) finished(resp *Response) (bool, error) {
	if h.Finished == nil {
		return resp.StatusCode == http.StatusOK, nil
	}
	return h.Finished(resp)
}

func (h *PollHandler[T]) redirect(resp *Response) string {
	if h.Redirect == nil {
		return ""
	}
	return h.Redirect(resp)
}

func (h *PollHandler[T]) result(ctx context.Context, resp *Response) (T, error) {
	if h.Result == nil {
		var v T
		err := resp.Decode(&v)
		return v, err
	}
	return h.Result(ctx, resp)
}

func (h *PollHandler[T]) err(err error) error {
	if h.Err == nil {
		return err
	}
	return h.Err(err)
}

// FutureResult is the pending result of an asynchronous task. The value is
// obtained by polling until the task finishes.
//
// Once the task finished or failed, every call returns the same outcome
// without further requests. Giving up waiting (timeout, cancelled context)
// leaves the task pollable and does not cancel the remote operation.
//
// A FutureResult is not safe for concurrent use.
type FutureResult[T any] struct {
	client   *Client
	handler  PollHandler[T]
	uri      string
	interval time.Duration
	logger   hclog.Logger

	done   bool
	result T
	err    error
}

// NewFutureResult starts tracking the task described by h.
func NewFutureResult[T any](c *Client, h PollHandler[T]) *FutureResult[T] {
	return &FutureResult[T]{
		client:   c,
		handler:  h,
		uri:      h.URI,
		interval: c.PollInterval(),
		logger:   c.Logger().Named("poll"),
	}
}

// Completed returns a FutureResult that is already finished with result.
func Completed[T any](uri string, result T) *FutureResult[T] {
	return &FutureResult[T]{
		uri:    uri,
		done:   true,
		result: result,
	}
}

// PollingURI returns the URI the next poll is sent to.
func (f *FutureResult[T]) PollingURI() string {
	return f.uri
}

// IsDone polls once unless the task is already known to be finished.
func (f *FutureResult[T]) IsDone(ctx context.Context) (bool, error) {
	if f.done {
		return true, f.err
	}
	done, err := f.step(ctx)
	if err != nil && !f.done && ctx.Err() != nil {
		return false, f.timeout(ctx, 0)
	}
	return done, err
}

// Get blocks until the task finishes or ctx is done. When ctx expires a
// *TimeoutError is returned.
func (f *FutureResult[T]) Get(ctx context.Context) (T, error) {
	return f.wait(ctx, 0)
}

// GetWithTimeout blocks for at most timeout. A task that does not finish in
// time yields a *TimeoutError.
func (f *FutureResult[T]) GetWithTimeout(timeout time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f.wait(ctx, timeout)
}

func (f *FutureResult[T]) wait(ctx context.Context, timeout time.Duration) (T, error) {
	if f.done {
		return f.result, f.err
	}

	operation := func() (T, error) {
		done, err := f.step(ctx)
		if err != nil {
			return f.result, backoff.Permanent(err)
		}
		if !done {
			return f.result, errNotFinished
		}
		return f.result, nil
	}
	notify := func(err error, next time.Duration) {
		f.logger.Trace("task not finished", "uri", f.uri, "next_poll_in", next)
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(f.interval), ctx)
	result, err := backoff.RetryNotifyWithData(operation, b, notify)
	if err != nil {
		if !f.done && ctx.Err() != nil {
			var zero T
			return zero, f.timeout(ctx, timeout)
		}
		return result, err
	}
	return result, nil
}

// step sends one poll. It reports whether the task finished.
func (f *FutureResult[T]) step(ctx context.Context) (bool, error) {
	resp, err := f.client.Do(ctx, http.MethodGet, f.uri, nil)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return f.finish(f.result, f.handler.err(err))
	}

	f.logger.Trace("polled", "uri", f.uri, "status", resp.StatusCode)

	if resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.Location() != "" {
		f.uri = resp.Location()
		f.logger.Debug("polling redirected", "uri", f.uri)
		return false, nil
	}

	if !resp.IsSuccess() {
		return f.finish(f.result, f.handler.err(newResponseError(http.MethodGet, f.uri, resp)))
	}

	finished, err := f.handler.finished(resp)
	if err != nil {
		return f.finish(f.result, err)
	}
	if !finished {
		if next := f.handler.redirect(resp); next != "" && next != f.uri {
			f.uri = next
			f.logger.Debug("polling redirected", "uri", f.uri)
		}
		return false, nil
	}

	result, err := f.handler.result(ctx, resp)
	if err != nil && ctx.Err() != nil {
		// The final fetch was interrupted; the task itself is finished.
		return false, ctx.Err()
	}
	f.logger.Debug("task finished", "uri", f.uri, "error", err)
	return f.finish(result, err)
}

func (f *FutureResult[T]) finish(result T, err error) (bool, error) {
	f.done = true
	f.result = result
	f.err = err
	return true, err
}

func (f *FutureResult[T]) timeout(ctx context.Context, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("stopped waiting for %s: %w", f.uri, ctx.Err())
	}
	return &TimeoutError{URI: f.uri, Timeout: timeout}
}

// Poll waits for the task described by h to finish.
func Poll[T any](ctx context.Context, c *Client, h PollHandler[T]) (T, error) {
	return NewFutureResult(c, h).Get(ctx)
}
