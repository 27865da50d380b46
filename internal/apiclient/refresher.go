package apiclient

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Refresher guarantees that at most one refresh call is outstanding per
// refresh token. Callers that arrive while a refresh is in flight wait for
// that refresh and receive its result. The slot is released as soon as the
// attempt completes, whether it succeeded or not.
//
// One Refresher is shared by every Client in the process.
type Refresher struct {
	group singleflight.Group
}

// NewRefresher creates an empty refresh lock.
func NewRefresher() *Refresher {
	return &Refresher{}
}

// Do runs fn unless a call for the same key is already running, in which case
// it waits for that call. fn runs detached from the caller's cancellation so
// one caller giving up does not fail the others; ctx only bounds the wait.
func (r *Refresher) Do(ctx context.Context, key string, fn func(context.Context) (string, error)) (string, bool, error) {
	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-ch:
		token, _ := res.Val.(string)
		return token, res.Shared, res.Err
	}
}
