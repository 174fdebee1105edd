// Package queue implements a request-coalescing dispatch queue
// ("single-flight" FIFO) for slow backend lookups.
//
// Every distinct key is fetched once no matter how many callers ask for it
// while the fetch is queued or running; all of them receive the same value or
// the same error. Distinct keys are dispatched strictly in first-enqueue order
// by one worker, one key at a time.
//
//	q := queue.New[int, User](store.Fetch, queue.Options{})
//	defer q.Close()
//
//	u, err := q.Do(ctx, 42)
//	if backend.IsNotFound(err) {
//	    // 404
//	}
package queue
