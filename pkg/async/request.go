package async

// Request represents an outstanding asynchronous request. It is completed
// exactly once, from the request-processing loop, and may be waited on from
// any Goroutine.
type Request struct {
	// completion is an optional callback invoked on completion.
	completion func(Status)
	// status is the completion status. It is only valid once done is closed.
	status Status
	// done is closed when the request completes.
	done chan struct{}
}

// NewRequest creates a new pending request. The completion callback may be nil.
// If non-nil, it is invoked synchronously on the Goroutine that completes the
// request.
func NewRequest(completion func(Status)) *Request {
	return &Request{
		completion: completion,
		status:     StatusPending,
		done:       make(chan struct{}),
	}
}

// Complete completes the request with the specified status. It returns false if
// the request had already completed, in which case it has no effect.
func (r *Request) Complete(status Status) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	r.status = status
	close(r.done)
	if r.completion != nil {
		r.completion(status)
	}
	return true
}

// Done returns a channel that is closed when the request completes.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Status returns the completion status of the request, or StatusPending if it
// hasn't yet completed.
func (r *Request) Status() Status {
	select {
	case <-r.done:
		return r.status
	default:
		return StatusPending
	}
}
