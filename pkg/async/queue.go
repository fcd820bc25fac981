package async

// Queue is a FIFO queue of outstanding asynchronous requests. It is not safe
// for concurrent usage.
type Queue struct {
	// requests are the outstanding requests, oldest first.
	requests []*Request
}

// Add appends a request to the queue.
func (q *Queue) Add(request *Request) {
	q.requests = append(q.requests, request)
}

// Len returns the number of outstanding requests.
func (q *Queue) Len() int {
	return len(q.requests)
}

// Empty returns whether or not the queue has no outstanding requests.
func (q *Queue) Empty() bool {
	return len(q.requests) == 0
}

// TerminateHead completes and removes the oldest request with the specified
// status. It returns false if the queue was empty.
func (q *Queue) TerminateHead(status Status) bool {
	if len(q.requests) == 0 {
		return false
	}
	head := q.requests[0]
	q.requests[0] = nil
	q.requests = q.requests[1:]
	head.Complete(status)
	return true
}

// TerminateTail completes and removes the newest request with the specified
// status. It returns false if the queue was empty.
func (q *Queue) TerminateTail(status Status) bool {
	count := len(q.requests)
	if count == 0 {
		return false
	}
	tail := q.requests[count-1]
	q.requests[count-1] = nil
	q.requests = q.requests[:count-1]
	tail.Complete(status)
	return true
}

// TerminateAll completes and removes every request with the specified status,
// oldest first. It returns the number of requests terminated.
func (q *Queue) TerminateAll(status Status) int {
	requests := q.requests
	q.requests = nil
	for _, request := range requests {
		request.Complete(status)
	}
	return len(requests)
}
