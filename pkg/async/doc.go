// Package async provides the asynchronous request primitives used by the
// notification server: status codes, completable requests, and FIFO request
// queues.
package async
