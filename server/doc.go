// Package server exposes threads over an HTTP JSON API.
//
// Routes:
//
//	POST   /threads                  create a thread
//	GET    /threads                  list threads, newest first
//	GET    /threads/{id}             get a thread
//	DELETE /threads/{id}             delete a thread and its history
//	GET    /threads/{id}/messages    committed turns in order
//	POST   /threads/{id}/messages    run one exchange for a text message
//	POST   /threads/{id}/audio       run one exchange for an uploaded recording
//	POST   /threads/{id}/cancel      cancel the exchange in flight
//	GET    /health                   liveness
//
// An exchange truncated by the tool chain limit still answers 200 with
// "partial": true and a warning.
package server
