// Package events carries in-process notifications from the application
// layer to the job producer.
//
// Services emit an Event (note saved, pack requested) through an
// EventEmitter without knowing which handlers turn it into background jobs.
// This keeps the packages that own notes free of any dependency on the
// queue.
package events
