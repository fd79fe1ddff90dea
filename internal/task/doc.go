// Package task manages background job queuing, processing, and lifecycle.
// It provides mechanisms for asynchronous grading of uploaded answer
// sheets, ensuring evaluation doesn't block HTTP request handling, that
// every sheet reaches a terminal status within the configured deadline,
// and that pending work survives application restarts.
package task
