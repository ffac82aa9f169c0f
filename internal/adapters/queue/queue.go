// Package queue holds the work-queue message shared by the queue adapters
package queue

import "fmt"

// PendingPrefix is the key prefix producers push raw listings under
const PendingPrefix = "listings:"

// Message is one raw listing taken from a source queue
// Body is the exact payload bytes; adapters remove by value so it must not be mutated
type Message struct {
	Source string
	Body   []byte
}

// Pending is the producer-facing list for source
func Pending(source string) string { return PendingPrefix + source }

// Processing is the in-flight list a single consumer owns for source
func Processing(source, consumer string) string {
	return fmt.Sprintf("%s%s:processing:%s", PendingPrefix, source, consumer)
}

// Dead is the dead-letter list for source
func Dead(source string) string { return PendingPrefix + source + ":dead" }
