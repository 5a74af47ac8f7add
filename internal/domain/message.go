package domain

import (
	"context"
	"fmt"
	"time"
)

// RawEvent is one irrigation request as consumed from the request topic.
// Commit acknowledges it; nil means the source has nothing to acknowledge.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Source identifies where the request was read from, as topic/partition@offset.
func (r RawEvent) Source() string {
	return fmt.Sprintf("%s/%d@%d", r.Topic, r.Partition, r.Offset)
}

// OutputEvent is an encoded recommendation ready for the recommendation topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
