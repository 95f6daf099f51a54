package core

import "context"

// Notifier is an interface to receive change notifications. Resource is the
// entity kind ("user", "sensor", "measure"), payload the JSON of the record.
type Notifier interface {
	Notify(ctx context.Context, resource string, operation Operation, payload []byte)
}

// NotifierFunc adapts an ordinary function to a Notifier
type NotifierFunc func(ctx context.Context, resource string, operation Operation, payload []byte)

// Notify calls f
func (f NotifierFunc) Notify(ctx context.Context, resource string, operation Operation, payload []byte) {
	f(ctx, resource, operation, payload)
}
