package backend

import (
	"context"

	"github.com/relabs-tech/homesense/core"
)

// notify forwards a committed change to the notifier, if there is one
func (b *Backend) notify(ctx context.Context, resource string, operation core.Operation, payload []byte) {
	if b.notifier == nil {
		return
	}
	b.notifier.Notify(ctx, resource, operation, payload)
}
