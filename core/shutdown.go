package core

import "context"

// ShutdownFunc is the signature for cleanup handlers executed during
// graceful shutdown. The context carries the shutdown deadline.
type ShutdownFunc func(ctx context.Context) error
