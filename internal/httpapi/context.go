package httpapi

import "context"

// serverBaseCtx is canceled on shutdown so in-flight generations stop with
// the process.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context derived from req that is also canceled when
// base is done. The cancel func must be called when the handler ends.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// withTryOnTimeout applies tryOnTimeout on top of ctx.
func withTryOnTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if tryOnTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, tryOnTimeout)
}
