package shutdown

import "context"

// Shutdowner is satisfied by *http.Server and the API server.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Stopper is satisfied by the topology refresher and the snapshot poller,
// whose Stop blocks until their loop has returned.
type Stopper interface {
	Stop()
}

// named adapts a shutdown function to Component.
type named struct {
	name string
	stop func(ctx context.Context) error
}

func (n named) Name() string                       { return n.name }
func (n named) Shutdown(ctx context.Context) error { return n.stop(ctx) }

// NewServerComponent stops a server: no new connections, in-flight requests
// drain until ctx expires.
func NewServerComponent(name string, server Shutdowner) Component {
	return named{name: name, stop: server.Shutdown}
}

// NewLoopComponent stops a background loop. Stop has no deadline of its own,
// so a loop that hangs is abandoned once ctx expires.
func NewLoopComponent(name string, loop Stopper) Component {
	return named{name: name, stop: func(ctx context.Context) error {
		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			loop.Stop()
		}()
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}}
}
