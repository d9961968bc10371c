package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/roach88/foodking/internal/auth"
	"github.com/roach88/foodking/internal/model"
	"github.com/roach88/foodking/internal/poll"
)

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// watch polls fetch every interval and hands each result to show until the
// user interrupts, show returns true, or the staff session bound to e ends.
func watch[T any](ctx context.Context, e *env, name string, fetch poll.Fetcher[T], interval time.Duration, show func(v T) (stop bool)) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	var (
		sub   *poll.Subscription[T]
		mu    sync.Mutex
		fatal error
	)
	ready := make(chan struct{})

	if e.sess != nil {
		// A 401 invalidates the session before the failed fetch returns.
		unsubscribe := e.sess.Subscribe(func(st auth.State) {
			if st.Authenticated {
				return
			}
			<-ready
			mu.Lock()
			fatal = model.NewAuthError("cli.watch", "")
			mu.Unlock()
			sub.Cancel()
		})
		defer unsubscribe()
	}

	sub = poll.Start(ctx, fetch, interval,
		poll.WithName(name),
		poll.WithLogger(e.logger),
		poll.OnData(func(v T) {
			<-ready
			if show(v) {
				sub.Cancel()
			}
		}),
		poll.OnError(func(err error) {
			<-ready
			w := e.out.GetErrWriter()
			if _, ok := sub.Latest(); !ok {
				fmt.Fprintf(w, "Could not refresh: %s\n", model.UserMessage(err))
				return
			}
			fmt.Fprintf(w, "Could not refresh: %s (showing data from %s)\n",
				model.UserMessage(err), sub.Status().LastSuccess.Local().Format("15:04:05"))
		}),
	)
	close(ready)

	e.out.VerboseLog("Watching %s every %s, press Ctrl-C to stop.", name, interval)
	<-sub.Done()

	mu.Lock()
	defer mu.Unlock()
	return fatal
}
