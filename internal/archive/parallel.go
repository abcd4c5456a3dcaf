package archive

import (
	"context"

	"github.com/zorak1103/restorekit/internal/database"
	"github.com/zorak1103/restorekit/internal/reentry"
	"golang.org/x/sync/errgroup"
)

// restoreParallel fans the entries out to at most jobs worker units, each
// with its own connection. Once a worker terminates with a non-zero code no
// further entries are dispatched; entries already in flight finish.
func (a *archive) restoreParallel(ctx context.Context, jobs int, params database.Params) error {
	queue := make(chan Entry, len(a.entries))
	for _, e := range a.entries {
		queue <- e
	}
	close(queue)

	a.run.Verbosef(moduleArchiver, "launching %d parallel workers\n", min(jobs, len(a.entries)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for range min(jobs, len(a.entries)) {
		w := a.run.Worker()
		g.Go(func() error {
			err := w.Go(func() error {
				return a.work(ctx, gctx, w, params, queue)
			})
			if exitErr, ok := reentry.AsExit(err); ok && exitErr.Worker && exitErr.Code == 0 {
				return nil
			}
			return err
		})
	}

	err := g.Wait()
	if exitErr, ok := reentry.AsExit(err); ok && exitErr.Worker {
		return a.run.Fatal(moduleArchiver, "a worker ended with exit code %d\n", exitErr.Code)
	}
	if err == nil && ctx.Err() != nil {
		return a.run.Fatal(moduleArchiver, "restore interrupted: %v\n", ctx.Err())
	}
	return err
}

// work applies entries from queue until it is empty or the restore is
// stopping. ctx bounds database calls; gctx is cancelled when a sibling
// worker fails.
func (a *archive) work(ctx, gctx context.Context, w *reentry.Run, params database.Params, queue <-chan Entry) error {
	conn, err := a.connect(ctx, w, params)
	if err != nil {
		return err
	}

	for !stopping(gctx, w) {
		e, ok := <-queue
		if !ok {
			break
		}
		if err := a.apply(ctx, w, conn, e); err != nil {
			return err
		}
	}

	w.Finish()
	return nil
}

// stopping reports whether a sibling worker has failed, or an error was
// escalated to fatal by exit-on-error.
func stopping(gctx context.Context, w *reentry.Run) bool {
	if gctx.Err() != nil {
		return true
	}
	return w.ExitOnError() && w.Errors() > 0
}
