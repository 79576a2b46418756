// Package taskrunner runs blocking provider calls in the background.
//
// Each task has a key. Starting a task under a running key cancels the older
// one, which gives "latest request wins" behavior for rapid interactions
// such as typing into a search box. Cancellation is cooperative: the task's
// context is cancelled and its callbacks are suppressed, but the call
// itself runs until it notices the context or hits its own timeout.
//
//	r := taskrunner.New(taskrunner.Config{MaxWorkers: 4}, log)
//	r.Start("search", func(ctx context.Context, progress taskrunner.ProgressFunc) (any, error) {
//	    return conn.Query(ctx, "docs", q)
//	}, taskrunner.Callbacks{
//	    OnSuccess: func(v any) { show(v.(*vectordb.SearchResult)) },
//	    OnError:   func(err error) { notify(err) },
//	})
package taskrunner
