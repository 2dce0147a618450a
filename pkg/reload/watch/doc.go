// Package watch triggers reloads.
//
// Three drivers are provided:
//
//   - WatchFile subscribes to a Notifier (FSNotifier in production) and calls
//     reload when the watched file is written or recreated.
//   - RunTimer calls reload, sleeps for an interval and starts again, until
//     its context ends.
//   - CronDriver calls reload on a cron schedule such as "@every 5s" or
//     "*/1 * * * *".
//
// Drivers only ever call the reload function they were given. Errors it
// returns are not handled here; proxies log their own failures and keep the
// previous definition.
//
// Example:
//
//	n, err := watch.NewFSNotifier(0, logger)
//	if err != nil {
//	    return err
//	}
//	cancel, err := watch.WatchFile(n, "scripts/greet.go", greet.Reload)
//	if err != nil {
//	    return err
//	}
//	defer cancel()
//	if err := n.Start(); err != nil {
//	    return err
//	}
//	defer n.Stop()
package watch
