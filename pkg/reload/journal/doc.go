// Package journal keeps a history of reload attempts.
//
// Every attempt, successful or not, becomes a Record. A Recorder queues
// records and writes them to a Storage from a background goroutine; the
// reload path never blocks on it, and records arriving while the queue is
// full are dropped and counted. Two backends exist: SQLiteStorage, backed by
// github.com/mattn/go-sqlite3, and MemoryStorage.
//
// A Pruner removes records older than the retention period, and a Scheduler
// runs it on a cron schedule:
//
//	store, err := journal.Open(cfg.Journal, logger)
//	if err != nil {
//		return err
//	}
//	rec := journal.NewRecorder(store, journal.RecorderConfigFrom(cfg.Journal), logger)
//	defer store.Close()
//	defer rec.Close()
package journal
