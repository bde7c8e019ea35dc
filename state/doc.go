// Package state persists retry bookkeeping across hook invocations.
//
// Two kinds of data are stored per failure signature:
//
//   - Record: the canonical retry counter (phase, attempts in phase, total
//     attempts, last attempt time). Phase decisions are made from this only.
//   - ErrorState: a richer session view (category, research notes, the log
//     of attempted fixes). Its phase fields are a derived copy, resynced from
//     the Record on every invocation and never written back into it.
//
// # Backends
//
//   - FileStore / SessionFile: JSON files under the project state directory,
//     rewritten with write-temp-then-rename so readers never see a partial file.
//   - BadgerStore: embedded transactional store (one directory, both kinds).
//   - MemoryStore: in-process, for tests and degraded operation.
//
// # Concurrency
//
// Each hook invocation is a separate process. Load-modify-save sequences
// from concurrent sessions on the same project would lose increments
// (last writer wins), so FileStore implements Locker with an advisory OS
// lock on a sidecar file. Callers hold it across the whole sequence:
//
//	if l, ok := store.(state.Locker); ok {
//	    lock, err := l.Lock(ctx)
//	    if err == nil {
//	        defer lock.Unlock()
//	    }
//	}
//
// On platforms without advisory locks the lock is a no-op and the
// last-writer-wins behaviour remains.
package state
