// Package session implements the filesystem handshake with the worker process.
//
// The worker writes a small JSON session descriptor once it is ready (or once
// it has decided it cannot start). The client computes the descriptor path up
// front, deletes any stale file before spawning, polls for the file with a
// bounded attempt budget and deletes it again after reading it.
//
//	paths := session.DefaultPaths()
//	store := session.NewStore(log)
//	waiter := session.NewWaiter(log, store, 60, time.Second)
//	desc, err := waiter.Wait(ctx, paths.File(uniqueID))
package session
