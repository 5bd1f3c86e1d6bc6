// Package journal persists the pending job ids of one despatch site in a flat
// append-only line file.
//
// The file is the sole source of truth: every successful Read leaves the
// journal locked by the caller, and each mutation (Append, Remove, Clear)
// briefly releases and re-takes the lock around its write. Exclusivity spans
// separate processes; the default Locker marks the file read-only while held
// so a second session sees a readable but unwritable journal and fails with
// services.ErrBusy. FlockLocker substitutes an advisory OS lock without
// changing callers.
//
// A crash between the release and the re-lock of a mutation leaves the file
// writable. A later session cannot tell that state apart from a free journal;
// this is an accepted risk and no recovery protocol is attempted.
package journal
