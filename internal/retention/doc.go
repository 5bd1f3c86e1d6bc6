// Package retention deletes aged transfer and report artifacts from a site's
// shared output directory.
//
// A file is eligible when its extension is DAT, EOT, TXT or PDF (any case)
// and its creation time is strictly older than now minus the retention
// period. Creation time is the statx birth time where the filesystem records
// one and the modification time otherwise. The sweep refuses to start when
// the directory is missing or not writable; individual delete failures are
// logged and collected without stopping the sweep.
package retention
