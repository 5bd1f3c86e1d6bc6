// Package preflight provides readiness checks for the filesystem paths and
// intake endpoints that despatch depends on.
//
// These checks run in two contexts:
//   - Site selection calls CanWriteSharedOutput before a journal is opened so
//     an operator never scans against a share they cannot submit to.
//   - The CLI "despatch probe" command uses RunAll to display every check.
//
// Only the probe performs a real write; the other checks are read-only.
package preflight
