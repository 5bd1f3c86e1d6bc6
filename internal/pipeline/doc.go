// Package pipeline runs one despatch submission from authentication through
// delivery to journal clearing.
//
// A Pipeline moves through Idle, AwaitingAuth, Exporting and ends in Success
// or Failed, emitting exactly one terminal Event. An empty batch is rejected
// before the machine starts. The journal is cleared only after the exporter
// reports full delivery; any failure leaves it exactly as it was so the
// operator can resubmit. The retention sweep runs in the background after a
// success and never changes the outcome. A Pipeline is single use.
package pipeline
