// Package main hosts the despatch CLI entrypoint and command graph.
//
// The Cobra command tree maps operator actions onto the site journal and
// submission pipeline: listing and editing a site's scan list, an interactive
// scan loop, batch submission, retention sweeps, and access probes. Config
// resolution, logger construction, and collaborator wiring live in the
// command context so each subcommand only handles presentation.
//
// Every command that selects a site releases the journal lock before it
// returns, including on error and signal paths.
package main
