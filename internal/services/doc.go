// Package services defines shared utilities consumed by the despatch core and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp the active site and submission batch
//     identifier for logging and tracing.
//   - Structured error markers plus the Wrap helper, and the TransportError
//     type that carries an intake's code/message/remedy triple verbatim.
//   - Sub-packages hosting the transport collaborators (hot folder copy and
//     the HTTP intake client).
//
// Use these helpers when wiring new components so operational behaviour
// (error classification, observability) stays uniform across the pipeline.
package services
