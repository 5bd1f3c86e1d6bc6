// Package rpd talks to the HTTP print-despatch intake.
//
// The client authenticates operators against the intake login endpoint and
// uploads payload and marker files as multipart requests carrying a bearer
// token. Non-2xx responses are decoded from the intake's JSON error body and
// returned verbatim as *services.TransportError so the operator sees the
// intake's own code, message and remedy.
package rpd
