// Package auth holds the operator session consumed by the submission
// pipeline.
//
// A Session records who is logged in and the token the transport should
// present. Credentials are checked by an Authenticator: the HTTP intake
// client for networked deployments, or Local for hot-folder sites where the
// workstation login is trusted.
package auth
