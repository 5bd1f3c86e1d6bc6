// Package hotfolder delivers despatch files by copying them into a watched
// intake directory.
//
// Files are copied to a ".part" name first and renamed into place once the
// size and SHA256 of the copy match the source, so the intake never picks up
// a half-written payload. Failures are reported as *services.TransportError
// values with a stable code and a remedy an operator can act on.
package hotfolder
