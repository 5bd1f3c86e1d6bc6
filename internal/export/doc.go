// Package export turns an ordered list of job ids into the two-file transfer
// artifact and drives its delivery.
//
// A submission writes a payload file (one id per line) and an
// end-of-transfer marker (RUNVOL, USER, RUNDATE) that share a prefix and a
// single ddMMyyyy_HHmmss stamp. The four steps run strictly in order: write
// payload, deliver payload, write marker, deliver marker. The first failure
// ends the run. The exporter never touches the journal; clearing it is the
// pipeline's decision.
package export
