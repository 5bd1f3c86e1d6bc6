// Package jobid defines the JobRecord value captured for every scanned job
// and its journal line encoding.
//
// A record is identified by its ten digit job id alone; the capture
// timestamp travels with it into storage but never participates in equality.
package jobid
