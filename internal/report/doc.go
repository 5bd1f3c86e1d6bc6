// Package report renders the despatch report written after a successful
// submission: a heading, who submitted and when, and a table of the job ids
// that were delivered.
package report
