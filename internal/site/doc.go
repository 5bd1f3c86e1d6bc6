// Package site owns the operator's working state for one despatch site: the
// locked journal and the in-memory list derived from it.
//
// Session rejects duplicate and malformed ids before the journal is touched,
// and changes its cached list only after the journal write succeeded, so the
// cache can always be re-derived from the file. While a submission is in
// flight the list is frozen. Selector switches between sites and releases the
// previous site's lock before the next one is taken.
package site
