// Package redirect implements the rule table that maps inbound request
// paths to destination URLs.
//
// Rules come from a YAML file with three sections: exact seller slugs,
// regex patterns with $1-style capture expansion, and passthrough
// prefixes the table does not own. Resolution returns an explicit
// Outcome variant (Redirect, Continue, or NotFound) instead of
// signalling through errors.
//
// The Resolver holds the active compiled Table behind a read lock and
// swaps it atomically on reload. The Watcher reloads the file on
// change with debouncing; a file that fails validation leaves the
// previous table in place.
package redirect
