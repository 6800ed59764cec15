// Package naming infers title, release year, and release group from dotted
// release filenames and rewrites them into the canonical library form.
//
// Every function here is pure and works on a simplified name (a file name with
// its parent directory stripped). Year extraction returns an explicit YearSpan
// that title and tail extraction consume, so the three steps share one match
// without hidden state.
//
// Release-group detection and tail compression are ordered rule tables: the
// first matching rule wins, and adding a group means appending rows.
package naming
