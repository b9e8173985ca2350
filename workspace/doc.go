// Package workspace provisions isolated git checkouts for tasks.
//
// Each task gets its own clone on its own branch. On resume, the
// recorded checkout is reused only when its validity token verifies
// and the tree is still intact; path existence alone is never trusted.
package workspace
