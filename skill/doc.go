// Package skill defines the closed set of skills the cycle controller
// dispatches, their artifact contracts, and the executors that run
// them in isolation.
//
// A skill is a black box: it receives a manifest view and a workspace,
// and communicates back exclusively through named artifacts written to
// its output directory. Executors (container or claude CLI) own the
// process lifecycle; Invoke wraps them with the standard retry policy
// for transient process failures.
package skill
