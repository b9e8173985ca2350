// Package prompt loads and renders the prompt templates used to drive
// skill sessions. Project-local prompt directories override the
// embedded defaults, so teams can tune skill behavior per repository.
package prompt
