// Package form owns the per-mount form state and the mode-switching container
// that drives it.
//
// A State is an explicit object passed to every binding; there is no ambient
// lookup. A Container wraps one State with the Closed/Open/Submitting
// lifecycle and is rendered through one of two shells (DialogShell or
// PageShell) chosen once when the container is built.
package form
