// Package annotate maps a rendered markdown document onto stable block
// indices and turns pointer gestures over those blocks into line-anchored
// comment selections.
//
// Everything here is driven from a single event loop. None of the types
// are safe for concurrent use; callers serialise access the way a UI
// update loop does.
package annotate
