// Package viz renders a running simulation in the terminal.
//
// [Model] is a Bubble Tea program that advances the body state one iteration
// per tick and draws it on a braille [Canvas] through a rotating [Camera],
// beside a panel of per-iteration timings, throughput and diagnostics.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to the initial bodies
//	X/Y/Z - Rotate the view (shift reverses)
//	+/-   - Zoom
//	?     - Show help overlay
//	Q     - Quit
package viz
