// Package viz is the terminal live view of a running simulation.
//
// A [Runner] advances the simulator on its own goroutine and hands each
// finished frame to a Bubble Tea [Model] as a [FrameMsg]. The model draws
// particles and the level-set contour on a braille [Canvas] and shows the
// frame statistics beside it.
//
// # Key Bindings
//
//	Space/P - Pause/Resume simulation
//	T       - Cycle color themes
//	?       - Toggle full help
//	Q       - Quit
package viz
