// Package loop runs the fixed-rate control loop.
//
// A Driver reads the latest feedback snapshot each tick, advances the arrival
// machine, computes stick offsets through a composite controller and hands
// integer stick values to a CommandSink. Targets come from a Sequencer and
// the advance to the next target can be held by a Gate.
//
// Feedback is written asynchronously into a Latest cell; the loop never
// blocks on it. A tick without the feedback the controller needs makes no
// controller call and sends nothing.
package loop
