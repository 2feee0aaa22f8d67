// Package generate forwards an exported clip and a text prompt to a
// hosted video-generation model and stores the returned video next to its
// source. The model only accepts short 24fps clips in a handful of aspect
// ratios, so the input is probed and validated before anything leaves the
// machine.
package generate
