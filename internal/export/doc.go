// Package export renders downloaded episode shards as MP4 clips. Each
// episode carries its camera streams as per-step encoded images under
// observation keys; export picks one key per dataset and feeds the frames
// to an encoder.
package export
