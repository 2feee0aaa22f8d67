// Package storage opens and reads the object-storage dataset mirror.
//
// Mirrors are addressed by gocloud.dev bucket URLs. gs:// URLs are opened
// with an anonymous client since the public OXE mirror needs no
// credentials; other schemes (s3://, file://, mem://) go through the
// gocloud URL muxer, so alternate mirrors and test buckets work without
// code changes.
package storage
