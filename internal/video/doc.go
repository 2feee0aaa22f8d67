// Package video wraps the ffmpeg and ffprobe binaries. Encoding pipes
// already-encoded frames (JPEG or PNG, as stored in the dataset) through
// image2pipe into an H.264 MP4; probing reads stream metadata as JSON.
// Neither codec is reimplemented here.
package video
