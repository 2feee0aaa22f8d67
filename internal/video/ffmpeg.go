package video

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Encoder settings for exported clips. The hosted generation model wants
// plain H.264 in a faststart MP4.
const (
	ffmpegCommand  = "ffmpeg"
	ffprobeCommand = "ffprobe"

	videoCodec  = "libx264"
	videoPreset = "medium"
	videoCRF    = "23"
	pixelFormat = "yuv420p"
	movFlags    = "+faststart"
)

// FFmpeg invokes the ffmpeg/ffprobe binaries. The zero value is not
// usable; construct with New.
type FFmpeg struct {
	ffmpegCmd  string
	ffprobeCmd string
}

// New returns an FFmpeg that resolves the standard binary names from PATH
// at call time.
func New() FFmpeg {
	return FFmpeg{
		ffmpegCmd:  ffmpegCommand,
		ffprobeCmd: ffprobeCommand,
	}
}

// EncodeFrames writes the encoded frames as an MP4 at the given frame
// rate. Frames are piped to ffmpeg's stdin; mixing JPEG and PNG within
// one clip is fine, image2pipe detects the codec per frame.
func (ff FFmpeg) EncodeFrames(ctx context.Context, frames [][]byte, outPath string, fps int) error {
	if len(frames) == 0 {
		return fmt.Errorf("video: no frames to encode")
	}
	if fps <= 0 {
		return fmt.Errorf("video: fps must be positive, got %d", fps)
	}

	cmdPath, err := exec.LookPath(ff.ffmpegCmd)
	if err != nil {
		return fmt.Errorf("video: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("video: create output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, cmdPath, encodeArgs(outPath, fps)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("video: stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("video: start ffmpeg: %w", err)
	}

	var writeErr error
	for _, frame := range frames {
		if _, err := stdin.Write(frame); err != nil {
			writeErr = err
			break
		}
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("video: ffmpeg: %w: %s", err, stderr.String())
	}
	if writeErr != nil {
		os.Remove(outPath)
		return fmt.Errorf("video: pipe frames: %w", writeErr)
	}

	return nil
}

// encodeArgs builds the ffmpeg argument list for an image2pipe encode.
func encodeArgs(outPath string, fps int) []string {
	rate := strconv.Itoa(fps)
	return []string{
		"-v", "error",
		"-f", "image2pipe",
		"-framerate", rate,
		"-i", "-",
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-crf", videoCRF,
		"-pix_fmt", pixelFormat,
		"-movflags", movFlags,
		"-r", rate,
		"-y",
		outPath,
	}
}
