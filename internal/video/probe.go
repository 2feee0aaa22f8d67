package video

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Probe describes the first video stream of a file.
type Probe struct {
	Width        int
	Height       int
	AvgFrameRate Rational
	Duration     float64 // seconds
}

// Probe runs ffprobe against path and parses the result.
func (ff FFmpeg) Probe(ctx context.Context, path string) (*Probe, error) {
	cmdPath, err := exec.LookPath(ff.ffprobeCmd)
	if err != nil {
		return nil, fmt.Errorf("video: %w", err)
	}

	cmd := exec.CommandContext(ctx, cmdPath, probeArgs(path)...)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("video: ffprobe: %w: %s", err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("video: ffprobe: %w", err)
	}

	return parseProbeOutput(output)
}

// probeArgs builds the ffprobe argument list: first video stream
// dimensions and frame rate, container duration, JSON output.
func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate,width,height",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}
}

// parseProbeOutput decodes ffprobe's JSON document.
func parseProbeOutput(data []byte) (*Probe, error) {
	var doc struct {
		Streams []struct {
			Width        int    `json:"width"`
			Height       int    `json:"height"`
			AvgFrameRate string `json:"avg_frame_rate"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("video: parse ffprobe output: %w", err)
	}
	if len(doc.Streams) == 0 {
		return nil, fmt.Errorf("video: no video stream found")
	}

	stream := doc.Streams[0]
	rate, err := ParseRational(stream.AvgFrameRate)
	if err != nil {
		return nil, err
	}

	probe := &Probe{
		Width:        stream.Width,
		Height:       stream.Height,
		AvgFrameRate: rate,
	}

	if doc.Format.Duration == "" {
		return nil, fmt.Errorf("video: no duration in ffprobe output")
	}
	probe.Duration, err = strconv.ParseFloat(doc.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("video: parse duration %q: %w", doc.Format.Duration, err)
	}

	return probe, nil
}

// Rational is a frame rate as reported by ffprobe, e.g. 24/1 or
// 24000/1001.
type Rational struct {
	Num int
	Den int
}

// ParseRational parses ffprobe's "num/den" frame-rate notation and
// reduces the fraction.
func ParseRational(s string) (Rational, error) {
	numStr, denStr, ok := strings.Cut(s, "/")
	if !ok {
		return Rational{}, fmt.Errorf("video: unexpected frame rate format: %q", s)
	}
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return Rational{}, fmt.Errorf("video: unexpected frame rate format: %q", s)
	}
	den, err := strconv.Atoi(denStr)
	if err != nil || den == 0 {
		return Rational{}, fmt.Errorf("video: unexpected frame rate format: %q", s)
	}

	g := gcd(num, den)
	return Rational{Num: num / g, Den: den / g}, nil
}

// IsExactly reports whether the rational reduces to fps/1.
func (r Rational) IsExactly(fps int) bool {
	return r.Num == fps && r.Den == 1
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}
