package ffmpeg

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeArgs(t *testing.T) {
	args := normalizeArgs("/videos/clip.mp4", "/scratch/normalized_001.mp4")
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-i /videos/clip.mp4")
	assert.Contains(t, joined, "-c:v libx264")
	assert.Contains(t, joined, "-c:a aac")
	assert.Contains(t, joined, "-ar 44100")
	assert.Contains(t, joined, "-r 30")
	assert.Contains(t, joined, "scale=1920:1080")
	assert.Contains(t, joined, "pad=1920:1080")
	assert.Equal(t, "/scratch/normalized_001.mp4", args[len(args)-1])
}

func TestConcatArgs(t *testing.T) {
	fast := strings.Join(concatArgs("/videos/list.txt", "/videos/merged.mp4", false), " ")
	assert.Contains(t, fast, "-f concat -safe 0 -i /videos/list.txt")
	assert.Contains(t, fast, "-c copy")
	assert.NotContains(t, fast, "libx264")

	slow := strings.Join(concatArgs("/videos/list.txt", "/videos/merged.mp4", true), " ")
	assert.Contains(t, slow, "-c:v libx264")
	assert.Contains(t, slow, "-c:a aac")
	assert.NotContains(t, slow, "-c copy")
}

func TestSegmentArgs(t *testing.T) {
	args := segmentArgs("/html/merged.mp4", "/html", 5)
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-hls_time 5")
	assert.Contains(t, joined, "-hls_list_size 0")
	assert.Contains(t, joined, "-hls_playlist_type vod")
	assert.Contains(t, joined, filepath.Join("/html", SegmentPattern))
	assert.Equal(t, filepath.Join("/html", PlaylistName), args[len(args)-1])
}

func TestLineRing(t *testing.T) {
	ring := NewLineRing(3)
	_, _ = ring.Write([]byte("one\ntwo\n"))
	_, _ = ring.Write([]byte("three\nfour\n"))

	assert.Equal(t, []string{"two", "three", "four"}, ring.LastN(10))
	assert.Equal(t, []string{"four"}, ring.LastN(1))
}
