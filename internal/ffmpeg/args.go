package ffmpeg

import (
	"path/filepath"
	"strconv"
)

// Canonical encoding parameters shared by every stage. Kiosks run a single
// fixed-resolution player, so all clips are normalized to one profile before
// concatenation.
const (
	videoCodec  = "libx264"
	audioCodec  = "aac"
	preset      = "medium"
	crf         = "23"
	audioRate   = "128k"
	sampleRate  = "44100"
	frameRate   = "30"
	letterboxVF = "scale=1920:1080:force_original_aspect_ratio=decrease:flags=lanczos," +
		"pad=1920:1080:(ow-iw)/2:(oh-ih)/2:black"
)

// PlaylistName is the published HLS playlist filename.
const PlaylistName = "stream.m3u8"

// SegmentPattern is the published HLS segment filename pattern.
const SegmentPattern = "stream%03d.ts"

func normalizeArgs(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-c:v", videoCodec,
		"-preset", preset,
		"-crf", crf,
		"-vf", letterboxVF,
		"-r", frameRate,
		"-aspect", "16:9",
		"-c:a", audioCodec,
		"-b:a", audioRate,
		"-ar", sampleRate,
		"-f", "mp4",
		outputPath,
	}
}

func concatArgs(manifestPath, outputPath string, reencode bool) []string {
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
	}
	if reencode {
		args = append(args,
			"-c:v", videoCodec,
			"-preset", preset,
			"-crf", crf,
			"-c:a", audioCodec,
			"-b:a", audioRate,
		)
	} else {
		args = append(args, "-c", "copy")
	}
	return append(args, "-f", "mp4", outputPath)
}

func segmentArgs(inputPath, outputDir string, segmentSeconds int) []string {
	return []string{
		"-i", inputPath,
		"-c:v", videoCodec,
		"-preset", preset,
		"-crf", crf,
		"-profile:v", "high",
		"-level", "4.0",
		"-pix_fmt", "yuv420p",
		"-c:a", audioCodec,
		"-b:a", audioRate,
		"-ac", "2",
		"-hls_time", strconv.Itoa(segmentSeconds),
		"-hls_list_size", "0",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(outputDir, SegmentPattern),
		filepath.Join(outputDir, PlaylistName),
	}
}
