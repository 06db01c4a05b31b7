package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Well-known filenames inside a city's video directory. Anything matching
// these is a pipeline artifact, never an input clip.
const (
	scratchDirName = "scratch"
	manifestName   = "concat_list.txt"
	mergedName     = "merged.mp4"
	runLogName     = "concat.log"
	artifactMarker = "concat"
	// partMarker tags in-progress engine outputs (see ffmpeg.Runner); a
	// crashed run can leave them in the video directory.
	partMarker = ".part."
)

// videoExtensions is the input whitelist. The kiosks accept any container
// ffmpeg can read; normalization re-encodes everything to one profile anyway.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".m4v":  true,
	".webm": true,
}

// enumerateClips lists eligible source clips in deterministic lexicographic
// order. The returned order defines final playback order and is preserved
// unchanged through normalization and manifest construction.
func enumerateClips(videoDir string) ([]string, error) {
	entries, err := os.ReadDir(videoDir)
	if err != nil {
		return nil, fmt.Errorf("list source directory: %w", err)
	}

	var clips []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if name == mergedName || strings.Contains(name, artifactMarker) ||
			strings.Contains(name, partMarker) {
			continue
		}
		if !videoExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		clips = append(clips, name)
	}

	sort.Strings(clips)
	return clips, nil
}
