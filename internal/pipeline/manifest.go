package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/renameio/v2"
)

// buildManifest renders the concat demuxer manifest: one `file '...'` line
// per normalized clip, in discovery order. Single quotes are escaped for the
// demuxer's quoting convention.
func buildManifest(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(p, "'", `'\''`))
	}
	return b.String()
}

// writeManifest atomically writes the manifest file so the concat stage can
// never observe a half-written list.
func writeManifest(path string, clipPaths []string) error {
	if err := renameio.WriteFile(path, []byte(buildManifest(clipPaths)), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}
