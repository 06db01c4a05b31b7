package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRegistry = `
cities:
  moscow:
    video_dir: /srv/kiosk/moscow/videos
    publish_dir: /srv/kiosk/moscow/html
  kazan:
    video_dir: /srv/kiosk/kazan/videos
    publish_dir: /srv/kiosk/kazan/html
`

func TestParseRegistry(t *testing.T) {
	reg, err := ParseRegistry([]byte(sampleRegistry))
	require.NoError(t, err)

	city, err := reg.Lookup("moscow")
	require.NoError(t, err)
	assert.Equal(t, "/srv/kiosk/moscow/videos", city.VideoDir)
	assert.Equal(t, "/srv/kiosk/moscow/html", city.PublishDir)

	assert.Equal(t, []string{"kazan", "moscow"}, reg.IDs())
}

func TestLookupUnknownCity(t *testing.T) {
	reg, err := ParseRegistry([]byte(sampleRegistry))
	require.NoError(t, err)

	_, err = reg.Lookup("atlantis")
	require.ErrorIs(t, err, ErrUnknownCity)
}

func TestParseRegistryInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", `cities: {}`},
		{"missing dirs", "cities:\n  x:\n    video_dir: /a"},
		{"relative dir", "cities:\n  x:\n    video_dir: rel/videos\n    publish_dir: /srv/html"},
		{"same dirs", "cities:\n  x:\n    video_dir: /srv/a\n    publish_dir: /srv/a"},
		{"garbage", `{{nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadRegistryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRegistry), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, reg.IDs(), 2)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSettingsValidate(t *testing.T) {
	s := FromEnv()
	require.NoError(t, s.Validate())

	s.SegmentSeconds = 0
	assert.Error(t, s.Validate())

	s = FromEnv()
	s.FFmpegBin = ""
	assert.Error(t, s.Validate())
}
