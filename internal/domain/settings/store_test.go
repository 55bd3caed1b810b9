package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
)

func TestOpenDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "settings.json"), "/home/u/Downloads/Bonchon-Apps")
	require.NoError(t, err)

	got := s.Get()
	assert.Equal(t, "/home/u/Downloads/Bonchon-Apps", got.DownloadPath)
	assert.True(t, got.MinimizeToTray)
	assert.False(t, got.AutoStart)
	assert.Equal(t, DefaultTheme, got.Theme)
}

func TestOpenFillsMissingKeys(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want types.Settings
	}{
		{
			name: "minimize absent defaults to true",
			doc:  `{"downloadPath":"/data/apps","autoStart":true,"theme":"light"}`,
			want: types.Settings{DownloadPath: "/data/apps", AutoStart: true, MinimizeToTray: true, Theme: "light"},
		},
		{
			name: "explicit false kept",
			doc:  `{"minimizeToTray":false}`,
			want: types.Settings{DownloadPath: "/default", MinimizeToTray: false, Theme: DefaultTheme},
		},
		{
			name: "empty strings use defaults",
			doc:  `{"downloadPath":"","theme":""}`,
			want: types.Settings{DownloadPath: "/default", MinimizeToTray: true, Theme: DefaultTheme},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0644))

			s, err := Open(path, "/default")
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Get())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	s, err := Open(path, "/default")
	require.NoError(t, err)

	want := types.Settings{DownloadPath: "/games/", AutoStart: true, MinimizeToTray: false, Theme: "light"}
	saved, err := s.Save(want)
	require.NoError(t, err)
	assert.Equal(t, "/games", saved.DownloadPath)
	assert.Equal(t, "/games", s.DownloadRoot())

	reopened, err := Open(path, "/default")
	require.NoError(t, err)
	assert.Equal(t, saved, reopened.Get())
}

func TestSaveRejectsRelativePath(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "settings.json"), "/default")
	require.NoError(t, err)

	_, err = s.Save(types.Settings{DownloadPath: "relative/apps"})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.Equal(t, "/default", s.Get().DownloadPath)
}

func TestOpenCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("[1,2"), 0644))

	_, err := Open(path, "/default")
	assert.Error(t, err)
}
