package storage

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSaveCameraStillDefaultSuffix(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	receivedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0}

	path, err := store.SaveCameraStill(data, "", receivedAt)
	require.NoError(t, err)
	require.Equal(t, "CAM_20260314_092653.jpg", filepath.Base(path))

	got, err := store.Read(filepath.Base(path))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

// Multipart uploads keep the suffix declared in their filename
func TestSaveCameraStillDeclaredSuffix(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.SaveCameraStill([]byte("png-bytes"), ".png", time.Now())
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, ".png"))
}

func TestSaveSensorText(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	receivedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	body := "Temp: 23.5C\nHumidity: 60%\nSoil: 400\nWater: 80%\n"

	path, err := store.SaveSensorText(body, receivedAt)
	require.NoError(t, err)
	require.Equal(t, "ESP32_20260314_092653_sensor.txt", filepath.Base(path))

	got, err := store.Read(filepath.Base(path))
	require.NoError(t, err)
	require.Equal(t, body, string(got))
}

// Two uploads within the same second must not overwrite each other
func TestSameSecondCollision(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	receivedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	first, err := store.SaveCameraStill([]byte("first"), "", receivedAt)
	require.NoError(t, err)

	second, err := store.SaveCameraStill([]byte("second"), "", receivedAt)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, strings.HasSuffix(second, ".jpg"))

	got, err := store.Read(filepath.Base(first))
	require.NoError(t, err)
	require.Equal(t, "first", string(got))

	got, err = store.Read(filepath.Base(second))
	require.NoError(t, err)
	require.Equal(t, "second", string(got))
}

// Read must not follow path components outside the upload directory
func TestReadStripsPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	path, err := store.SaveCameraStill([]byte("still"), "", time.Now())
	require.NoError(t, err)

	got, err := store.Read("../../" + filepath.Base(path))
	require.NoError(t, err)
	require.Equal(t, "still", string(got))
}
