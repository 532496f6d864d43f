package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Camera stills default to the ESP32-CAM's native JPEG suffix; the firmware
// is known to mislabel its content type, so the suffix never comes from the
// declared encoding.
const (
	CameraSuffix     = ".jpg"
	timestampLayout  = "20060102_150405"
	cameraFilePrefix = "CAM_"
	sensorFilePrefix = "ESP32_"
)

// FileStore persists device payloads under a single upload directory and
// serves them back byte-for-byte. Filenames carry a second-resolution
// timestamp; the expected traffic rate is at most one upload per device per
// second, and a short random suffix disambiguates the rare collision.
type FileStore struct {
	dir string
}

// NewFileStore creates the upload directory if needed and returns a store
// rooted at it
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the upload directory path
func (s *FileStore) Dir() string {
	return s.dir
}

// SaveCameraStill persists a camera payload as CAM_<timestamp><ext> and
// returns the stored path. An empty ext falls back to the native suffix.
func (s *FileStore) SaveCameraStill(data []byte, ext string, receivedAt time.Time) (string, error) {
	if ext == "" {
		ext = CameraSuffix
	}
	name := cameraFilePrefix + receivedAt.Format(timestampLayout) + ext
	return s.write(name, data)
}

// SaveSensorText persists a telemetry payload as ESP32_<timestamp>_sensor.txt
// for audit and returns the stored path
func (s *FileStore) SaveSensorText(body string, receivedAt time.Time) (string, error) {
	name := sensorFilePrefix + receivedAt.Format(timestampLayout) + "_sensor.txt"
	return s.write(name, []byte(body))
}

// Read returns the byte content of a previously stored file
func (s *FileStore) Read(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
}

// write persists data under name, appending a short random suffix when the
// timestamped name is already taken
func (s *FileStore) write(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err == nil {
		ext := filepath.Ext(name)
		base := name[:len(name)-len(ext)]
		path = filepath.Join(s.dir, base+"_"+uuid.New().String()[:8]+ext)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
