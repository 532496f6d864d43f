package sensor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"example.com/greenhouse/services/gateway/internal/models"
)

// The ESP32 firmware reports telemetry as four fixed lines:
//
//	Temp: 23.5C
//	Humidity: 60%
//	Soil: 400
//	Water: 80%
//
// Order is fixed; labels are informational and not validated. Values carry
// an optional unit suffix that is stripped before parsing.
const expectedLines = 4

// Parse decodes a telemetry payload into a typed reading. It is
// all-or-nothing: any missing line, missing colon, or non-numeric value
// returns a nil reading with a diagnostic error. Callers treat that as
// informational since the raw text has already been stored.
func Parse(body string, observedAt time.Time) (*models.SensorReading, error) {
	lines := splitLines(body)
	if len(lines) != expectedLines {
		return nil, fmt.Errorf("expected %d telemetry lines, got %d", expectedLines, len(lines))
	}

	temp, err := parseFloat(lines[0], "C")
	if err != nil {
		return nil, fmt.Errorf("temperature: %w", err)
	}

	hum, err := parseFloat(lines[1], "%")
	if err != nil {
		return nil, fmt.Errorf("humidity: %w", err)
	}

	soil, err := parseInt(lines[2])
	if err != nil {
		return nil, fmt.Errorf("soil moisture: %w", err)
	}

	water, err := parseFloat(lines[3], "%")
	if err != nil {
		return nil, fmt.Errorf("water level: %w", err)
	}

	return &models.SensorReading{
		Temperature:  temp,
		Humidity:     hum,
		SoilMoisture: soil,
		WaterLevel:   water,
		ObservedAt:   observedAt,
	}, nil
}

// splitLines trims the payload and drops blank lines so a trailing newline
// from the firmware does not count as a fifth line
func splitLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// value extracts the text after the first colon on a line
func value(line string) (string, error) {
	_, rest, found := strings.Cut(line, ":")
	if !found {
		return "", fmt.Errorf("missing colon in line %q", line)
	}
	return strings.TrimSpace(rest), nil
}

func parseFloat(line, unitSuffix string) (float64, error) {
	raw, err := value(line)
	if err != nil {
		return 0, err
	}
	raw = strings.TrimSpace(strings.TrimSuffix(raw, unitSuffix))

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric value %q", raw)
	}
	return f, nil
}

func parseInt(line string) (int, error) {
	raw, err := value(line)
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("non-numeric value %q", raw)
	}
	return n, nil
}
