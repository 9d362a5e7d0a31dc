package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTime se devuelve para fechas que no se pueden interpretar.
var ErrInvalidTime = errors.New("invalid datetime")

// Sin zona horaria se asume UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime acepta RFC3339 o fechas sin zona, y devuelve siempre UTC.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
}
