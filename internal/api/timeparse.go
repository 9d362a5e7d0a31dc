package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
)

// apiTime es un instante en un body JSON. Acepta los mismos formatos que domain.ParseTime.
type apiTime struct {
	time.Time
}

func (t *apiTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidTime, string(b))
	}
	parsed, err := domain.ParseTime(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
