package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Side es el resultado binario de una vela: "V" (verde, sube) o "R" (roja, baja).
type Side string

const (
	SideWin  Side = "V" // lado ganador del glosario: vela verde
	SideLoss Side = "R" // lado perdedor del glosario: vela roja
)

// ErrInvalidSide se devuelve cuando un valor no es "V" ni "R".
var ErrInvalidSide = errors.New("side must be V or R")

// Valid devuelve true si el lado es uno de los dos valores permitidos.
func (s Side) Valid() bool {
	return s == SideWin || s == SideLoss
}

// Opposite devuelve el otro lado.
func (s Side) Opposite() Side {
	if s == SideWin {
		return SideLoss
	}
	return SideWin
}

func (s Side) String() string { return string(s) }

// ParseSide valida un lado recibido desde fuera (HTTP, CLI, API de Gamma).
// Acepta minúsculas y espacios alrededor.
func ParseSide(raw string) (Side, error) {
	s := Side(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: got %q", ErrInvalidSide, raw)
	}
	return s, nil
}

// ParseSides valida una secuencia completa. El error indica la posición del primer valor inválido.
func ParseSides(raw []string) ([]Side, error) {
	out := make([]Side, len(raw))
	for i, r := range raw {
		s, err := ParseSide(r)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// ParseSideString interpreta una cadena compacta como "VVRVR".
func ParseSideString(raw string) ([]Side, error) {
	raw = strings.TrimSpace(raw)
	parts := make([]string, 0, len(raw))
	for _, r := range raw {
		if r == ',' || r == ' ' {
			continue
		}
		parts = append(parts, string(r))
	}
	return ParseSides(parts)
}

// OptionalSide convierte un lado opcional (cadena vacía = sin dirección).
func OptionalSide(raw string) (*Side, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	s, err := ParseSide(raw)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
