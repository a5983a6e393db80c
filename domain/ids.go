package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// IDSource hands out order identifiers.
type IDSource interface {
	NewID() (string, error)
}

const (
	UUIDv1 = "v1"
	UUIDv4 = "v4"
)

// UUIDSource generates RFC 4122 identifiers of a fixed version.
type UUIDSource struct {
	version string
}

// NewUUIDSource returns a source for the given version ("v1" or "v4").
func NewUUIDSource(version string) (*UUIDSource, error) {
	switch version {
	case UUIDv1, UUIDv4:
		return &UUIDSource{version: version}, nil
	default:
		return nil, fmt.Errorf("unsupported uuid version %q", version)
	}
}

func (s *UUIDSource) NewID() (string, error) {
	if s.version == UUIDv4 {
		return uuid.NewString(), nil
	}
	id, err := uuid.NewUUID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
