package stage

import (
	"encoding/json"

	"subforge/internal/segment"
	"subforge/internal/services"
)

// ParseSegments decodes the segment payload a queue job carries between
// stages. On failure it returns a services.ErrValidation suitable for stage
// Execute methods.
func ParseSegments(raw string) ([]segment.Segment, error) {
	if raw == "" {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "parse segments",
			"Job carries no segment payload; rerun ingestion", nil)
	}
	var segments []segment.Segment
	if err := json.Unmarshal([]byte(raw), &segments); err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "parse segments",
			"Segment payload corrupt; rerun ingestion", err)
	}
	return segments, nil
}

// EncodeSegments serializes segments for queue storage.
func EncodeSegments(segments []segment.Segment) (string, error) {
	data, err := json.Marshal(segments)
	if err != nil {
		return "", services.Wrap(
			services.ErrValidation, "stage", "encode segments",
			"Segment payload could not be serialized", err)
	}
	return string(data), nil
}
