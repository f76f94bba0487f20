package store

import (
	"fmt"

	"github.com/roach88/formsignal/internal/ir"
)

// marshalReading converts a reading to canonical JSON TEXT for storage.
func marshalReading(v ir.Value) (string, error) {
	if v == nil {
		v = ir.Null{}
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal reading: %w", err)
	}
	return string(data), nil
}

// unmarshalReading parses canonical JSON TEXT back into a Value.
// Integers are decoded via json.Number, so values beyond 2^53 survive.
func unmarshalReading(data string) (ir.Value, error) {
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal reading: %w", err)
	}
	return v, nil
}
