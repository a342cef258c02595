package kafka

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode unmarshals a message value. Tombstones and empty values are errors.
func Decode(m kafka.Message, out any) error {
	if len(m.Value) == 0 {
		return errors.New("empty message value")
	}
	if err := json.Unmarshal(m.Value, out); err != nil {
		return fmt.Errorf("decode %s message: %w", m.Topic, err)
	}
	return nil
}

// HeaderValue returns the first header named key, or "".
func HeaderValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
