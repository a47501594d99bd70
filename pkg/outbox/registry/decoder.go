package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// ErrNoDecoder is returned for an event type and version nobody registered.
var ErrNoDecoder = errors.New("no decoder registered")

type decodeFunc func(data json.RawMessage) (any, error)

type binding struct {
	eventType enums.OutboxEventType
	version   int
}

// Decoders turns versioned envelope data back into typed task payloads.
type Decoders struct {
	mu    sync.RWMutex
	funcs map[binding]decodeFunc
}

func NewDecoders() *Decoders {
	return &Decoders{funcs: map[binding]decodeFunc{}}
}

// Bind registers T as the payload of eventType at version. Binding the same
// pair twice is a programming error and panics.
func Bind[T any](d *Decoders, eventType enums.OutboxEventType, version int) {
	key := binding{eventType: eventType, version: version}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.funcs[key]; dup {
		panic(fmt.Sprintf("decoder for %s@v%d already bound", eventType, version))
	}
	d.funcs[key] = func(data json.RawMessage) (any, error) {
		var out T
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Decode returns the typed payload for data. Empty or null data is rejected
// before the decoder runs.
func (d *Decoders) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	d.mu.RLock()
	fn, ok := d.funcs[binding{eventType: eventType, version: version}]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for %s@v%d", ErrNoDecoder, eventType, version)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%s@v%d: empty payload", eventType, version)
	}
	return fn(trimmed)
}
