package handlers

import (
	"encoding/json"
)

// JSONCodec lets connect carry the plain structs of this package. It takes
// the place of the protojson codec registered under the same name.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
