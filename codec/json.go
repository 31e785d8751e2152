package codec

import (
	"encoding/json"
	"reflect"
)

var reflectMapStringAny = reflect.TypeOf(map[string]any(nil))

// JSONSerializer keeps redis contents human readable.
type JSONSerializer struct{}

func (JSONSerializer) Name() string {
	return JSONName
}

func (JSONSerializer) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONSerializer) Unmarshal(data []byte, value any) error {
	return json.Unmarshal(data, value)
}
