package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBORSerializer encodes deterministically so that equal values always
// produce equal bytes in redis.
type CBORSerializer struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

func NewDeterministicEncOpts() cbor.EncOptions {
	return cbor.EncOptions{
		Sort:        cbor.SortCoreDeterministic,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}
}

// NewDecOpts rejects duplicate map keys and streaming, and decodes maps
// without a target type as map[string]any so that values fetched into an
// interface can be re-encoded as JSON or YAML.
func NewDecOpts() cbor.DecOptions {
	return cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		IndefLength:     cbor.IndefLengthForbidden,
		IntDec:          cbor.IntDecConvertSigned,
		DefaultMapType:  reflectMapStringAny,
		MaxNestedLevels: 64,
		TagsMd:          cbor.TagsForbidden,
	}
}

func NewCBORSerializer() (*CBORSerializer, error) {
	return NewCBORSerializerWithOptions(NewDeterministicEncOpts(), NewDecOpts())
}

func NewCBORSerializerWithOptions(encOpts cbor.EncOptions, decOpts cbor.DecOptions) (*CBORSerializer, error) {
	var err error
	s := &CBORSerializer{}
	if s.encMode, err = encOpts.EncMode(); err != nil {
		return nil, err
	}
	if s.decMode, err = decOpts.DecMode(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CBORSerializer) Name() string {
	return CBORName
}

func (s *CBORSerializer) Marshal(value any) ([]byte, error) {
	return s.encMode.Marshal(value)
}

func (s *CBORSerializer) Unmarshal(data []byte, value any) error {
	return s.decMode.Unmarshal(data, value)
}
