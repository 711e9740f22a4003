package adapter

import (
	"encoding/json"
)

// JSON is the wire codec seam. Attestation events cross the JetStream
// boundary twice (publisher encode, bridge decode); keeping the codec
// behind an interface lets tests swap in a failing one.
//
//go:generate mockgen -source=json.go -destination=../mocks/json.go -package=mocks -mock_names=JSON=MockJSON
type JSON interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type jsonCodec struct{}

// NewJSON returns the encoding/json backed codec
func NewJSON() JSON {
	return jsonCodec{}
}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
