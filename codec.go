package seaport

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// DecodeOrder parses a signed order. Payloads that carry a counter are order
// components and are rejected.
func DecodeOrder(data []byte) (*Order, error) {
	if !gjson.ValidBytes(data) {
		return nil, &InvalidParamError{Message: "order payload is not valid JSON"}
	}
	if gjson.GetBytes(data, "counter").Exists() || gjson.GetBytes(data, "parameters.counter").Exists() {
		return nil, fmt.Errorf("%w: expected order, got order components", ErrPayloadKindMismatch)
	}
	if !gjson.GetBytes(data, "parameters").IsObject() {
		return nil, &InvalidParamError{Message: "order payload has no parameters object"}
	}

	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, &InvalidParamError{Message: "decode order", Err: err}
	}
	return &order, nil
}

// DecodeOrderComponents parses order components. Payloads without a counter
// or wrapped in parameters are orders and are rejected.
func DecodeOrderComponents(data []byte) (*OrderComponents, error) {
	if !gjson.ValidBytes(data) {
		return nil, &InvalidParamError{Message: "order components payload is not valid JSON"}
	}
	if gjson.GetBytes(data, "parameters").Exists() || !gjson.GetBytes(data, "counter").Exists() {
		return nil, fmt.Errorf("%w: expected order components, got order", ErrPayloadKindMismatch)
	}

	var components OrderComponents
	if err := json.Unmarshal(data, &components); err != nil {
		return nil, &InvalidParamError{Message: "decode order components", Err: err}
	}
	return &components, nil
}
