package frame

import (
	"encoding/json"
	"sort"

	"reelrun/internal/rerrors"
)

// frameWire mirrors Frame's wire shape for (de)serialization.
type frameWire struct {
	Protocol Protocol        `json:"protocol"`
	Cut      *InstructionSet `json:"cut,omitempty"`
	Request  Request         `json:"request"`
	Response Response        `json:"response"`
}

// MarshalJSON serializes the frame, omitting an empty cut instruction set.
func (f Frame) MarshalJSON() ([]byte, error) {
	wire := frameWire{Protocol: f.Protocol, Request: f.Request, Response: f.Response}
	if !f.Cut.IsEmpty() {
		wire.Cut = &f.Cut
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes a frame document.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var wire frameWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return rerrors.Wrap(rerrors.FrameParse, "invalid frame document", string(data), err)
	}
	f.Protocol = wire.Protocol
	if wire.Cut != nil {
		f.Cut = *wire.Cut
	} else {
		f.Cut = NewInstructionSet()
	}
	f.Request = wire.Request
	f.Response = wire.Response
	return nil
}

// requestKnownFields names the Request keys hydration treats specially;
// everything else flattens into Etc.
var requestKnownFields = map[string]struct{}{
	"body": {}, "header": {}, "entrypoint": {}, "uri": {},
}

// MarshalJSON serializes the request, flattening Etc's keys alongside the
// known fields the way serde(flatten) does for the Rust struct.
func (r Request) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	etc, err := etcMap(r.Etc)
	if err != nil {
		return nil, err
	}
	for k, v := range etc {
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = encoded
	}
	body := r.Body
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	out["body"] = body
	if len(r.Header) > 0 {
		out["header"] = r.Header
	}
	if len(r.Entrypoint) > 0 {
		out["entrypoint"] = r.Entrypoint
	}
	uri, err := json.Marshal(r.URI)
	if err != nil {
		return nil, err
	}
	out["uri"] = uri
	return marshalOrdered(out)
}

// UnmarshalJSON decodes the request, collecting any key besides
// body/header/entrypoint/uri into Etc.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return rerrors.Wrap(rerrors.FrameParse, "invalid request document", string(data), err)
	}

	if body, ok := raw["body"]; ok {
		r.Body = body
	} else {
		r.Body = json.RawMessage("{}")
	}
	r.Header = raw["header"]
	r.Entrypoint = raw["entrypoint"]

	if uriRaw, ok := raw["uri"]; ok {
		var uri string
		if err := json.Unmarshal(uriRaw, &uri); err != nil {
			return rerrors.Wrap(rerrors.FrameParse, "request uri must be a string", string(uriRaw), err)
		}
		r.URI = uri
	}

	etc := map[string]any{}
	for k, v := range raw {
		if _, known := requestKnownFields[k]; known {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return rerrors.Wrap(rerrors.FrameParse, "invalid request field", k, err)
		}
		etc[k] = val
	}
	encoded, err := json.Marshal(etc)
	if err != nil {
		return err
	}
	r.Etc = encoded
	return nil
}

var responseKnownFields = map[string]struct{}{
	"status": {}, "body": {}, "validation": {},
}

// MarshalJSON serializes the response, flattening Etc's keys and emitting
// validation when it is non-empty. Nothing clears Validation; the take
// runner compares responses through ResponseRoot, which leaves validation
// out so the two sides compare by (status, body, etc) only.
func (r Response) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	etc, err := etcMap(r.Etc)
	if err != nil {
		return nil, err
	}
	for k, v := range etc {
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = encoded
	}
	if len(r.Body) > 0 {
		out["body"] = r.Body
	}
	if len(r.Validation) > 0 {
		encoded, err := json.Marshal(r.Validation)
		if err != nil {
			return nil, err
		}
		out["validation"] = encoded
	}
	status, err := json.Marshal(r.Status)
	if err != nil {
		return nil, err
	}
	out["status"] = status
	return marshalOrdered(out)
}

// UnmarshalJSON decodes the response, collecting any key besides
// status/body/validation into Etc.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return rerrors.Wrap(rerrors.FrameParse, "invalid response document", string(data), err)
	}

	if statusRaw, ok := raw["status"]; ok {
		var status uint32
		if err := json.Unmarshal(statusRaw, &status); err != nil {
			return rerrors.Wrap(rerrors.FrameParse, "response status must be a non-negative integer", string(statusRaw), err)
		}
		r.Status = status
	}
	r.Body = raw["body"]

	if validationRaw, ok := raw["validation"]; ok {
		var v map[string]ValidatorRule
		if err := json.Unmarshal(validationRaw, &v); err != nil {
			return rerrors.Wrap(rerrors.FrameParse, "invalid validation block", string(validationRaw), err)
		}
		r.Validation = v
	}

	etc := map[string]any{}
	for k, v := range raw {
		if _, known := responseKnownFields[k]; known {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return rerrors.Wrap(rerrors.FrameParse, "invalid response field", k, err)
		}
		etc[k] = val
	}
	encoded, err := json.Marshal(etc)
	if err != nil {
		return err
	}
	r.Etc = encoded
	return nil
}

// marshalOrdered renders a map[string]json.RawMessage with keys in
// lexicographic order, for deterministic frame/take-artifact output.
func marshalOrdered(m map[string]json.RawMessage) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		buf = append(buf, m[k]...)
	}
	buf = append(buf, '}')
	return buf, nil
}
