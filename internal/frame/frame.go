// Package frame implements the frame document: its data model, the
// hydration pass that rewrites a frame's request/response using the cut
// register, and write extraction from a live response.
package frame

import (
	"encoding/json"
	"sort"

	"reelrun/internal/register"
	"reelrun/internal/rerrors"
	"reelrun/internal/selector"
)

// Protocol is the transport the frame's request travels over.
type Protocol string

const (
	HTTP Protocol = "HTTP"
	GRPC Protocol = "GRPC"
)

// MarshalJSON serializes GRPC as the literal "gRPC" the wire format uses.
func (p Protocol) MarshalJSON() ([]byte, error) {
	switch p {
	case GRPC:
		return json.Marshal("gRPC")
	case HTTP:
		return json.Marshal("HTTP")
	default:
		return nil, rerrors.New(rerrors.FrameParse, "unknown protocol", string(p))
	}
}

// UnmarshalJSON accepts "gRPC" or "HTTP".
func (p *Protocol) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return rerrors.Wrap(rerrors.FrameParse, "invalid protocol", string(data), err)
	}
	switch s {
	case "gRPC":
		*p = GRPC
	case "HTTP":
		*p = HTTP
	default:
		return rerrors.New(rerrors.FrameParse, "unknown protocol", s)
	}
	return nil
}

// InstructionSet holds the read ("from") and write ("to") permissions a
// frame's hydration and write-extraction passes operate under.
type InstructionSet struct {
	Reads         map[string]struct{} // from
	Writes        map[string]string   // to: variable name -> selector path
	HydrateWrites bool                // runtime-only; never serialized
}

// NewInstructionSet returns an empty, ready-to-use InstructionSet.
func NewInstructionSet() InstructionSet {
	return InstructionSet{Reads: map[string]struct{}{}, Writes: map[string]string{}}
}

// IsEmpty reports whether both from and to are empty.
func (s InstructionSet) IsEmpty() bool { return len(s.Reads) == 0 && len(s.Writes) == 0 }

// Contains reports whether var is named by either from or to.
func (s InstructionSet) Contains(name string) bool {
	if _, ok := s.Reads[name]; ok {
		return true
	}
	_, ok := s.Writes[name]
	return ok
}

// Validate enforces from ∩ keys(to) = ∅.
func (s InstructionSet) Validate() error {
	for name := range s.Reads {
		if _, ok := s.Writes[name]; ok {
			return rerrors.New(rerrors.DuplicateReference, "cut variable referenced by both from and to", name)
		}
	}
	return nil
}

type instructionSetWire struct {
	From []string          `json:"from,omitempty"`
	To   map[string]string `json:"to,omitempty"`
}

// MarshalJSON emits "from" as a lexicographically sorted list for
// deterministic output.
func (s InstructionSet) MarshalJSON() ([]byte, error) {
	if s.IsEmpty() {
		return []byte("{}"), nil
	}
	wire := instructionSetWire{To: s.Writes}
	for name := range s.Reads {
		wire.From = append(wire.From, name)
	}
	sort.Strings(wire.From)
	return json.Marshal(wire)
}

// UnmarshalJSON decodes {"from": [...], "to": {...}}.
func (s *InstructionSet) UnmarshalJSON(data []byte) error {
	var wire instructionSetWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return rerrors.Wrap(rerrors.FrameParse, "invalid cut instruction set", string(data), err)
	}
	s.Reads = make(map[string]struct{}, len(wire.From))
	for _, n := range wire.From {
		s.Reads[n] = struct{}{}
	}
	s.Writes = wire.To
	if s.Writes == nil {
		s.Writes = map[string]string{}
	}
	return nil
}

// ValidatorRule declares tolerance for one selector under a response body.
type ValidatorRule struct {
	Partial   bool `json:"partial,omitempty"`
	Unordered bool `json:"unordered,omitempty"`
}

// Request is the outbound side of a frame.
type Request struct {
	URI        string          `json:"-"`
	Body       json.RawMessage `json:"-"`
	Header     json.RawMessage `json:"-"`
	Entrypoint json.RawMessage `json:"-"`
	Etc        json.RawMessage `json:"-"`
}

// Response is the expected inbound side of a frame.
type Response struct {
	Status     uint32                   `json:"-"`
	Body       json.RawMessage          `json:"-"`
	Validation map[string]ValidatorRule `json:"-"`
	Etc        json.RawMessage          `json:"-"`
}

// Frame is one declared request/response exchange.
type Frame struct {
	Protocol Protocol
	Cut      InstructionSet
	Request  Request
	Response Response
}

// Parse decodes and validates a frame document.
func Parse(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, rerrors.Wrap(rerrors.FrameParse, "invalid frame document", "", err)
	}
	if err := f.Cut.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// etcMap decodes raw into a generic map, defaulting to an empty object.
func etcMap(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, rerrors.Wrap(rerrors.FrameParse, "invalid object", string(raw), err)
	}
	return m, nil
}

// Hydrate rewrites the frame's request/response bodies and incidental
// fields in place, substituting cut variables per the frame's
// InstructionSet. See hydrateVal/hydrateString for the per-node algorithm.
func (f *Frame) Hydrate(reg *register.Register, hide bool) error {
	if err := f.hydrateRaw(&f.Request.Body, reg, hide); err != nil {
		return err
	}
	if len(f.Request.Header) > 0 {
		if err := f.hydrateRaw(&f.Request.Header, reg, hide); err != nil {
			return err
		}
	}
	if err := f.hydrateRaw(&f.Request.Etc, reg, hide); err != nil {
		return err
	}
	if len(f.Response.Body) > 0 {
		if err := f.hydrateRaw(&f.Response.Body, reg, hide); err != nil {
			return err
		}
	}
	if err := f.hydrateRaw(&f.Response.Etc, reg, hide); err != nil {
		return err
	}

	uri, err := hydrateString(f.Cut, f.Request.URI, reg, hide)
	if err != nil {
		return err
	}
	s, ok := uri.(string)
	if !ok {
		return rerrors.New(rerrors.NonStringSubstitution, "request uri must remain a string after hydration", f.Request.URI)
	}
	f.Request.URI = s

	if len(f.Request.Entrypoint) > 0 {
		var epStr string
		if err := json.Unmarshal(f.Request.Entrypoint, &epStr); err == nil {
			hv, err := hydrateString(f.Cut, epStr, reg, hide)
			if err != nil {
				return err
			}
			encoded, err := json.Marshal(hv)
			if err != nil {
				return err
			}
			f.Request.Entrypoint = encoded
		}
	}
	return nil
}

// hydrateRaw decodes a json.RawMessage field, hydrates the decoded tree,
// and re-encodes it back into *raw.
func (f *Frame) hydrateRaw(raw *json.RawMessage, reg *register.Register, hide bool) error {
	var v any
	if len(*raw) == 0 {
		v = map[string]any{}
	} else if err := json.Unmarshal(*raw, &v); err != nil {
		return rerrors.Wrap(rerrors.FrameParse, "invalid document", string(*raw), err)
	}
	hv, err := hydrateVal(f.Cut, v, reg, hide)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(hv)
	if err != nil {
		return err
	}
	*raw = encoded
	return nil
}

// hydrateVal recursively hydrates a decoded JSON tree: object values and
// keys, array elements, and terminal strings.
func hydrateVal(set InstructionSet, val any, reg *register.Register, hide bool) (any, error) {
	switch v := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, vv := range v {
			hv, err := hydrateVal(set, vv, reg, hide)
			if err != nil {
				return nil, err
			}
			newKey, err := hydrateKey(set, k, reg, hide)
			if err != nil {
				return nil, err
			}
			if _, exists := out[newKey]; exists {
				return nil, rerrors.New(rerrors.DuplicateKeyAfterHydration, "hydrated key collides with an existing sibling key", newKey)
			}
			out[newKey] = hv
		}
		return out, nil
	case []any:
		for i := range v {
			hv, err := hydrateVal(set, v[i], reg, hide)
			if err != nil {
				return nil, err
			}
			v[i] = hv
		}
		return v, nil
	case string:
		return hydrateString(set, v, reg, hide)
	default:
		return v, nil
	}
}

// hydrateKey hydrates an object key; the result must remain a string.
func hydrateKey(set InstructionSet, key string, reg *register.Register, hide bool) (string, error) {
	hv, err := hydrateString(set, key, reg, hide)
	if err != nil {
		return "", err
	}
	s, ok := hv.(string)
	if !ok {
		return "", rerrors.New(rerrors.NonStringKey, "object key substitution produced a non-string value", key)
	}
	return s, nil
}

// hydrateString applies read_match/read_op to s under set's permissions. It
// may return a non-string Value when the entire string is a single
// whole-field variable reference whose register value is non-string.
func hydrateString(set InstructionSet, s string, reg *register.Register, hide bool) (any, error) {
	matches, err := reg.ReadMatch(s)
	if err != nil {
		return nil, err
	}

	cur := any(s)
	for _, m := range matches {
		if m.Kind == register.VariableMatch {
			if !set.Contains(m.Name) {
				return nil, rerrors.New(rerrors.UnknownSetVariable, "cut variable not present in frame instruction set", m.Name)
			}
			apply := false
			if _, ok := set.Reads[m.Name]; ok {
				apply = true
			} else if _, ok := set.Writes[m.Name]; ok && set.HydrateWrites {
				apply = true
			}
			if !apply {
				continue
			}
		}
		if err := reg.ReadOp(m, &cur, hide); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// MatchPayload implements §4.4 response matching: for each (var, selector)
// in the frame's write instructions, it reads the frame-side and
// payload-side values at that selector (both anchored at a synthetic
// {"response": ...} root) and extracts the captured value. It returns the
// accumulated writes, or nil if there were none.
func (f *Frame) MatchPayload(payload Response) (map[string]any, error) {
	if len(f.Cut.Writes) == 0 {
		return nil, nil
	}

	frameRoot, err := responseRoot(f.Response)
	if err != nil {
		return nil, err
	}
	payloadRoot, err := responseRoot(payload)
	if err != nil {
		return nil, err
	}

	writes := make(map[string]any, len(f.Cut.Writes))
	for varName, path := range f.Cut.Writes {
		sel, err := selector.Compile(path)
		if err != nil {
			return nil, err
		}
		frameVal, ok := sel.Get(frameRoot)
		if !ok {
			return nil, rerrors.New(rerrors.MissingSelection, "write selector did not resolve against the frame response", path)
		}
		frameStr, ok := frameVal.(string)
		if !ok {
			return nil, rerrors.New(rerrors.FrameParse, "frame write instruction did not correspond to a string", path)
		}
		payloadVal, ok := sel.Get(payloadRoot)
		if !ok {
			return nil, rerrors.New(rerrors.MissingSelection, "write selector did not resolve against the payload response", path)
		}

		if payloadStr, ok := payloadVal.(string); ok {
			captured, found, err := register.WriteMatch(varName, frameStr, payloadStr)
			if err != nil {
				return nil, err
			}
			if found {
				writes[varName] = captured
			}
			continue
		}
		if err := register.ExpectStandalone(varName, frameStr); err != nil {
			return nil, err
		}
		writes[varName] = payloadVal
	}

	if len(writes) == 0 {
		return nil, nil
	}
	return writes, nil
}

// ResponseRoot exposes responseRoot for callers outside the package (the
// take runner) that need to apply validation tolerance rules and compare
// a live payload against this frame's expected response using the same
// {"response": {...}} anchoring write/validation selectors assume.
func ResponseRoot(r Response) (map[string]any, error) {
	return responseRoot(r)
}

// responseRoot builds the synthetic {"response": {...}} root that selectors
// in "to" and "validation" are anchored at.
func responseRoot(r Response) (map[string]any, error) {
	var body any
	if len(r.Body) > 0 {
		if err := json.Unmarshal(r.Body, &body); err != nil {
			return nil, rerrors.Wrap(rerrors.FrameParse, "invalid response body", string(r.Body), err)
		}
	}
	resp := map[string]any{
		"status": r.Status,
		"body":   body,
	}
	etc, err := etcMap(r.Etc)
	if err != nil {
		return nil, err
	}
	for k, v := range etc {
		resp[k] = v
	}
	return map[string]any{"response": resp}, nil
}
