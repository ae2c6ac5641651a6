// Package register implements the cut register: the mutable variable store
// shared by every frame in a reel. It provides the read/write primitives
// frame hydration is built from (read_match/read_op) and the extraction
// primitives the take runner uses after a live response (write_match/
// write_op), plus merge and ignored-key flushing.
package register

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"reelrun/internal/rerrors"
)

// Value is any JSON value: null, bool, number, string, array, or object.
type Value = any

// hiddenPlaceholder is substituted for a hidden variable's true value when
// hide=true is requested, both during read_op and when rendering a register
// for human/diagnostic display.
const hiddenPlaceholder = "${_HIDDEN}"

var (
	nameRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	ignoredRe = regexp.MustCompile(`^[a-z_]+$`)
	varMatch  = regexp.MustCompile(`(\\)?\$\{([A-Za-z_][A-Za-z0-9_]*)(\})?`)
)

// Register is an unordered name -> Value mapping. Build one with New or
// FromJSON; the zero value has no backing map and cannot be written to.
type Register struct {
	vars map[string]Value
}

// New returns an empty Register.
func New() *Register {
	return &Register{vars: make(map[string]Value)}
}

// FromJSON decodes a flat JSON object into a Register, validating every key
// against the variable-name grammar.
func FromJSON(data []byte) (*Register, error) {
	if len(data) == 0 {
		return New(), nil
	}
	var raw map[string]Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, rerrors.Wrap(rerrors.CutParse, "invalid cut document", "", err)
	}
	r := New()
	for k, v := range raw {
		if _, err := r.Insert(k, v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// IsValidName reports whether name satisfies the variable-name grammar
// [A-Za-z_][A-Za-z0-9_]*.
func IsValidName(name string) bool { return nameRe.MatchString(name) }

// IsIgnored reports whether name is an ignored variable: entirely lowercase
// letters and underscores.
func IsIgnored(name string) bool { return ignoredRe.MatchString(name) }

// IsHidden reports whether name is a hidden variable: begins with '_'.
func IsHidden(name string) bool { return strings.HasPrefix(name, "_") }

// Insert (alias: WriteOp) validates name and stores v, returning the
// previous value if the key was already present.
func (r *Register) Insert(name string, v Value) (Value, bool, error) {
	if !IsValidName(name) {
		return nil, false, rerrors.New(rerrors.InvalidVariableName, "invalid cut variable name", name)
	}
	prev, existed := r.vars[name]
	r.vars[name] = v
	return prev, existed, nil
}

// WriteOp is the public alias for Insert named in spec §4.2.
func (r *Register) WriteOp(name string, v Value) (Value, bool, error) {
	return r.Insert(name, v)
}

// Get returns the value stored for name.
func (r *Register) Get(name string) (Value, bool) {
	v, ok := r.vars[name]
	return v, ok
}

// Contains reports whether name is present in the register.
func (r *Register) Contains(name string) bool {
	_, ok := r.vars[name]
	return ok
}

// Len returns the number of entries.
func (r *Register) Len() int { return len(r.vars) }

// Iter calls fn for every (name, value) pair in lexicographic key order, so
// callers that need determinism (e.g. diagnostics) don't have to sort
// themselves.
func (r *Register) Iter(fn func(name string, v Value)) {
	for _, k := range r.sortedKeys() {
		fn(k, r.vars[k])
	}
}

func (r *Register) sortedKeys() []string {
	keys := make([]string, 0, len(r.vars))
	for k := range r.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge is a destructive union: for each entry in each of others, in order,
// that entry overwrites the receiver's entry for the same key. Ignored-key
// flushing is not performed here.
func (r *Register) Merge(others ...*Register) {
	for _, o := range others {
		if o == nil {
			continue
		}
		for k, v := range o.vars {
			r.vars[k] = v
		}
	}
}

// FlushIgnored removes every key matching the ignored-name grammar
// ^[a-z_]+$.
func (r *Register) FlushIgnored() {
	for k := range r.vars {
		if IsIgnored(k) {
			delete(r.vars, k)
		}
	}
}

// MarshalJSON renders the register as a flat JSON object; Go's map
// marshaling already emits keys in ascending lexicographic order, which is
// exactly the determinism spec.md requires.
func (r *Register) MarshalJSON() ([]byte, error) {
	if r == nil || r.vars == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.vars)
}

// UnmarshalJSON decodes a flat JSON object, validating every key.
func (r *Register) UnmarshalJSON(data []byte) error {
	var raw map[string]Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return rerrors.Wrap(rerrors.CutParse, "invalid cut document", "", err)
	}
	r.vars = make(map[string]Value, len(raw))
	for k, v := range raw {
		if !IsValidName(k) {
			return rerrors.New(rerrors.InvalidVariableName, "invalid cut variable name", k)
		}
		r.vars[k] = v
	}
	return nil
}

// MarshalHidden renders the register the same way MarshalJSON does, except
// every hidden ('_'-prefixed) variable's value is replaced with a masked
// placeholder. Key presence is preserved so a diff against the unmasked
// form still shows which hidden keys exist, just not their secret values.
func (r *Register) MarshalHidden() ([]byte, error) {
	masked := make(map[string]Value, len(r.vars))
	for k, v := range r.vars {
		if IsHidden(k) {
			masked[k] = hiddenPlaceholder
			continue
		}
		masked[k] = v
	}
	return json.Marshal(masked)
}

// MatchKind distinguishes the two kinds of read_match occurrences.
type MatchKind int

const (
	EscapeMatch MatchKind = iota
	VariableMatch
)

// Match is one occurrence found by ReadMatch: either an escaped "${" (the
// backslash is to be stripped) or a resolved "${NAME}" variable reference.
type Match struct {
	Kind  MatchKind
	Name  string
	Value Value
	Start int
	End   int
}

// ReadMatch scans s for "\${NAME}" and "${NAME}" occurrences. A NAME not
// present in the register is skipped silently: it produces no Match at all,
// leaving the InstructionSet check in frame hydration to decide whether the
// unauthorized reference is even allowed to appear. Results are sorted by
// descending start offset so replacements can be applied in order without
// invalidating earlier ranges.
func (r *Register) ReadMatch(s string) ([]Match, error) {
	var matches []Match
	for _, m := range varMatch.FindAllStringSubmatchIndex(s, -1) {
		fullStart, fullEnd := m[0], m[1]
		escStart := m[2]
		nameStart, nameEnd := m[4], m[5]
		trailStart := m[6]

		if escStart != -1 {
			matches = append(matches, Match{Kind: EscapeMatch, Start: escStart, End: escStart + 1})
			continue
		}

		if trailStart == -1 {
			return nil, rerrors.New(rerrors.MissingClosingBrace, "missing trailing brace for cut variable", s[fullStart:fullEnd])
		}

		name := s[nameStart:nameEnd]
		val, ok := r.Get(name)
		if !ok {
			continue
		}
		matches = append(matches, Match{Kind: VariableMatch, Name: name, Value: val, Start: fullStart, End: fullEnd})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Start > matches[j].Start })
	return matches, nil
}

// ReadOp applies one Match to target, which must currently hold a string
// (the same string ReadMatch scanned, possibly already spliced by a
// previous, later-starting Match). ReadOp may replace *target's Value
// entirely when a Variable match covers the whole string and its value is
// non-string.
func (r *Register) ReadOp(m Match, target *Value, hide bool) error {
	s, ok := (*target).(string)
	if !ok {
		return rerrors.New(rerrors.NonStringSubstitution, "read_op target is not a string", "")
	}

	if m.Kind == EscapeMatch {
		*target = s[:m.Start] + s[m.End:]
		return nil
	}

	val, ok := r.Get(m.Name)
	if !ok {
		return rerrors.New(rerrors.UnknownVariable, "cut variable not present in register", m.Name)
	}

	if hide && IsHidden(m.Name) {
		val = hiddenPlaceholder
	}

	whole := m.Start == 0 && m.End == len(s)
	if sv, isStr := val.(string); isStr {
		*target = s[:m.Start] + sv + s[m.End:]
		return nil
	}
	if !whole {
		return rerrors.New(rerrors.NonStringSubstitution, "non-string cut variable used inside a larger string", m.Name)
	}
	*target = val
	return nil
}

// WriteMatch extracts the value captured by var_name from payloadStr, given
// that frameStr contains exactly one "${var_name}" occurrence surrounded by
// literal context which payloadStr must reproduce exactly. It returns
// (_, false, nil) if var_name does not occur in frameStr at all.
//
// Only the last occurrence of the token is ever considered: the literal
// context to either side must still match payloadStr's prefix/suffix, so a
// frame string with more than one occurrence of the same variable simply
// fails WriteTemplateMismatch (the leading occurrences become part of the
// captured "head" literal, which practically never matches the payload).
// Callers such as frame.MatchPayload do not filter such strings out, and
// this function never panics on them.
func WriteMatch(varName, frameStr, payloadStr string) (string, bool, error) {
	token := "${" + varName + "}"
	idx := strings.LastIndex(frameStr, token)
	if idx == -1 {
		return "", false, nil
	}
	head := frameStr[:idx]
	tail := frameStr[idx+len(token):]

	if !strings.HasPrefix(payloadStr, head) || !strings.HasSuffix(payloadStr, tail) {
		return "", false, rerrors.New(rerrors.WriteTemplateMismatch, "payload did not frame the cut variable as the frame did", varName)
	}
	mid := strings.TrimPrefix(payloadStr, head)
	mid = strings.TrimSuffix(mid, tail)
	return mid, true, nil
}

// ExpectStandalone asserts that frameStr is exactly "${varName}", used when
// capturing a non-string payload value whole.
func ExpectStandalone(varName, frameStr string) error {
	want := "${" + varName + "}"
	if frameStr != want {
		return rerrors.New(rerrors.WriteTemplateMismatch, "expected a standalone cut variable reference", frameStr)
	}
	return nil
}
