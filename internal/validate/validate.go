// Package validate implements the response tolerance rules (partial,
// unordered) applied to a live payload before it is compared against a
// frame's expected response. Array normalization is grounded on the
// teacher's bottom-up recursive array walk, adapted from a total-order sort
// into a multiset equality check with "sink + leftover" reordering, since
// the rule here is set-equality, not a canonical ordering.
package validate

import (
	"encoding/json"
	"reflect"
	"sort"

	"reelrun/internal/frame"
	"reelrun/internal/rerrors"
	"reelrun/internal/selector"
)

// Apply runs every declared tolerance rule against payloadRoot in place,
// anchored against the matching selection in frameRoot. Both roots are
// expected in the synthetic {"response": {...}} shape frame.MatchPayload
// uses. Rules where neither Partial nor Unordered is set are skipped.
func Apply(rules map[string]frame.ValidatorRule, frameRoot, payloadRoot any) error {
	for path, rule := range rules {
		if !rule.Partial && !rule.Unordered {
			continue
		}
		sel, err := selector.Compile(path)
		if err != nil {
			return err
		}
		frameVal, ok := sel.Get(frameRoot)
		if !ok {
			return rerrors.New(rerrors.MissingSelection, "validation selector did not resolve against the frame response", path)
		}
		payloadVal, ok := sel.Get(payloadRoot)
		if !ok {
			return rerrors.New(rerrors.MissingSelection, "validation selector did not resolve against the payload response", path)
		}

		switch frameVal.(type) {
		case map[string]any, []any:
		default:
			return rerrors.New(rerrors.BadValidationTarget, "validation selector must resolve to an object or array", path)
		}

		cur := payloadVal
		if rule.Unordered {
			cur = applyUnordered(frameVal, cur)
		}
		if rule.Partial {
			cur = applyPartial(frameVal, cur)
		}
		if !sel.Set(payloadRoot, cur) {
			return rerrors.New(rerrors.BadValidationTarget, "could not rewrite payload at validation selector", path)
		}
	}
	return nil
}

// applyUnordered tests set-equality between frameVal and payloadVal when
// both are arrays (objects are unordered by nature and §9 resolves
// "unordered" on an object selection to a no-op). On a multiset match it
// reorders payloadVal so its prefix mirrors frameVal's sequence of hash
// classes and its suffix holds any leftover payload elements. On no match
// it returns payloadVal unchanged, so the later structural equality check
// is what reports the failure.
func applyUnordered(frameVal, payloadVal any) any {
	frameArr, fok := frameVal.([]any)
	payloadArr, pok := payloadVal.([]any)
	if !fok || !pok {
		return payloadVal
	}

	used := make([]bool, len(payloadArr))
	result := make([]any, 0, len(payloadArr))
	for _, fe := range frameArr {
		fh := canonicalHash(fe)
		matched := -1
		for i, pe := range payloadArr {
			if used[i] {
				continue
			}
			if canonicalHash(pe) == fh {
				matched = i
				break
			}
		}
		if matched == -1 {
			return payloadVal
		}
		used[matched] = true
		result = append(result, payloadArr[matched])
	}
	for i, pe := range payloadArr {
		if !used[i] {
			result = append(result, pe)
		}
	}
	return result
}

// canonicalHash renders a comparison key for one array element: objects
// hash by their key set only (their values are nulled out), so two objects
// with the same keys but different values are ordering-equivalent; every
// other value hashes by its full JSON representation.
func canonicalHash(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		b, _ := json.Marshal(v)
		return string(b)
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	nulled := make(map[string]any, len(keys))
	for _, k := range keys {
		nulled[k] = nil
	}
	b, _ := json.Marshal(nulled)
	return string(b)
}

// applyPartial drops extra object keys, or requires the frame-side array to
// appear as a contiguous, ordered subsequence of the payload array
// (replacing the payload array with the frame-side array on a match, or
// leaving it unchanged on no match).
func applyPartial(frameVal, payloadVal any) any {
	if frameObj, ok := frameVal.(map[string]any); ok {
		payloadObj, ok := payloadVal.(map[string]any)
		if !ok {
			return payloadVal
		}
		out := make(map[string]any, len(payloadObj))
		for k, v := range payloadObj {
			if _, present := frameObj[k]; present {
				out[k] = v
			}
		}
		return out
	}

	frameArr, fok := frameVal.([]any)
	payloadArr, pok := payloadVal.([]any)
	if !fok || !pok {
		return payloadVal
	}
	if idx := findSubsequence(payloadArr, frameArr); idx != -1 {
		return frameArr
	}
	return payloadVal
}

// findSubsequence returns the start index of frame as a contiguous
// subsequence of payload, or -1 if it doesn't appear.
func findSubsequence(payload, frame []any) int {
	if len(frame) > len(payload) {
		return -1
	}
	for start := 0; start+len(frame) <= len(payload); start++ {
		match := true
		for i, fe := range frame {
			if !reflect.DeepEqual(payload[start+i], fe) {
				match = false
				break
			}
		}
		if match {
			return start
		}
	}
	return -1
}
