package mockserver

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/valyala/fasthttp"
)

// matchRequest finds the best matching stub for an incoming request. When
// several stubs match, the one with the most specific request matcher wins
// (most query/header criteria, with an exact URL match weighted above a
// path-only one), mirroring the specificity tie-break a stub server needs
// once two contract tests register overlapping routes.
func (s *Server) matchRequest(method, path, fullURI string, queryArgs *fasthttp.Args, body []byte, reqHeaders *fasthttp.RequestHeader) matchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best matchResult
	var bestScore int
	found := false

	for i := range s.stubs {
		st := &s.stubs[i]
		result := evaluateStub(st, method, path, fullURI, queryArgs, body, reqHeaders)

		if result.matched {
			specificity := len(st.Request.Query) + len(st.Request.Headers)
			if st.Request.URL != "" {
				specificity += 100
			}
			if !found || specificity > bestScore {
				found = true
				bestScore = specificity
				best = result
				best.stub = st
			}
		} else if !found {
			score := 0
			if result.methodMatch {
				score++
			}
			if result.urlMatch {
				score += 2
			}
			if result.queryMatch {
				score += 4
			}
			if result.bodyMatch {
				score += 8
			}
			if result.headerMatch {
				score += 16
			}
			if score > bestScore {
				bestScore = score
				best = result
				best.stub = st
			}
		}
	}
	return best
}

func evaluateStub(st *Stub, method, path, fullURI string, queryArgs *fasthttp.Args, body []byte, reqHeaders *fasthttp.RequestHeader) matchResult {
	result := matchResult{}

	result.methodMatch = st.Request.Method == "" || strings.EqualFold(st.Request.Method, method)

	switch {
	case st.Request.URL != "":
		result.urlMatch = st.Request.URL == fullURI
	case st.Request.URLPath != "":
		result.urlMatch = st.Request.URLPath == path
	case st.Request.URLPattern != "":
		if re, err := regexp.Compile(st.Request.URLPattern); err == nil {
			result.urlMatch = re.MatchString(fullURI)
		}
	default:
		result.urlMatch = true
	}

	if len(st.Request.Query) == 0 {
		result.queryMatch = true
	} else {
		result.queryMatch = true
		for name, matcher := range st.Request.Query {
			var actual []string
			queryArgs.VisitAll(func(key, value []byte) {
				if string(key) == name {
					actual = append(actual, string(value))
				}
			})
			if !matchQueryValues(expectedQueryValues(matcher), actual) {
				result.queryMatch = false
			}
		}
	}

	if st.Request.EqualToJSON == nil {
		result.bodyMatch = true
	} else {
		result.bodyMatch = jsonEqual(st.Request.EqualToJSON, body)
	}

	if len(st.Request.Headers) == 0 {
		result.headerMatch = true
	} else {
		result.headerMatch = true
		for name, matcher := range st.Request.Headers {
			actual := string(reqHeaders.Peek(name))
			if !matchHeaderValue(matcher, actual) {
				result.headerMatch = false
			}
		}
	}

	result.matched = result.methodMatch && result.urlMatch && result.queryMatch && result.bodyMatch && result.headerMatch
	return result
}

func jsonEqual(expected json.RawMessage, actual []byte) bool {
	var expectedVal, actualVal any
	if err := json.Unmarshal(expected, &expectedVal); err != nil {
		return false
	}
	if err := json.Unmarshal(actual, &actualVal); err != nil {
		return false
	}
	expectedNorm, err1 := json.Marshal(expectedVal)
	actualNorm, err2 := json.Marshal(actualVal)
	return err1 == nil && err2 == nil && string(expectedNorm) == string(actualNorm)
}

func matchHeaderValue(matcher HeaderMatcher, actual string) bool {
	if matcher.EqualTo != "" {
		return matcher.EqualTo == actual
	}
	if matcher.Contains != "" {
		return strings.Contains(actual, matcher.Contains)
	}
	return true
}

func expectedQueryValues(matcher QueryMatcher) []string {
	if matcher.EqualTo != "" {
		return []string{matcher.EqualTo}
	}
	return matcher.HasExactly
}

func matchQueryValues(expected, actual []string) bool {
	if len(expected) != len(actual) {
		return false
	}
	e := append([]string(nil), expected...)
	a := append([]string(nil), actual...)
	sort.Strings(e)
	sort.Strings(a)
	for i := range e {
		if e[i] != a[i] {
			return false
		}
	}
	return true
}
