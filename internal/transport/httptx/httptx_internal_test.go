package httptx

import "testing"

func TestSplitURI(t *testing.T) {
	method, path, err := splitURI("GET /widgets/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != "GET" || path != "/widgets/1" {
		t.Fatalf("got method=%q path=%q", method, path)
	}

	if _, _, err := splitURI("malformed"); err == nil {
		t.Fatal("expected an error for a URI without a space")
	}
}

func TestBuildURLStripsSchemeAndAppliesQuery(t *testing.T) {
	full, err := buildURL(false, "http://example.com/", "/widgets", map[string]any{
		"query": map[string]any{"id": "7"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "http://example.com/widgets?id=7"
	if full != want {
		t.Fatalf("got %q, want %q", full, want)
	}
}

func TestBuildURLUsesTLSScheme(t *testing.T) {
	full, err := buildURL(true, "example.com", "/widgets", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://example.com/widgets"
	if full != want {
		t.Fatalf("got %q, want %q", full, want)
	}
}
