// Package httptx is the HTTP transport adapter: it sends a frame's request
// over fasthttp and returns a frame.Response. Grounded on the teacher's
// fasthttp client usage in internal/proxy/proxy.go, generalized from
// "forward this request verbatim" to "build a request from a hydrated
// frame.Request and the run's resolved params".
package httptx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"reelrun/internal/frame"
	"reelrun/internal/params"
	"reelrun/internal/rerrors"
)

// Client sends HTTP requests via a shared fasthttp.Client.
type Client struct {
	fc *fasthttp.Client
}

// New returns a ready-to-use Client.
func New() *Client {
	return &Client{fc: &fasthttp.Client{}}
}

// Send parses req.URI as "METHOD PATH", joins it against p.Address, honors
// an optional etc.form (url-encoded body) or etc.query (query string)
// object, and returns the decoded response.
func (c *Client) Send(ctx context.Context, p params.Params, req frame.Request) (frame.Response, error) {
	method, path, err := splitURI(req.URI)
	if err != nil {
		return frame.Response{}, err
	}

	etc := map[string]any{}
	if len(req.Etc) > 0 {
		_ = json.Unmarshal(req.Etc, &etc)
	}

	fullURL, err := buildURL(p.TLS, p.Address, path, etc)
	if err != nil {
		return frame.Response{}, err
	}

	freq := fasthttp.AcquireRequest()
	fresp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(freq)
	defer fasthttp.ReleaseResponse(fresp)

	freq.SetRequestURI(fullURL)
	freq.Header.SetMethod(method)

	if form, ok := etc["form"].(map[string]any); ok {
		values := url.Values{}
		for k, v := range form {
			values.Set(k, fmt.Sprint(v))
		}
		freq.Header.SetContentType("application/x-www-form-urlencoded")
		freq.SetBodyString(values.Encode())
	} else if len(req.Body) > 0 && string(req.Body) != "{}" && string(req.Body) != "null" {
		freq.Header.SetContentType("application/json")
		freq.SetBody(req.Body)
	}

	if len(p.Header) > 0 {
		var hm map[string]any
		if err := json.Unmarshal(p.Header, &hm); err == nil {
			for k, v := range hm {
				freq.Header.Set(k, fmt.Sprint(v))
			}
		}
	}

	if err := doWithContext(ctx, c.fc, freq, fresp, p.Timeout); err != nil {
		return frame.Response{}, rerrors.Wrap(rerrors.Transport, "http request failed", fullURL, err)
	}

	body := fresp.Body()
	if strings.EqualFold(string(fresp.Header.Peek("Content-Encoding")), "gzip") {
		if decompressed, err := fasthttp.AppendGunzipBytes(nil, body); err == nil {
			body = decompressed
		}
	}
	bodyCopy := make([]byte, len(body))
	copy(bodyCopy, body)

	var bodyVal any
	if len(bodyCopy) > 0 {
		if err := json.Unmarshal(bodyCopy, &bodyVal); err != nil {
			bodyVal = string(bodyCopy)
		}
	}
	bodyRaw, err := json.Marshal(bodyVal)
	if err != nil {
		return frame.Response{}, rerrors.Wrap(rerrors.Transport, "could not encode response body", fullURL, err)
	}

	return frame.Response{Status: uint32(fresp.StatusCode()), Body: bodyRaw}, nil
}

func splitURI(uri string) (method, path string, err error) {
	parts := strings.SplitN(uri, " ", 2)
	if len(parts) != 2 {
		return "", "", rerrors.New(rerrors.Transport, "http uri must be \"METHOD PATH\"", uri)
	}
	return parts[0], parts[1], nil
}

func buildURL(tls bool, address, path string, etc map[string]any) (string, error) {
	scheme := "http"
	if tls {
		scheme = "https"
	}
	address = strings.TrimPrefix(address, "http://")
	address = strings.TrimPrefix(address, "https://")
	address = strings.TrimRight(address, "/")
	full := scheme + "://" + address + path

	q, ok := etc["query"].(map[string]any)
	if !ok || len(q) == 0 {
		return full, nil
	}
	parsed, err := url.Parse(full)
	if err != nil {
		return "", rerrors.Wrap(rerrors.Transport, "invalid request uri", full, err)
	}
	values := parsed.Query()
	for k, v := range q {
		values.Set(k, fmt.Sprint(v))
	}
	parsed.RawQuery = values.Encode()
	return parsed.String(), nil
}

// doWithContext runs req through c honoring whichever of ctx's deadline or
// timeout is sooner; p.Timeout == 0 means no adapter-side deadline.
func doWithContext(ctx context.Context, c *fasthttp.Client, req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	deadline, hasDeadline := ctx.Deadline()
	if timeout > 0 {
		byTimeout := time.Now().Add(timeout)
		if !hasDeadline || byTimeout.Before(deadline) {
			deadline = byTimeout
			hasDeadline = true
		}
	}
	if hasDeadline {
		return c.DoDeadline(req, resp, deadline)
	}
	return c.Do(req, resp)
}
