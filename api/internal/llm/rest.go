package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxRESTBody = 8 << 20

// REST is the fallback path: a plain POST to the generateContent endpoint.
type REST struct {
	APIKey  string
	BaseURL string
	httpc   *http.Client
}

func NewREST(apiKey, baseURL string, timeout time.Duration) *REST {
	if baseURL == "" {
		baseURL = DefaultRESTBaseURL
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
	}
	return &REST{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout, Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client (tests, tracing).
func (r *REST) WithHTTPClient(c *http.Client) *REST {
	if c != nil {
		r.httpc = c
	}
	return r
}

func (r *REST) Path() Path { return PathREST }

func (r *REST) Generate(ctx context.Context, req Request) (string, error) {
	if r.APIKey == "" {
		return "", &Error{Kind: KindAuthentication, Path: PathREST, Err: errors.New("GOOGLE_API_KEY is empty")}
	}

	genCfg := map[string]any{"temperature": req.Temperature}
	if req.MaxOutputTokens > 0 {
		genCfg["maxOutputTokens"] = req.MaxOutputTokens
	}
	if req.JSON {
		genCfg["responseMimeType"] = "application/json"
	}
	body := map[string]any{
		"contents": []any{
			map[string]any{
				"role":  "user",
				"parts": []any{map[string]any{"text": req.Prompt}},
			},
		},
		"generationConfig": genCfg,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", InvalidInput("marshal request: %v", err)
	}

	model := strings.TrimPrefix(strings.TrimSpace(req.Model), "models/")
	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", r.BaseURL, url.PathEscape(model), url.QueryEscape(r.APIKey))

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: KindTransport, Path: PathREST, Err: redactKey(err, r.APIKey)}
	}
	hreq.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := r.httpc.Do(hreq)
	if err != nil {
		return "", &Error{Kind: KindTransport, Path: PathREST, Err: redactKey(err, r.APIKey)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRESTBody))
	if err != nil {
		return "", &Error{Kind: KindTransport, Path: PathREST, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Kind:   classifyStatus(resp.StatusCode, string(raw)),
			Path:   PathREST,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("gemini %d: %s", resp.StatusCode, truncate(raw, 512)),
		}
	}

	txt, err := extractText(raw)
	if err != nil {
		return "", malformed(PathREST, "gemini rest: %v", err)
	}
	return txt, nil
}

// extractText pulls the completion out of the several envelope shapes the
// Generative Language API has used: candidates[].content.parts[].text,
// candidates[].output, result.candidates[...], a top-level output, and as a
// last resort the first "text" field found anywhere, walking keys in order.
func extractText(raw []byte) (string, error) {
	var env any
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("bad envelope: %w", err)
	}
	root, ok := env.(map[string]any)
	if !ok {
		return "", errors.New("envelope is not an object")
	}

	if t := candidatesText(root["candidates"]); t != "" {
		return t, nil
	}
	if res, ok := root["result"].(map[string]any); ok {
		if t := candidatesText(res["candidates"]); t != "" {
			return t, nil
		}
	}
	if s, ok := root["output"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s), nil
	}
	if t := findTextField(root); t != "" {
		return t, nil
	}

	if pf, ok := root["promptFeedback"].(map[string]any); ok {
		if reason, _ := pf["blockReason"].(string); reason != "" {
			return "", fmt.Errorf("prompt blocked: %s", reason)
		}
	}
	return "", errors.New("no text in response")
}

func candidatesText(v any) string {
	list, ok := v.([]any)
	if !ok {
		return ""
	}
	for _, c := range list {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := cm["output"].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		var parts []any
		switch content := cm["content"].(type) {
		case map[string]any:
			parts, _ = content["parts"].([]any)
		case []any:
			parts = content
		}
		var b strings.Builder
		for _, p := range parts {
			if pm, ok := p.(map[string]any); ok {
				if s, ok := pm["text"].(string); ok {
					b.WriteString(s)
				}
			}
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			return s
		}
	}
	return ""
}

func findTextField(v any) string {
	switch n := v.(type) {
	case map[string]any:
		if s, ok := n["text"].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if t := findTextField(n[k]); t != "" {
				return t
			}
		}
	case []any:
		for _, child := range n {
			if t := findTextField(child); t != "" {
				return t
			}
		}
	}
	return ""
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// redactKey keeps the API key out of url.Error messages, which embed the full URL.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED")
	if msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
