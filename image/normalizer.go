package image

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Candidate is one image found in an upstream payload.
type Candidate struct {
	URL    string `json:"url,omitempty"`
	Base64 string `json:"base64,omitempty"`
}

func (c Candidate) empty() bool {
	return c.URL == "" && c.Base64 == ""
}

// Rule extracts candidates from one known payload shape.
// A rule returns nil when its shape is absent or carries no usable image.
type Rule struct {
	Name  string
	Match func(body map[string]any) []Candidate
}

// Rules is the fixed priority order. The first rule yielding a candidate wins.
var Rules = []Rule{
	{Name: "images", Match: matchImagesArray},
	{Name: "data_array", Match: matchDataArray},
	{Name: "output", Match: matchOutputArray},
	{Name: "result", Match: matchResult},
	{Name: "data_object", Match: matchNestedData},
	{Name: "image", Match: matchTopLevelImage},
	{Name: "flat", Match: matchFlatFields},
	{Name: "result_image_url", Match: matchResultImageURL},
}

// Extract applies Rules in order and returns the first non-empty result
// together with the matching rule name. An empty result is not an error.
func Extract(body map[string]any) ([]Candidate, string) {
	if body == nil {
		return nil, ""
	}
	for _, r := range Rules {
		if out := r.Match(body); len(out) > 0 {
			return out, r.Name
		}
	}
	return nil, ""
}

// DecodeBody parses a JSON object payload. Numbers are kept as json.Number.
func DecodeBody(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if body == nil {
		return nil, fmt.Errorf("decode response: not a JSON object")
	}
	return body, nil
}

// ===== 📦 shape rules =====

// rule 1: {"images": [...]}
func matchImagesArray(body map[string]any) []Candidate {
	return candidatesFromList(body["images"])
}

// rule 2: {"data": [...]}
func matchDataArray(body map[string]any) []Candidate {
	return candidatesFromList(body["data"])
}

// rule 3: {"output": [...]}
func matchOutputArray(body map[string]any) []Candidate {
	return candidatesFromList(body["output"])
}

// rule 4: {"result": {"images": [...]}} or {"result": {"image": ...}}
func matchResult(body map[string]any) []Candidate {
	result, ok := body["result"].(map[string]any)
	if !ok {
		return nil
	}
	if list, ok := result["images"].([]any); ok {
		return candidatesFromList(list)
	}
	return single(result["image"])
}

// rule 5: {"data": {"images": [...]}} or {"data": {"image": ...}}
func matchNestedData(body map[string]any) []Candidate {
	switch data := body["data"].(type) {
	case []any:
		return candidatesFromList(data)
	case map[string]any:
		if list, ok := data["images"].([]any); ok {
			return candidatesFromList(list)
		}
		return single(data["image"])
	}
	return nil
}

// rule 6: {"image": ...}
func matchTopLevelImage(body map[string]any) []Candidate {
	return single(body["image"])
}

// rule 7: url / image_url / base64 / image_base64 / b64_json at top level
func matchFlatFields(body map[string]any) []Candidate {
	c := Candidate{
		URL:    firstURL(body, "url", "image_url"),
		Base64: firstString(body, "base64", "image_base64", "b64_json"),
	}
	if c.empty() {
		return nil
	}
	return []Candidate{c}
}

// rule 8: {"data": {"info": {"resultImageUrl": ...}}}
func matchResultImageURL(body map[string]any) []Candidate {
	data, ok := body["data"].(map[string]any)
	if !ok {
		return nil
	}
	info, ok := data["info"].(map[string]any)
	if !ok {
		return nil
	}
	if u := urlValue(info["resultImageUrl"]); u != "" {
		return []Candidate{{URL: u}}
	}
	return nil
}

// ===== 🔧 helpers =====

func candidatesFromList(v any) []Candidate {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Candidate, 0, len(list))
	for _, item := range list {
		if c, ok := toCandidate(item); ok {
			out = append(out, c)
		}
	}
	return out
}

func single(v any) []Candidate {
	if c, ok := toCandidate(v); ok {
		return []Candidate{c}
	}
	return nil
}

// toCandidate accepts a bare url string or an image object.
func toCandidate(v any) (Candidate, bool) {
	var c Candidate
	switch x := v.(type) {
	case string:
		c.URL = strings.TrimSpace(x)
	case map[string]any:
		c.URL = firstURL(x, "url", "image_url")
		c.Base64 = firstString(x, "base64", "b64_json", "image_base64")
	}
	return c, !c.empty()
}

// urlValue flattens a url given as a string or as {"url"} / {"href"}.
func urlValue(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case map[string]any:
		if s, ok := x["url"].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		if s, ok := x["href"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstURL(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if u := urlValue(m[k]); u != "" {
			return u
		}
	}
	return ""
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// ===== 📨 payload metadata =====

// TaskID returns the asynchronous task id carried by a submit response.
func TaskID(body map[string]any) (string, bool) {
	if data, ok := body["data"].(map[string]any); ok {
		if id := scalarString(data["taskId"]); id != "" {
			return id, true
		}
		if id := scalarString(data["task_id"]); id != "" {
			return id, true
		}
	}
	for _, k := range []string{"taskId", "task_id"} {
		if id := scalarString(body[k]); id != "" {
			return id, true
		}
	}
	return "", false
}

// StatusCode reads the numeric "code", falling back to "status".
func StatusCode(body map[string]any) (int, bool) {
	for _, k := range []string{"code", "status"} {
		if n, ok := numberValue(body[k]); ok {
			return n, true
		}
	}
	return 0, false
}

// Message reads msg / message / error, or returns fallback.
func Message(body map[string]any, fallback string) string {
	for _, k := range []string{"msg", "message", "error"} {
		switch v := body[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case map[string]any:
			if s, ok := v["message"].(string); ok && s != "" {
				return s
			}
		}
	}
	return fallback
}

// Keys lists the top-level keys for diagnostics.
func Keys(body map[string]any) []string {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

func numberValue(v any) (int, bool) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), true
		}
		if f, err := x.Float64(); err == nil {
			return int(f), true
		}
	case float64:
		return int(x), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// ===== 🖼 candidate → result =====

// decodeInline strips an optional data URI prefix and decodes standard or URL-safe base64.
func decodeInline(s string) ([]byte, error) {
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

// Result converts the candidate into an ImageResult. Undecodable inline data
// is dropped when a url is also present, otherwise it is an error.
func (c Candidate) Result(meta map[string]any) (*ImageResult, error) {
	res := &ImageResult{URL: c.URL, Meta: meta}
	if c.Base64 != "" {
		data, err := decodeInline(c.Base64)
		switch {
		case err == nil:
			res.Data = data
		case c.URL == "":
			return nil, fmt.Errorf("inline image is not valid base64: %w", err)
		}
	}
	return res, nil
}
