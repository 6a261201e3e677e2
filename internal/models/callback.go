package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// WebhookCallback is one staged callback from the workflow engine. Every
// field except SearchID is optional and the engine is not consistent about
// value types, so the custom decoders below accept the shapes seen in practice.
type WebhookCallback struct {
	SearchID      string          `json:"searchId"`
	Stage         string          `json:"stage"`
	Error         FlexString      `json:"error"`
	WebsiteData   json.RawMessage `json:"websiteData"`
	Keywords      KeywordList     `json:"keywords"`
	Keyword       string          `json:"keyword"`
	PassedPosts   PassedPosts     `json:"passedPosts"`
	Platform      string          `json:"platform"`
	LinkedInFinal string          `json:"linkedinFinal"`
}

// FirstWebsiteData returns the first element of the websiteData array.
func (c *WebhookCallback) FirstWebsiteData() (json.RawMessage, bool) {
	data := unquoteJSON(c.WebsiteData)
	if len(data) == 0 || data[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil || len(items) == 0 {
		return nil, false
	}
	first := bytes.TrimSpace(items[0])
	if len(first) == 0 || bytes.Equal(first, []byte("null")) {
		return nil, false
	}
	return first, true
}

// unquoteJSON unwraps a JSON string that itself holds JSON text.
func unquoteJSON(data []byte) []byte {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return data
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return data
	}
	inner := bytes.TrimSpace([]byte(s))
	if json.Valid(inner) {
		return inner
	}
	return data
}

// FlexString accepts a JSON string or any other value. Falsy values decode
// to the empty string; other non-strings keep their JSON text.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, isFalsy(data):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		*f = FlexString(data)
	}
	return nil
}

func isFalsy(data []byte) bool {
	switch string(data) {
	case "null", "false", "0", `""`:
		return true
	}
	return false
}

// KeywordList is the keyword map sent with keywords_generated, flattened to
// its values. Object values keep JavaScript property order: integer keys in
// ascending order first, then the remaining keys as written.
type KeywordList struct {
	Values  []string
	Present bool
}

func (k *KeywordList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		inner := strings.TrimSpace(s)
		if (strings.HasPrefix(inner, "{") || strings.HasPrefix(inner, "[")) && json.Valid([]byte(inner)) {
			return k.UnmarshalJSON([]byte(inner))
		}
		if inner == "" {
			return nil
		}
		k.Present = true
		k.Values = []string{inner}
		return nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("keywords: %w", err)
		}
		k.Present = true
		k.Values = keywordValues(items)
		return nil
	case '{':
		entries, err := orderedObject(data)
		if err != nil {
			return fmt.Errorf("keywords: %w", err)
		}
		sort.SliceStable(entries, func(i, j int) bool {
			ni, iok := arrayIndex(entries[i].key)
			nj, jok := arrayIndex(entries[j].key)
			if iok && jok {
				return ni < nj
			}
			return iok && !jok
		})
		items := make([]json.RawMessage, 0, len(entries))
		for _, e := range entries {
			items = append(items, e.value)
		}
		k.Present = true
		k.Values = keywordValues(items)
		return nil
	}
	return fmt.Errorf("keywords: unsupported value %s", data)
}

type objectEntry struct {
	key   string
	value json.RawMessage
}

func orderedObject(data []byte) ([]objectEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var entries []objectEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		entries = append(entries, objectEntry{key: key, value: value})
	}
	return entries, nil
}

func arrayIndex(key string) (uint64, bool) {
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 || strconv.FormatUint(n, 10) != key {
		return 0, false
	}
	return n, true
}

func keywordValues(items []json.RawMessage) []string {
	values := make([]string, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || bytes.Equal(item, []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			values = append(values, s)
			continue
		}
		values = append(values, string(item))
	}
	return values
}

// PassedPosts is the conversation payload of a partial or final batch: a
// markdown string, or an array of {"passed_post": markdown | [post, ...]}.
type PassedPosts struct {
	Markdown []string
	Posts    []StructuredPost
}

type passedItem struct {
	PassedPost json.RawMessage `json:"passed_post"`
}

func (p *PassedPosts) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		inner := strings.TrimSpace(s)
		if strings.HasPrefix(inner, "[") && json.Valid([]byte(inner)) {
			return p.UnmarshalJSON([]byte(inner))
		}
		p.Markdown = append(p.Markdown, s)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("passedPosts: %w", err)
		}
		for _, raw := range items {
			var item passedItem
			if err := json.Unmarshal(raw, &item); err != nil {
				continue
			}
			p.addPassedPost(bytes.TrimSpace(item.PassedPost))
		}
	}
	return nil
}

func (p *PassedPosts) addPassedPost(raw []byte) {
	if len(raw) == 0 {
		return
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			p.Markdown = append(p.Markdown, s)
		}
	case '[':
		var posts []json.RawMessage
		if err := json.Unmarshal(raw, &posts); err != nil {
			return
		}
		for _, rp := range posts {
			var post StructuredPost
			if err := json.Unmarshal(rp, &post); err != nil {
				continue
			}
			p.Posts = append(p.Posts, post)
		}
	}
}

// Empty reports whether the payload carried nothing to parse.
func (p PassedPosts) Empty() bool {
	return len(p.Markdown) == 0 && len(p.Posts) == 0
}

// StructuredPost is a post the workflow already converted to JSON.
type StructuredPost struct {
	Title          string
	PostURL        string
	Body           string
	Author         string
	Subreddit      string
	Keyword        string
	Assessment     string
	CreatedAt      string
	Upvotes        int
	Comments       int
	RelevanceScore *float64
}

func (p *StructuredPost) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title          FlexString  `json:"title"`
		PostURL        FlexString  `json:"postUrl"`
		URL            FlexString  `json:"url"`
		Body           FlexString  `json:"body"`
		Excerpt        FlexString  `json:"excerpt"`
		Author         FlexString  `json:"author"`
		Subreddit      FlexString  `json:"subreddit"`
		Keyword        FlexString  `json:"keyword"`
		Assessment     FlexString  `json:"assessment"`
		CreatedAt      FlexString  `json:"createdAt"`
		Upvotes        flexNumber  `json:"upvotes"`
		Comments       flexNumber  `json:"comments"`
		RelevanceScore flexNumber  `json:"relevanceScore"`
		Engagement     *engagement `json:"engagement"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = StructuredPost{
		Title:      string(raw.Title),
		PostURL:    firstNonEmpty(string(raw.PostURL), string(raw.URL)),
		Body:       firstNonEmpty(string(raw.Body), string(raw.Excerpt)),
		Author:     string(raw.Author),
		Subreddit:  string(raw.Subreddit),
		Keyword:    string(raw.Keyword),
		Assessment: string(raw.Assessment),
		CreatedAt:  string(raw.CreatedAt),
		Upvotes:    raw.Upvotes.Int(),
		Comments:   raw.Comments.Int(),
	}
	if raw.Engagement != nil {
		if p.Upvotes == 0 {
			p.Upvotes = raw.Engagement.Upvotes.Int()
		}
		if p.Comments == 0 {
			p.Comments = raw.Engagement.Comments.Int()
		}
	}
	if score := float64(raw.RelevanceScore); score != 0 {
		p.RelevanceScore = &score
	}
	return nil
}

type engagement struct {
	Upvotes  flexNumber `json:"upvotes"`
	Comments flexNumber `json:"comments"`
}

// flexNumber accepts a JSON number or a numeric string; anything else is 0.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = 0
		return nil
	}
	*n = flexNumber(f)
	return nil
}

func (n flexNumber) Int() int {
	return int(math.Round(float64(n)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// jsonFormFields may carry JSON text when a callback arrives form-encoded.
var jsonFormFields = map[string]bool{
	"websiteData": true,
	"keywords":    true,
	"passedPosts": true,
}

// DecodeCallbackForm builds a callback from an urlencoded body.
func DecodeCallbackForm(values url.Values) (*WebhookCallback, error) {
	fields := make(map[string]json.RawMessage, len(values))
	for key := range values {
		value := values.Get(key)
		if jsonFormFields[key] {
			trimmed := strings.TrimSpace(value)
			if (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && json.Valid([]byte(trimmed)) {
				fields[key] = json.RawMessage(trimmed)
				continue
			}
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode form field %s: %w", key, err)
		}
		fields[key] = encoded
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode form body: %w", err)
	}
	var cb WebhookCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("decode form body: %w", err)
	}
	return &cb, nil
}
