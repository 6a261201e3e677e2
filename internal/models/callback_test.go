package models

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeCallback(t *testing.T, body string) WebhookCallback {
	t.Helper()
	var cb WebhookCallback
	require.NoError(t, json.Unmarshal([]byte(body), &cb))
	return cb
}

func TestKeywordList_ObjectValueOrder(t *testing.T) {
	cb := decodeCallback(t, `{"searchId":"s1","keywords":{"b":"beta","2":"two","a":"alpha","0":"zero","01":"leading"}}`)

	assert.True(t, cb.Keywords.Present)
	assert.Equal(t, []string{"zero", "two", "beta", "alpha", "leading"}, cb.Keywords.Values)
}

func TestKeywordList_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		present bool
		want    []string
	}{
		{"array", `{"keywords":["crm","sales tool"]}`, true, []string{"crm", "sales tool"}},
		{"stringified object", `{"keywords":"{\"k1\":\"one\",\"k2\":\"two\"}"}`, true, []string{"one", "two"}},
		{"plain string", `{"keywords":"crm"}`, true, []string{"crm"}},
		{"null", `{"keywords":null}`, false, nil},
		{"absent", `{}`, false, nil},
		{"empty object", `{"keywords":{}}`, true, []string{}},
		{"non-string values", `{"keywords":{"a":1,"b":null,"c":"x"}}`, true, []string{"1", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := decodeCallback(t, tt.body)
			assert.Equal(t, tt.present, cb.Keywords.Present)
			assert.Equal(t, tt.want, cb.Keywords.Values)
		})
	}
}

func TestPassedPosts_Shapes(t *testing.T) {
	t.Run("markdown string", func(t *testing.T) {
		cb := decodeCallback(t, `{"passedPosts":"# Conversation 1\n**Title:** A"}`)
		assert.Equal(t, []string{"# Conversation 1\n**Title:** A"}, cb.PassedPosts.Markdown)
		assert.Empty(t, cb.PassedPosts.Posts)
	})

	t.Run("array of passed_post items", func(t *testing.T) {
		cb := decodeCallback(t, `{"passedPosts":[
			{"passed_post":"no_conversations_found"},
			null,
			"junk",
			{"other":1},
			{"passed_post":[{"title":"T","url":"http://u","excerpt":"E","engagement":{"upvotes":"7","comments":3},"relevanceScore":0.8}]}
		]}`)

		assert.Equal(t, []string{"no_conversations_found"}, cb.PassedPosts.Markdown)
		require.Len(t, cb.PassedPosts.Posts, 1)
		post := cb.PassedPosts.Posts[0]
		assert.Equal(t, "T", post.Title)
		assert.Equal(t, "http://u", post.PostURL)
		assert.Equal(t, "E", post.Body)
		assert.Equal(t, 7, post.Upvotes)
		assert.Equal(t, 3, post.Comments)
		require.NotNil(t, post.RelevanceScore)
		assert.InDelta(t, 0.8, *post.RelevanceScore, 1e-9)
	})

	t.Run("absent", func(t *testing.T) {
		cb := decodeCallback(t, `{"searchId":"s1"}`)
		assert.True(t, cb.PassedPosts.Empty())
	})
}

func TestStructuredPost_PrefersDirectFields(t *testing.T) {
	var post StructuredPost
	require.NoError(t, json.Unmarshal([]byte(`{"postUrl":"a","url":"b","body":"c","excerpt":"d","upvotes":2,"engagement":{"upvotes":9},"relevanceScore":0}`), &post))

	assert.Equal(t, "a", post.PostURL)
	assert.Equal(t, "c", post.Body)
	assert.Equal(t, 2, post.Upvotes)
	assert.Nil(t, post.RelevanceScore)
}

func TestFlexString(t *testing.T) {
	assert.Equal(t, FlexString("boom"), decodeCallback(t, `{"error":"boom"}`).Error)
	assert.Equal(t, FlexString(""), decodeCallback(t, `{"error":false}`).Error)
	assert.Equal(t, FlexString(""), decodeCallback(t, `{"error":null}`).Error)
	assert.Equal(t, FlexString(`{"code":500}`), decodeCallback(t, `{"error":{"code":500}}`).Error)
}

func TestFirstWebsiteData(t *testing.T) {
	cb := decodeCallback(t, `{"websiteData":[{"name":"Acme"},{"name":"Other"}]}`)
	data, ok := cb.FirstWebsiteData()
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"Acme"}`, string(data))

	for _, body := range []string{`{"websiteData":[]}`, `{"websiteData":{"name":"x"}}`, `{}`, `{"websiteData":[null]}`} {
		cb := decodeCallback(t, body)
		_, ok := cb.FirstWebsiteData()
		assert.False(t, ok, body)
	}
}

func TestDecodeCallbackForm(t *testing.T) {
	form := url.Values{}
	form.Set("searchId", "s1")
	form.Set("stage", "keywords_generated")
	form.Set("platform", "reddit")
	form.Set("keywords", `{"k1":"one","k2":"two"}`)
	form.Set("websiteData", `[{"name":"Acme"}]`)
	form.Set("passedPosts", "no_conversations_found")

	cb, err := DecodeCallbackForm(form)
	require.NoError(t, err)

	assert.Equal(t, "s1", cb.SearchID)
	assert.Equal(t, "keywords_generated", cb.Stage)
	assert.Equal(t, "reddit", cb.Platform)
	assert.Equal(t, []string{"one", "two"}, cb.Keywords.Values)
	assert.Equal(t, []string{"no_conversations_found"}, cb.PassedPosts.Markdown)
	data, ok := cb.FirstWebsiteData()
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"Acme"}`, string(data))
}

func TestParsePlatformName(t *testing.T) {
	name, ok := ParsePlatformName(" reddit ")
	assert.True(t, ok)
	assert.Equal(t, Reddit, name)

	_, ok = ParsePlatformName("myspace")
	assert.False(t, ok)
}

func TestNewSearchView_Defaults(t *testing.T) {
	view := NewSearchView(&Search{BaseModel: BaseModel{ID: "s1"}, Status: SearchPending})

	encoded, err := json.Marshal(view)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, []any{}, decoded["keywords"])
	assert.Nil(t, decoded["websiteInfo"])
	assert.Equal(t, []any{}, decoded["platforms"])
}
