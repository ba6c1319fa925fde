package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yumeadmin/pkg/yumetypes"
)

func TestNew_Defaults(t *testing.T) {
	client := New("http://example.com/", 0)
	assert.Equal(t, "http://example.com", client.BaseURL())
	assert.Equal(t, 30*time.Second, client.http.Timeout)
}

func TestGetConfig_MergesOntoDestination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/admin/config", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"aiModel":"gpt-x","aiMaxTokens":4096}`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	dst := yumetypes.DefaultAdminConfig()
	dst.AIBaseURL = "https://kept.example"

	err := client.GetConfig(context.Background(), &dst)
	require.NoError(t, err)
	assert.Equal(t, "gpt-x", dst.AIModel)
	assert.Equal(t, 4096, dst.AIMaxTokens)
	// Fields absent from the response keep their previous value.
	assert.Equal(t, "https://kept.example", dst.AIBaseURL)
	assert.Equal(t, 30, dst.AITimeout)
}

func TestUpdateConfig_SendsPayloadAndMergesResponse(t *testing.T) {
	var received ConfigUpdate
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"aiModel":"confirmed","effectivePrompt":"composed"}`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	dst := yumetypes.DefaultAdminConfig()
	err := client.UpdateConfig(context.Background(), ConfigUpdate{AIModel: "requested", AIKey: "sk-secret"}, &dst)
	require.NoError(t, err)

	assert.Equal(t, "requested", received.AIModel)
	assert.Equal(t, "sk-secret", received.AIKey)
	assert.Equal(t, "confirmed", dst.AIModel)
	assert.Equal(t, "composed", dst.EffectivePrompt)
}

func TestGetAIProfile_ReturnsNameAndPreservesAbsentFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/ai-profiles/fast", r.URL.Path)
		_, _ = w.Write([]byte(`{"name":"fast","aiModel":"small-model","aiTemperature":0.2}`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	dst := yumetypes.DefaultAdminConfig()
	dst.AIMaxTokens = 1234

	name, err := client.GetAIProfile(context.Background(), "fast", &dst)
	require.NoError(t, err)
	assert.Equal(t, "fast", name)
	assert.Equal(t, "small-model", dst.AIModel)
	assert.InDelta(t, 0.2, dst.AITemperature, 1e-9)
	assert.Equal(t, 1234, dst.AIMaxTokens)
}

func TestGetAIProfile_EscapesName(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"name":"a b"}`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	dst := yumetypes.DefaultAdminConfig()
	_, err := client.GetAIProfile(context.Background(), "a b", &dst)
	require.NoError(t, err)
	assert.Equal(t, "/api/admin/ai-profiles/a%20b", gotPath)
}

func TestListCharacters_NullBecomesEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	names, err := client.ListCharacters(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestGetCharacter_ReturnsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/characters/yume", r.URL.Path)
		_, _ = w.Write([]byte(`{"file":"yume.json","config":{"name":"Yume"}}`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	env, err := client.GetCharacter(context.Background(), "yume")
	require.NoError(t, err)
	assert.Equal(t, "yume.json", env.File)

	doc := yumetypes.NormalizeCharacterDocument(env.Config)
	assert.Equal(t, "Yume", doc.Name)
}

func TestUpdateCharacter_WrapsDocumentInConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body struct {
			Config yumetypes.CharacterDocument `json:"config"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Yume", body.Config.Name)
		_, _ = w.Write([]byte(`{"file":"yume.json","config":{"name":"Yume"}}`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	doc := yumetypes.DefaultCharacterDocument()
	doc.Name = "Yume"
	env, err := client.UpdateCharacter(context.Background(), "yume", doc)
	require.NoError(t, err)
	assert.Equal(t, "yume.json", env.File)
}

func TestCreateCharacter_SendsNameAndConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/admin/characters", r.URL.Path)
		var body struct {
			Name   string                      `json:"name"`
			Config yumetypes.CharacterDocument `json:"config"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "assistant_v2", body.Name)
		_, _ = w.Write([]byte(`{"file":"assistant_v2.json","config":{}}`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	env, err := client.CreateCharacter(context.Background(), "assistant_v2", yumetypes.DefaultCharacterDocument())
	require.NoError(t, err)
	assert.Equal(t, "assistant_v2.json", env.File)
}

func TestGetLogContent_CarriesCacheBusting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "bot.log", query.Get("file"))
		assert.Equal(t, "50", query.Get("lines"))
		assert.NotEmpty(t, query.Get("_ts"))
		assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
		_, _ = w.Write([]byte(`{"file":"bot.log","lines":50,"content":"line\n"}`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	content, err := client.GetLogContent(context.Background(), "bot.log", 50)
	require.NoError(t, err)
	assert.Equal(t, "bot.log", content.File)
	assert.Equal(t, "line\n", content.Content)
}

func TestStreamURL(t *testing.T) {
	client := New("http://example.com", time.Second)
	assert.Equal(t,
		"http://example.com/api/admin/logs/stream?file=bot.log&lines=100",
		client.StreamURL("bot.log", 100))
}

func TestDo_ErrorPayloadSurfacesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"file name contains invalid characters"}`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	_, err := client.ListLogFiles(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "file name contains invalid characters", apiErr.Message)
}

func TestDo_NonJSONErrorBodySurfacesRawText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	err := client.GetConfig(context.Background(), &yumetypes.AdminConfig{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestDo_EmptyErrorBodyFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	err := client.GetConfig(context.Background(), &yumetypes.AdminConfig{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "request failed", apiErr.Message)
}

func TestDo_TransportFailure(t *testing.T) {
	client := New("http://127.0.0.1:1", 200*time.Millisecond)
	err := client.GetConfig(context.Background(), &yumetypes.AdminConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not APIErrors")
}
