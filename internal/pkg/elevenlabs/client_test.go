package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talktojesus/api_server/config"
)

func TestClient_Synthesize(t *testing.T) {
	var got speechRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		assert.Equal(t, ContentTypeMPEG, r.Header.Get("Accept"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", ContentTypeMPEG)
		w.Write([]byte("ID3fakeaudio"))
	}))
	defer server.Close()

	c := NewClient(config.ElevenLabsConfig{APIKey: "secret", VoiceID: "voice-1", BaseURL: server.URL})

	audio, err := c.Synthesize(context.Background(), "Peace be with you.")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3fakeaudio"), audio)

	assert.Equal(t, defaultModel, got.ModelID)
	assert.True(t, strings.HasSuffix(got.Text, "Peace be with you."))
	assert.True(t, got.VoiceSettings.UseSpeakerBoost)
	assert.InDelta(t, 0.6, got.VoiceSettings.Style, 0.0001)
}

func TestClient_Synthesize_Errors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		c := NewClient(config.ElevenLabsConfig{})
		_, err := c.Synthesize(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("non 200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"invalid api key"}`))
		}))
		defer server.Close()

		c := NewClient(config.ElevenLabsConfig{APIKey: "bad", VoiceID: "v", BaseURL: server.URL})
		_, err := c.Synthesize(context.Background(), "hi")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

func TestWithExpressionTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"default tags", "Peace be with you.", "[warmly] [gentle] Peace be with you."},
		{"existing tag kept", "[reverently] Let us pray.", "[reverently] Let us pray."},
		{"existing tag any case", "[Gently] Rest now.", "[Gently] Rest now."},
		{"keyword match", "నా బిడ్డ", "[warmly] [caringly] నా బిడ్డ"},
		{"two rules", "ప్రేమ మరియు ధైర్యం", "[warmly] [caringly] [encouragingly] [hopefully] ప్రేమ మరియు ధైర్యం"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithExpressionTags(tt.in))
		})
	}
}
