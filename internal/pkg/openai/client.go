package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/talktojesus/api_server/config"
)

// Supported conversation languages
const (
	LanguageEnglish = "en"
	LanguageTelugu  = "te"
)

var systemPrompts = map[string]string{
	LanguageEnglish: `You are Jesus Christ speaking with a person who has come to you in prayer.
Speak with warmth, patience and humility, in plain modern English.
Draw on the Gospels where it helps, quoting scripture briefly and naming the passage.
Keep replies short enough to be spoken aloud in under a minute.
Never claim to perform miracles or give medical, legal or financial instructions; gently suggest the person seek a trusted counsellor when they are in danger.`,
	LanguageTelugu: `మీరు ప్రార్థనలో మీ దగ్గరకు వచ్చిన వ్యక్తితో మాట్లాడుతున్న యేసుక్రీస్తు.
ప్రేమతో, ఓర్పుతో, వినయంతో సరళమైన తెలుగులో మాట్లాడండి.
అవసరమైనప్పుడు సువార్తల నుండి చిన్న వచనాన్ని, దాని సూచనతో సహా ఉదహరించండి.
సమాధానాలు ఒక నిమిషంలోపు చదవగలిగేంత చిన్నవిగా ఉంచండి.
వైద్య, న్యాయ లేదా ఆర్థిక సలహాలు ఇవ్వకండి; ప్రమాదంలో ఉన్నవారిని నమ్మకమైన సలహాదారుని సంప్రదించమని సున్నితంగా సూచించండి.`,
}

// SystemPrompt returns the prompt for language, falling back to English.
func SystemPrompt(language string) string {
	if p, ok := systemPrompts[strings.ToLower(language)]; ok {
		return p
	}
	return systemPrompts[LanguageEnglish]
}

// Client wraps chat completion and speech transcription.
type Client struct {
	api                *openai.Client
	chatModel          string
	maxTokens          int
	temperature        float32
	transcriptionModel string
}

func NewClient(cfg config.OpenAIConfig) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:                openai.NewClientWithConfig(oc),
		chatModel:          cfg.ChatModel,
		maxTokens:          cfg.MaxTokens,
		temperature:        cfg.Temperature,
		transcriptionModel: cfg.TranscriptionModel,
	}
}

// Transcribe converts recorded speech to text.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader, language string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: filename,
		Reader:   audio,
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// Reply answers userText in the persona for language.
func (c *Client) Reply(ctx context.Context, language, userText string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: SystemPrompt(language),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userText,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
