package dto

// SendMessageResponse one voice exchange
type SendMessageResponse struct {
	Success           bool   `json:"success"`
	UserMessage       string `json:"user_message"`
	AssistantText     string `json:"assistant_text"`
	AssistantAudio    string `json:"assistant_audio,omitempty"`
	AssistantAudioURL string `json:"assistant_audio_url,omitempty"`
	ConversationCount int    `json:"conversation_count"`
}
