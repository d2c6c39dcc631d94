package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/talktojesus/api_server/internal/model/dto"
	"github.com/talktojesus/api_server/internal/pkg/metrics"
)

const defaultLanguage = "en"

var (
	ErrPaymentRequired     = errors.New("free conversations used up, subscription required")
	ErrTranscriptionFailed = errors.New("could not transcribe audio")
	ErrEmptyTranscription  = errors.New("no speech detected in audio")
	ErrReplyFailed         = errors.New("could not generate a reply")
)

// SpeechError means the reply was generated but could not be voiced.
type SpeechError struct {
	AssistantText string
	Err           error
}

func (e *SpeechError) Error() string {
	return fmt.Sprintf("speech synthesis: %v", e.Err)
}

func (e *SpeechError) Unwrap() error {
	return e.Err
}

type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader, language string) (string, error)
}

type Responder interface {
	Reply(ctx context.Context, language, userText string) (string, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioStore persists synthesized audio and returns a public URL.
type AudioStore interface {
	UploadAudio(userID string, data []byte, contentType string) (string, error)
}

// ConversationInput is one recorded user utterance.
type ConversationInput struct {
	Filename string
	Audio    io.Reader
	Language string
}

type ConversationService struct {
	entitlement *EntitlementService
	usage       *UsageService
	stt         Transcriber
	llm         Responder
	tts         SpeechSynthesizer
	store       AudioStore
	logger      *zap.Logger
}

// NewConversationService builds the voice pipeline. store may be nil, in
// which case audio is returned inline as a data URL.
func NewConversationService(
	entitlement *EntitlementService,
	usage *UsageService,
	stt Transcriber,
	llm Responder,
	tts SpeechSynthesizer,
	store AudioStore,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		entitlement: entitlement,
		usage:       usage,
		stt:         stt,
		llm:         llm,
		tts:         tts,
		store:       store,
		logger:      logger,
	}
}

// SendMessage runs one exchange: access check, speech to text, reply, text
// to speech, then usage accounting.
func (s *ConversationService) SendMessage(ctx context.Context, userID string, in ConversationInput) (*dto.SendMessageResponse, error) {
	if !s.entitlement.HasAccess(ctx, userID) {
		metrics.ConversationsTotal.WithLabelValues("payment_required").Inc()
		return nil, ErrPaymentRequired
	}

	language := strings.ToLower(strings.TrimSpace(in.Language))
	if language == "" {
		language = defaultLanguage
	}

	transcript, err := s.stt.Transcribe(ctx, in.Filename, in.Audio, language)
	if err != nil {
		s.logger.Warn("transcription failed", zap.String("user_id", userID), zap.Error(err))
		metrics.ConversationsTotal.WithLabelValues("transcription_failed").Inc()
		return nil, ErrTranscriptionFailed
	}
	if strings.TrimSpace(transcript) == "" {
		metrics.ConversationsTotal.WithLabelValues("empty_transcription").Inc()
		return nil, ErrEmptyTranscription
	}

	reply, err := s.llm.Reply(ctx, language, transcript)
	if err != nil {
		s.logger.Error("reply generation failed", zap.String("user_id", userID), zap.Error(err))
		metrics.ConversationsTotal.WithLabelValues("reply_failed").Inc()
		return nil, ErrReplyFailed
	}

	audio, err := s.tts.Synthesize(ctx, reply)
	if err != nil {
		s.logger.Error("speech synthesis failed", zap.String("user_id", userID), zap.Error(err))
		metrics.ConversationsTotal.WithLabelValues("speech_failed").Inc()
		return nil, &SpeechError{AssistantText: reply, Err: err}
	}

	resp := &dto.SendMessageResponse{
		Success:       true,
		UserMessage:   transcript,
		AssistantText: reply,
	}
	s.attachAudio(resp, userID, audio)

	count, err := s.usage.RecordUsage(ctx, userID)
	if err != nil {
		metrics.ConversationsTotal.WithLabelValues("usage_failed").Inc()
		return nil, err
	}
	resp.ConversationCount = count

	metrics.ConversationsTotal.WithLabelValues("ok").Inc()
	return resp, nil
}

// attachAudio uploads when a store is configured and falls back to an inline data URL.
func (s *ConversationService) attachAudio(resp *dto.SendMessageResponse, userID string, audio []byte) {
	if s.store != nil {
		url, err := s.store.UploadAudio(userID, audio, "audio/mpeg")
		if err == nil {
			resp.AssistantAudioURL = url
			return
		}
		s.logger.Warn("audio upload failed, returning inline audio", zap.String("user_id", userID), zap.Error(err))
	}
	resp.AssistantAudio = "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio)
}
