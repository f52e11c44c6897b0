package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/taskbridge-api/internal/dto"
)

type stubAssistant struct {
	answer   string
	feedback string
	err      error
}

func (s stubAssistant) Ask(ctx context.Context, question string) (string, error) {
	return s.answer, s.err
}

func (s stubAssistant) Critique(ctx context.Context, imageBase64, prompt string) (string, error) {
	return s.feedback, s.err
}

func TestAssistAskHappyPath(t *testing.T) {
	svc := NewAssistService(stubAssistant{answer: "practice gesture drawing"}, time.Second, newTestValidator(), zerolog.Nop())

	response, err := svc.Ask(context.Background(), dto.AskRequest{Question: "how do I improve?"})
	require.NoError(t, err)
	require.Equal(t, "practice gesture drawing", response.Answer)
}

func TestAssistDisabledWithoutBackend(t *testing.T) {
	svc := NewAssistService(nil, time.Second, newTestValidator(), zerolog.Nop())

	_, err := svc.Ask(context.Background(), dto.AskRequest{Question: "anyone home?"})
	require.ErrorIs(t, err, ErrAssistantDisabled)
}

func TestAssistMapsUpstreamFailures(t *testing.T) {
	svc := NewAssistService(stubAssistant{err: errors.New("rate limited")}, time.Second, newTestValidator(), zerolog.Nop())

	_, err := svc.Ask(context.Background(), dto.AskRequest{Question: "still there?"})
	require.ErrorIs(t, err, ErrAssistantUnavailable)

	_, err = svc.Critique(context.Background(), dto.CritiqueRequest{ImageBase64: gifPayload})
	require.ErrorIs(t, err, ErrAssistantUnavailable)
}

// base64 of a GIF header, enough for content sniffing.
const gifPayload = "R0lGODlh"

func TestCritiqueRejectsNonImagePayloads(t *testing.T) {
	svc := NewAssistService(stubAssistant{feedback: "unused"}, time.Second, newTestValidator(), zerolog.Nop())

	_, err := svc.Critique(context.Background(), dto.CritiqueRequest{ImageBase64: "aGVsbG8="})
	require.ErrorIs(t, err, ErrNotAnImage)

	_, err = svc.Critique(context.Background(), dto.CritiqueRequest{ImageBase64: "not base64!!"})
	require.ErrorIs(t, err, ErrNotAnImage)

	feedback, err := svc.Critique(context.Background(), dto.CritiqueRequest{ImageBase64: gifPayload})
	require.NoError(t, err)
	require.Equal(t, "unused", feedback.Feedback)
}

func TestAssistValidatesInput(t *testing.T) {
	svc := NewAssistService(stubAssistant{}, time.Second, newTestValidator(), zerolog.Nop())

	_, err := svc.Ask(context.Background(), dto.AskRequest{Question: ""})
	require.Error(t, err)

	_, err = svc.Critique(context.Background(), dto.CritiqueRequest{})
	require.Error(t, err)
}
