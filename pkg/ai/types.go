package ai

import "context"

// Assistant describes an AI model able to answer student questions and
// critique submitted work.
type Assistant interface {
	// Ask answers a free-text question in the context of the platform.
	Ask(ctx context.Context, question string) (string, error)
	// Critique reviews an image of student work and returns feedback.
	// The image is a raw base64 payload without a data URI prefix.
	Critique(ctx context.Context, imageBase64, prompt string) (string, error)
}
