package dto

// AskRequest carries a free-text question for the AI assistant.
type AskRequest struct {
	Question string `json:"question" validate:"required,min=2"`
}

// AskResponse carries the assistant's answer.
type AskResponse struct {
	Answer string `json:"answer"`
}

// CritiqueRequest asks the assistant to review an image of student work.
type CritiqueRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
	Prompt      string `json:"prompt"`
}

// CritiqueResponse carries the assistant's feedback on the image.
type CritiqueResponse struct {
	Feedback string `json:"feedback"`
}
