// Package gemini provides a grading engine implementation backed by
// Google's Gemini API.
package gemini

// ResponseSchema represents the expected structure of an evaluation
// returned by the Gemini API.
type ResponseSchema struct {
	// Score is the number of points awarded.
	Score int `json:"score"`

	// TotalScore is the maximum number of points attainable.
	TotalScore int `json:"total_score"`

	// Feedback is an optional free-text assessment of the answers.
	Feedback string `json:"feedback,omitempty"`

	// ExtractedText is the text recognized on the answer sheet.
	ExtractedText string `json:"extracted_text,omitempty"`
}
