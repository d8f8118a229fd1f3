package models

// QuizClaim records a prize claim submitted from the site quiz.
type QuizClaim struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Prize string `json:"prize,omitempty"`
	Score int    `json:"score,omitempty"`
	Date  string `json:"date"`
}
