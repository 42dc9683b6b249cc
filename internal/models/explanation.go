package models

// SyntaxNode is one enclosing syntax element of a selection.
type SyntaxNode struct {
	Type      string `json:"type"`
	StartLine int    `json:"startLine"` // 1-indexed
	EndLine   int    `json:"endLine"`
}

// Explanation is the response of the explain-selection action.
// It echoes the selection and adds whatever structural context is available.
type Explanation struct {
	Selection string       `json:"selection"`
	Language  string       `json:"language"`
	Found     bool         `json:"found"`
	Lines     int          `json:"lines"`
	Context   []SyntaxNode `json:"context"`
	Message   string       `json:"message"`
}
