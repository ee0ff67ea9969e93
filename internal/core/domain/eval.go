package domain

// EvalQuestion is one entry of a document's questions file.
type EvalQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Type     string `json:"type,omitempty"`
	Location string `json:"location,omitempty"`
}

// EvalResult records the system's answer to an evaluation question.
type EvalResult struct {
	DocID     string     `json:"doc_id"`
	Question  string     `json:"question"`
	Type      string     `json:"type,omitempty"`
	Expected  string     `json:"expected"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Contexts  []string   `json:"contexts,omitempty"`
	Grounded  bool       `json:"grounded"`
	Error     string     `json:"error,omitempty"`
}
