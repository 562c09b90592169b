package models

// Queue message shapes for serve mode. GradeRequest arrives on the
// request queue, GradeReport is published in response.

type GradeRequest struct {
	Id     string `json:"id"`
	Branch string `json:"branch"`
}

type OutcomeReport struct {
	Assignment string  `json:"assignment"`
	Case       int     `json:"case"`
	CaseName   string  `json:"case_name"`
	Verdict    Verdict `json:"verdict"`
	Stderr     string  `json:"stderr,omitempty"`
	// milliseconds
	ExecutionTime int64 `json:"execution_time"`
}

type FailureReport struct {
	Assignment string        `json:"assignment"`
	Language   string        `json:"language"`
	Reason     FailureReason `json:"reason"`
	Detail     string        `json:"detail,omitempty"`
}

type GradeReport struct {
	Id          string          `json:"id"`
	Branch      string          `json:"branch"`
	Participant string          `json:"participant,omitempty"`
	Found       bool            `json:"found"`
	Passed      bool            `json:"passed"`
	Outcomes    []OutcomeReport `json:"outcomes"`
	Failures    []FailureReport `json:"failures,omitempty"`
	Error       string          `json:"error,omitempty"`
}
