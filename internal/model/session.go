package model

type Status string

const (
	StatusQueued       Status = "queued"
	StatusIngesting    Status = "ingesting"
	StatusScoring      Status = "scoring"
	StatusSynthesizing Status = "synthesizing"
	StatusComplete     Status = "complete"
	StatusError        Status = "error"
	StatusCancelled    Status = "cancelled"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusError, StatusCancelled:
		return true
	}
	return false
}

type ErrorKind string

const (
	ErrorKindIngestion ErrorKind = "IngestionError"
	ErrorKindRetrieval ErrorKind = "RetrievalError"
	ErrorKindScorer    ErrorKind = "ScorerError"
	ErrorKindSynthesis ErrorKind = "SynthesisError"
	ErrorKindInternal  ErrorKind = "InternalError"
)

type StageError struct {
	Stage     Status    `json:"stage"`
	Kind      ErrorKind `json:"kind"`
	Dimension Dimension `json:"dimension,omitempty"`
	Document  string    `json:"document,omitempty"`
	Message   string    `json:"message"`
	Ctime     int64     `json:"ctime"`
}

type DocumentInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Size    int64  `json:"size"`
	Chars   int    `json:"chars"`
	Pages   int    `json:"pages"`
	Chunks  int    `json:"chunks"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

type Session struct {
	ID               string            `json:"id"`
	OrganisationName string            `json:"organisation_name"`
	Context          string            `json:"context"`
	Status           Status            `json:"status"`
	ProgressPct      int               `json:"progress_pct"`
	CurrentStep      string            `json:"current_step"`
	FailedStep       string            `json:"failed_step,omitempty"`
	Partial          bool              `json:"partial"`
	Errors           []StageError      `json:"errors"`
	Documents        []DocumentInfo    `json:"documents"`
	Report           *AssessmentReport `json:"report,omitempty"`
	Ctime            int64             `json:"ctime"`
	Mtime            int64             `json:"mtime"`
}

// Clone returns a deep copy so store readers never share slices with the
// running pipeline.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Errors = append([]StageError(nil), s.Errors...)
	out.Documents = append([]DocumentInfo(nil), s.Documents...)
	if s.Report != nil {
		report := *s.Report
		out.Report = &report
	}
	return &out
}
