package domain

// AnswerMode classifies the intent of a question and selects the
// assembly strategy for the final answer.
type AnswerMode string

const (
	ModeAssembly   AnswerMode = "assembly"
	ModeProcedure  AnswerMode = "procedure"
	ModeComparison AnswerMode = "comparison"
	ModeDefinition AnswerMode = "definition"
	ModeGeneric    AnswerMode = "sme"
)

// AskRequest carries the parameters of one orchestrated ask call.
// All fields except Question are optional; zero values select the
// documented defaults.
type AskRequest struct {
	Question     string `json:"question"`
	Strategy     string `json:"strategy,omitempty"`
	Beam         int    `json:"beam,omitempty"`
	ReturnTrace  *bool  `json:"return_trace,omitempty"`
	CitationsMax int    `json:"citations_max,omitempty"`
	ChunkTextMax int    `json:"chunk_text_max,omitempty"`
}

// Citation points at the evidence behind an answer, reduced to the
// minimal locator tuple.
type Citation struct {
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id,omitempty"`
	PageFrom   int    `json:"page_from,omitempty"`
	PageTo     int    `json:"page_to,omitempty"`
}

// AnswerMeta carries the calibration signals alongside the answer.
type AnswerMeta struct {
	AnswerMode      AnswerMode `json:"answer_mode"`
	Confidence      float64    `json:"confidence"`
	Diversity       float64    `json:"diversity"`
	LexicalFallback bool       `json:"lexical_fallback"`
	Expanded        bool       `json:"expanded"`
	Contradictions  []string   `json:"contradictions,omitempty"`
}

// TraceStep records one store call made while answering, for diagnostic
// callers.
type TraceStep struct {
	Step    int            `json:"step"`
	Call    map[string]any `json:"call"`
	Summary map[string]int `json:"result_summary"`
}

// AnswerPack is the orchestrator's output: answer text, bounded citation
// list, calibration metadata and an optional call trace.
type AnswerPack struct {
	Answer    string      `json:"answer"`
	Citations []Citation  `json:"citations"`
	Meta      AnswerMeta  `json:"meta"`
	Trace     []TraceStep `json:"trace,omitempty"`
}
