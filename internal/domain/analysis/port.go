package analysis

import "context"

// Analyzer port: one adapter per modality. Returns a normalized finding or
// an *AnalyzerError; it never fabricates a finding from unparseable output.
type Analyzer interface {
	Modality() Modality
	Analyze(ctx context.Context, req *AnalysisRequest) (ModalityFinding, error)
}

// Repository port (interface untuk persistence of results)
// Writes are append-only; the engine itself never reads history back.
type Repository interface {
	Save(ctx context.Context, res *AnalysisResult) error
	Latest(ctx context.Context, tenant string, limit int) ([]*AnalysisResult, error)
}

// MediaStore port: short-lived staging for binary payloads so the inference
// collaborator can fetch them by URL. Remove is called as soon as the
// analyzer call returns; raw media never outlives one request.
type MediaStore interface {
	Stage(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}
