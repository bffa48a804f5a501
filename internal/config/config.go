package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aulianza/mindsignal/internal/domain/analysis"
	"github.com/aulianza/mindsignal/internal/domain/viewer"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey      string `yaml:"apiKey"`
		Model       string `yaml:"model"`
		VisionModel string `yaml:"visionModel"`
	} `yaml:"openai"`

	// Auth maps API keys to a viewer. One key per session/integration.
	Auth struct {
		Keys []APIKey `yaml:"keys"`
	} `yaml:"auth"`

	Logging struct {
		File string `yaml:"file"`
		Prod bool   `yaml:"prod"`
	} `yaml:"logging"`

	Policy  Policy         `yaml:"policy"`
	Catalog []CatalogEntry `yaml:"catalog"`
}

type APIKey struct {
	Key     string `yaml:"key"`
	Tenant  string `yaml:"tenant"`
	Role    string `yaml:"role"`
	Subject string `yaml:"subject"`
}

// Duration accepts yaml duration strings ("30s") as well as integer
// nanoseconds; yaml.v3 has no native time.Duration decoding.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		td, perr := time.ParseDuration(s)
		if perr != nil {
			return perr
		}
		*d = Duration(td)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

func (d Duration) String() string { return time.Duration(d).String() }

// Std converts back to the stdlib type at call sites.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Policy holds the numeric knobs of the pipeline. All values are clinical
// calibration, not engineering: the defaults below are placeholders and are
// expected to be overridden per deployment.
type Policy struct {
	// Per-modality reliability priors in [0,1]; text/voice trusted more
	// than the projective modalities.
	ReliabilityPriors map[analysis.Modality]float64 `yaml:"reliabilityPriors"`

	// Per-modality analyzer timeouts.
	AnalyzerTimeouts map[analysis.Modality]Duration `yaml:"analyzerTimeouts"`

	// OverallDeadline bounds the whole fan-out; must exceed the slowest
	// analyzer timeout so every modality gets a chance to attempt.
	OverallDeadline Duration `yaml:"overallDeadline"`

	// Fusion knobs.
	TagMinWeight       float64 `yaml:"tagMinWeight"`       // aggregate-weight noise floor
	HighConfidence     float64 `yaml:"highConfidence"`     // per-finding conflict threshold
	ConflictDamping    float64 `yaml:"conflictDamping"`    // factor applied to fused valence on conflict
	MinFindings        int     `yaml:"minFindings"`        // below this (but >0) the result is low-confidence
	LowConfidenceFloor float64 `yaml:"lowConfidenceFloor"` // overall confidence below this is low-confidence

	// Risk thresholds.
	ValenceLow      float64  `yaml:"valenceLow"`
	ArousalHigh     float64  `yaml:"arousalHigh"`
	ConfidenceFloor float64  `yaml:"confidenceFloor"` // minimum usable confidence for a High verdict
	CrisisTags      []string `yaml:"crisisTags"`
}

// CatalogEntry is one content item of the static recommendation catalog.
// Insertion order is the deterministic tie-break.
type CatalogEntry struct {
	ContentID string   `yaml:"contentId"`
	Tags      []string `yaml:"tags"`
	Tiers     []string `yaml:"tiers"`
	Relevance float64  `yaml:"relevance"`
}

// Load baca file config.yaml; policy/catalog fields left empty fall back to
// the documented defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Seed defaults before decoding: yaml only touches keys that are
	// present, so an explicit zero in the file survives while absent
	// knobs keep their default. A post-decode zero check could not
	// tell those two apart.
	cfg := Config{
		Policy:  DefaultPolicy(),
		Catalog: DefaultCatalog(),
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

// Viewers builds the API-key lookup used by the auth middleware.
func (c *Config) Viewers() map[string]viewer.Context {
	out := make(map[string]viewer.Context, len(c.Auth.Keys))
	for _, k := range c.Auth.Keys {
		out[k.Key] = viewer.Context{
			Role:      viewer.Role(k.Role),
			SubjectID: k.Subject,
			TenantID:  k.Tenant,
		}
	}
	return out
}

// DefaultPolicy returns placeholder calibration values. These are not
// clinically validated; deployments must supply their own.
func DefaultPolicy() Policy {
	return Policy{
		ReliabilityPriors: map[analysis.Modality]float64{
			analysis.ModalityText:      1.0,
			analysis.ModalityVoice:     0.9,
			analysis.ModalityFacial:    0.75,
			analysis.ModalityNarrative: 0.6,
			analysis.ModalityDrawing:   0.5,
		},
		AnalyzerTimeouts: map[analysis.Modality]Duration{
			analysis.ModalityText:      Duration(8 * time.Second),
			analysis.ModalityVoice:     Duration(20 * time.Second),
			analysis.ModalityFacial:    Duration(15 * time.Second),
			analysis.ModalityNarrative: Duration(10 * time.Second),
			analysis.ModalityDrawing:   Duration(15 * time.Second),
		},
		OverallDeadline:    Duration(30 * time.Second),
		TagMinWeight:       0.3,
		HighConfidence:     0.75,
		ConflictDamping:    0.35,
		MinFindings:        2,
		LowConfidenceFloor: 0.4,
		ValenceLow:         -0.4,
		ArousalHigh:        0.65,
		ConfidenceFloor:    0.45,
		CrisisTags: []string{
			"self-harm",
			"suicidal-ideation",
			"crisis",
			"abuse-disclosure",
		},
	}
}

// DefaultCatalog is a minimal seed catalog; real deployments replace it.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{ContentID: "crisis-hotline-card", Tags: []string{"self-harm", "suicidal-ideation", "crisis"}, Tiers: []string{"critical"}, Relevance: 1.0},
		{ContentID: "counselor-booking", Tiers: []string{"high", "critical"}, Relevance: 0.9},
		{ContentID: "grounding-exercise", Tags: []string{"anxiety", "panic", "conflicting-signals"}, Tiers: []string{"moderate", "high"}, Relevance: 0.8},
		{ContentID: "breathing-554", Tags: []string{"anxiety", "stress"}, Relevance: 0.7},
		{ContentID: "psychoeducation-mood", Tags: []string{"low-confidence"}, Tiers: []string{"low", "moderate"}, Relevance: 0.6},
		{ContentID: "sleep-hygiene", Tags: []string{"fatigue", "insomnia"}, Relevance: 0.55},
		{ContentID: "journaling-prompt", Tiers: []string{"low"}, Relevance: 0.4},
	}
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
}

func (c *Config) validate() error {
	if c.Database.Driver != "mysql" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}
	slowest := Duration(0)
	for _, d := range c.Policy.AnalyzerTimeouts {
		if d > slowest {
			slowest = d
		}
	}
	if c.Policy.OverallDeadline <= slowest {
		return fmt.Errorf("policy.overallDeadline (%s) must exceed the slowest analyzer timeout (%s)",
			c.Policy.OverallDeadline, slowest)
	}
	for _, k := range c.Auth.Keys {
		switch viewer.Role(k.Role) {
		case viewer.RoleStudent, viewer.RolePeer, viewer.RoleProfessional, viewer.RoleAdmin:
		default:
			return fmt.Errorf("unknown viewer role in auth.keys: %s", k.Role)
		}
	}
	return nil
}
