package config

// #region imports
import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// #endregion

//go:embed defaults.yaml
var defaultsYAML []byte

// #region types

// Config is the full static + runtime configuration of the assistant.
type Config struct {
	Refine       Refine         `yaml:"refine"`
	Scoring      Scoring        `yaml:"scoring"`
	Dictionary   Dictionary     `yaml:"dictionary"`
	DefaultStyle string         `yaml:"default_style"`
	Styles       []StyleSpec    `yaml:"styles"`
	Generation   Generation     `yaml:"generation"`
	Audiences    []AudienceSpec `yaml:"audiences"`
	Preference   Preference     `yaml:"preference"`
	Marketing    Marketing      `yaml:"marketing"`
	Collaborator Collaborator   `yaml:"collaborator"`
	Storage      Storage        `yaml:"storage"`
	Server       Server         `yaml:"server"`
	Log          Log            `yaml:"log"`
}

// Refine holds the acceptance policy of the refinement loop.
type Refine struct {
	AcceptThreshold float64 `yaml:"accept_threshold"`
	KeywordLimit    int     `yaml:"keyword_limit"`
}

// Scoring holds the lexicons and diagnostic floors of the scoring engine.
type Scoring struct {
	UrgencyWords  []string `yaml:"urgency_words"`
	EmojiSet      []string `yaml:"emoji_set"`
	BracketSet    []string `yaml:"bracket_set"`
	CoverageFloor float64  `yaml:"coverage_floor"`
	LengthFloor   float64  `yaml:"length_floor"`
}

// Dictionary holds the attribute extraction tables.
type Dictionary struct {
	PriceTiers []float64    `yaml:"price_tiers"`
	Categories []NamedTerms `yaml:"categories"`
	Colors     []string     `yaml:"colors"`
	Seasons    []NamedTerms `yaml:"seasons"`
	Features   []string     `yaml:"features"`
	Stopwords  []string     `yaml:"stopwords"`
}

// NamedTerms maps a canonical name to the surface terms that select it.
type NamedTerms struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// StyleSpec is one row of the per-style fragment table.
type StyleSpec struct {
	Name      string   `yaml:"name"`
	Rule      string   `yaml:"rule"` // burst | minimal | ceremonial
	Prefixes  []string `yaml:"prefixes"`
	Modifiers []string `yaml:"modifiers"`
	Suffixes  []string `yaml:"suffixes"`
}

// Generation holds deterministic-generation defaults.
type Generation struct {
	MaxTitleRunes  int    `yaml:"max_title_runes"`
	DefaultProduct string `yaml:"default_product"`
	DefaultFeature string `yaml:"default_feature"`
	FeatureLimit   int    `yaml:"feature_limit"`
}

// AudienceSpec is one row of the audience profile table.
type AudienceSpec struct {
	Tag              string   `yaml:"tag"`
	Aliases          []string `yaml:"aliases"`
	AgeRange         string   `yaml:"age_range"`
	Traits           string   `yaml:"traits"`
	Tone             string   `yaml:"tone"`
	Vocabulary       []string `yaml:"vocabulary"`
	Motivation       string   `yaml:"motivation"`
	PriceSensitivity string   `yaml:"price_sensitivity"`
}

// Preference holds the preference memory window and sentiment lexicons.
type Preference struct {
	Window          int      `yaml:"window"`
	TopN            int      `yaml:"top_n"`
	PositiveMarkers []string `yaml:"positive_markers"`
	NegativeMarkers []string `yaml:"negative_markers"`
}

// Marketing holds the strategy suggestion tables.
type Marketing struct {
	DefaultCategory  string             `yaml:"default_category"`
	DefaultBudget    string             `yaml:"default_budget"`
	FallbackAudience string             `yaml:"fallback_audience"`
	Strategies       []CategoryStrategy `yaml:"strategies"`
	Budgets          map[string]string  `yaml:"budgets"`
}

// CategoryStrategy maps audience tags to strategy text for one category.
type CategoryStrategy struct {
	Category  string            `yaml:"category"`
	Audiences map[string]string `yaml:"audiences"`
}

// Collaborator selects and tunes the optional text-generation collaborator.
type Collaborator struct {
	Kind    string        `yaml:"kind"` // none | grpc | gemini
	Addr    string        `yaml:"addr"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"-"`
	Timeout time.Duration `yaml:"timeout"`
}

// Storage configures the SQLite database.
type Storage struct {
	Path           string `yaml:"path"`
	RetentionTurns int    `yaml:"retention_turns"` // 0 = unbounded
}

// Server configures the HTTP surface.
type Server struct {
	Addr           string  `yaml:"addr"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// Log configures zerolog output.
type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// #endregion types

// #region load

// Default returns the embedded defaults. It panics only if the embedded
// YAML is malformed, which the package tests guard against.
func Default() Config {
	cfg, err := Parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Parse decodes a YAML document into a Config.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Load returns the defaults, overlaid with the YAML file named by
// MERCHANT_CONFIG (if set) and then with environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("MERCHANT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	ApplyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides runtime knobs from environment variables.
func ApplyEnv(cfg *Config) {
	if v, ok := envFloat("ACCEPT_THRESHOLD"); ok {
		cfg.Refine.AcceptThreshold = v
	}
	if v, ok := envInt("PREFERENCE_WINDOW"); ok {
		cfg.Preference.Window = v
	}
	if v, ok := envInt("RETENTION_TURNS"); ok {
		cfg.Storage.RetentionTurns = v
	}
	cfg.Storage.Path = envOr("MERCHANT_DB", cfg.Storage.Path)
	cfg.Server.Addr = envOr("MERCHANT_ADDR", cfg.Server.Addr)
	if v, ok := envFloat("RATE_LIMIT_RPS"); ok {
		cfg.Server.RateLimitRPS = v
	}
	if v, ok := envInt("RATE_LIMIT_BURST"); ok {
		cfg.Server.RateLimitBurst = v
	}
	cfg.Collaborator.Kind = envOr("COLLAB_KIND", cfg.Collaborator.Kind)
	cfg.Collaborator.Addr = envOr("COLLAB_ADDR", cfg.Collaborator.Addr)
	cfg.Collaborator.Model = envOr("GEMINI_MODEL", cfg.Collaborator.Model)
	cfg.Collaborator.APIKey = envOr("GEMINI_API_KEY", cfg.Collaborator.APIKey)
	if v := os.Getenv("COLLAB_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Collaborator.Timeout = d
		}
	}
	cfg.Log.Level = envOr("LOG_LEVEL", cfg.Log.Level)
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		cfg.Log.Pretty = v == "true" || v == "1"
	}
}

// #endregion load

// #region validate

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Refine.AcceptThreshold < 0 || c.Refine.AcceptThreshold > 1 {
		return fmt.Errorf("accept threshold must be in [0,1]")
	}
	if c.Refine.KeywordLimit < 1 {
		return fmt.Errorf("keyword limit must be >= 1")
	}
	if c.Preference.Window < 1 {
		return fmt.Errorf("preference window must be >= 1")
	}
	if c.Preference.TopN < 1 {
		return fmt.Errorf("preference top_n must be >= 1")
	}
	if c.Storage.RetentionTurns < 0 {
		return fmt.Errorf("retention turns must be >= 0")
	}
	if len(c.Styles) == 0 {
		return fmt.Errorf("at least one style is required")
	}
	if _, ok := c.Style(c.DefaultStyle); !ok {
		return fmt.Errorf("default style %q is not defined", c.DefaultStyle)
	}
	if len(c.Dictionary.PriceTiers) != 4 {
		return fmt.Errorf("price tiers need exactly 4 thresholds, got %d", len(c.Dictionary.PriceTiers))
	}
	for i := 1; i < len(c.Dictionary.PriceTiers); i++ {
		if c.Dictionary.PriceTiers[i] <= c.Dictionary.PriceTiers[i-1] {
			return fmt.Errorf("price tiers must be strictly increasing")
		}
	}
	switch c.Collaborator.Kind {
	case "", "none", "grpc", "gemini":
	default:
		return fmt.Errorf("unknown collaborator kind %q", c.Collaborator.Kind)
	}
	if c.Collaborator.Timeout <= 0 {
		return fmt.Errorf("collaborator timeout must be > 0")
	}
	if c.Generation.MaxTitleRunes < 10 {
		return fmt.Errorf("max title runes must be >= 10")
	}
	return nil
}

// #endregion validate

// #region lookups

// Style returns the fragment row for name.
func (c Config) Style(name string) (StyleSpec, bool) {
	for _, s := range c.Styles {
		if s.Name == name {
			return s, true
		}
	}
	return StyleSpec{}, false
}

// StyleNames returns style names in table order.
func (c Config) StyleNames() []string {
	out := make([]string, 0, len(c.Styles))
	for _, s := range c.Styles {
		out = append(out, s.Name)
	}
	return out
}

// Vocabulary returns every dictionary term the engine knows about. It seeds
// the lexicon tokenizer so domain words survive segmentation intact.
func (c Config) Vocabulary() []string {
	var out []string
	for _, nt := range c.Dictionary.Categories {
		out = append(out, nt.Keywords...)
	}
	for _, nt := range c.Dictionary.Seasons {
		out = append(out, nt.Keywords...)
	}
	out = append(out, c.Dictionary.Colors...)
	out = append(out, c.Dictionary.Features...)
	out = append(out, c.Scoring.UrgencyWords...)
	for _, s := range c.Styles {
		out = append(out, s.Name)
		out = append(out, s.Modifiers...)
	}
	for _, a := range c.Audiences {
		out = append(out, a.Tag)
		out = append(out, a.Aliases...)
		out = append(out, a.Vocabulary...)
	}
	out = append(out, c.Preference.PositiveMarkers...)
	out = append(out, c.Preference.NegativeMarkers...)
	out = append(out, c.Dictionary.Stopwords...)
	return out
}

// #endregion lookups

// #region helpers
func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// #endregion helpers
