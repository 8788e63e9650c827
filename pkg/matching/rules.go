package matching

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Rules holds the threshold configuration for a deployment. The defaults
// coincide for the match and confirm thresholds, which makes fuzzy matches
// always Confirmed; a deployment may separate them via the rules file.
type Rules struct {
	// MatchThreshold accepts a fuzzy candidate (0-105 scale).
	MatchThreshold int `yaml:"match_threshold" json:"match_threshold"`
	// ConsiderationThreshold gates which candidates enter best-candidate
	// comparison at all.
	ConsiderationThreshold int `yaml:"consideration_threshold" json:"consideration_threshold"`
	// ConfirmThreshold separates Confirmed from Human Review for fuzzy matches.
	ConfirmThreshold int `yaml:"confirm_threshold" json:"confirm_threshold"`
	// EmbeddingThreshold accepts a semantic candidate (cosine scale).
	EmbeddingThreshold float64 `yaml:"embedding_threshold" json:"embedding_threshold"`
	// EmbeddingConfirmThreshold separates Confirmed from Human Review for
	// semantic matches.
	EmbeddingConfirmThreshold float64 `yaml:"embedding_confirm_threshold" json:"embedding_confirm_threshold"`
}

func DefaultRules() Rules {
	return Rules{
		MatchThreshold:            95,
		ConsiderationThreshold:    90,
		ConfirmThreshold:          95,
		EmbeddingThreshold:        0.85,
		EmbeddingConfirmThreshold: 0.95,
	}
}

// LoadRules reads threshold overrides from a YAML file. An empty path yields
// the defaults; fields absent from the file keep their default values.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return rules, err
	}
	if err := yaml.Unmarshal(content, &rules); err != nil {
		return Rules{}, fmt.Errorf("invalid matching rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

func (r Rules) Validate() error {
	if r.MatchThreshold <= 0 || r.MatchThreshold > 105 {
		return fmt.Errorf("match_threshold out of range: %d", r.MatchThreshold)
	}
	if r.ConsiderationThreshold < 0 || r.ConsiderationThreshold > r.MatchThreshold {
		return fmt.Errorf("consideration_threshold must be in 0..match_threshold, got %d", r.ConsiderationThreshold)
	}
	if r.EmbeddingThreshold <= 0 || r.EmbeddingThreshold > 1 {
		return fmt.Errorf("embedding_threshold out of range: %v", r.EmbeddingThreshold)
	}
	if r.EmbeddingConfirmThreshold < r.EmbeddingThreshold || r.EmbeddingConfirmThreshold > 1 {
		return fmt.Errorf("embedding_confirm_threshold out of range: %v", r.EmbeddingConfirmThreshold)
	}
	return nil
}
