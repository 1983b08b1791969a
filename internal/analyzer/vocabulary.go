package analyzer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary is a versioned list of correction terms. A user prompt that
// contains any term, case-insensitively, is read as asking for a fix.
type Vocabulary struct {
	Version string   `yaml:"version" json:"version"`
	Terms   []string `yaml:"terms" json:"terms"`
}

// DefaultVocabulary holds English and Chinese correction terms.
//
// Matching is by substring, so it has known false positives ("not a bug"
// matches "bug", "change the title" matches "change") and false negatives
// (a correction phrased without any term). Callers that know the answer
// should pass an override to ClassifyCompletion instead.
var DefaultVocabulary = Vocabulary{
	Version: "v1",
	Terms: []string{
		// en
		"fix",
		"bug",
		"error",
		"wrong",
		"change",
		"revert",
		"broken",
		"doesn't work",
		"does not work",
		"not working",
		// zh
		"修改",
		"错误",
		"改",
		"不对",
		"问题",
		"失败",
	},
}

var errEmptyVocabulary = errors.New("vocabulary has no terms")

// Validate rejects vocabularies without a version or without terms.
func (v Vocabulary) Validate() error {
	if strings.TrimSpace(v.Version) == "" {
		return errors.New("vocabulary has no version")
	}
	for _, t := range v.Terms {
		if strings.TrimSpace(t) != "" {
			return nil
		}
	}
	return errEmptyVocabulary
}

// Match returns the first term found in text.
func (v Vocabulary) Match(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, term := range v.Terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t != "" && strings.Contains(lower, t) {
			return term, true
		}
	}
	return "", false
}

// LoadVocabulary reads a vocabulary from a YAML file of the form
//
//	version: team-2026-03
//	terms: [fix, regression, 修复]
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("reading vocabulary: %w", err)
	}
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parsing vocabulary %s: %w", path, err)
	}
	if err := v.Validate(); err != nil {
		return Vocabulary{}, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, nil
}
