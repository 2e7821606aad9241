package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"gopkg.in/yaml.v3"
)

// CategoryRule maps description keywords to a category.
type CategoryRule struct {
	Category  string           `yaml:"category"`
	Keywords  []string         `yaml:"keywords"`
	Direction domain.Direction `yaml:"direction,omitempty"` // Empty matches both
}

type categoryRulesFile struct {
	Rules []CategoryRule `yaml:"rules"`
}

// RuleCategorizer suggests categories by keyword match, first rule wins.
type RuleCategorizer struct {
	rules []CategoryRule
}

var _ portssvc.Categorizer = (*RuleCategorizer)(nil)

// NewRuleCategorizer lowercases the keywords of rules.
func NewRuleCategorizer(rules []CategoryRule) *RuleCategorizer {
	out := make([]CategoryRule, 0, len(rules))
	for _, r := range rules {
		if r.Category == "" || len(r.Keywords) == 0 {
			continue
		}
		kw := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		r.Keywords = kw
		out = append(out, r)
	}
	return &RuleCategorizer{rules: out}
}

// ParseCategoryRules reads a rules document:
//
//	rules:
//	  - category: Groceries
//	    keywords: [whole foods, trader joe]
func ParseCategoryRules(data []byte) ([]CategoryRule, error) {
	var f categoryRulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: could not parse category rules: %v", apperrors.ErrValidation, err)
	}
	for i, r := range f.Rules {
		if r.Direction != "" && !r.Direction.IsValid() {
			return nil, fmt.Errorf("%w: rule %d has unknown direction %q", apperrors.ErrValidation, i, r.Direction)
		}
	}
	return f.Rules, nil
}

// LoadRuleCategorizer builds a RuleCategorizer from a YAML file.
func LoadRuleCategorizer(path string) (*RuleCategorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read category rules file: %w", err)
	}
	rules, err := ParseCategoryRules(data)
	if err != nil {
		return nil, err
	}
	return NewRuleCategorizer(rules), nil
}

// Categories lists the distinct category names in rule order. A nil
// RuleCategorizer has none.
func (c *RuleCategorizer) Categories() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool, len(c.rules))
	var out []string
	for _, r := range c.rules {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	return out
}

// Suggest returns "" when no rule matches.
func (c *RuleCategorizer) Suggest(_ context.Context, txn domain.CanonicalTransaction) (string, error) {
	text := strings.ToLower(txn.Merchant + " " + txn.Description)
	for _, r := range c.rules {
		if r.Direction != "" && r.Direction != txn.Direction {
			continue
		}
		for _, k := range r.Keywords {
			if strings.Contains(text, k) {
				return r.Category, nil
			}
		}
	}
	return "", nil
}

// chainCategorizer asks each categorizer in turn until one suggests something.
type chainCategorizer struct {
	links []portssvc.Categorizer
}

// ChainCategorizers returns a categorizer that tries links in order. A failing
// link is skipped; the error is returned only if no link produced a suggestion.
func ChainCategorizers(links ...portssvc.Categorizer) portssvc.Categorizer {
	var kept []portssvc.Categorizer
	for _, l := range links {
		if l != nil {
			kept = append(kept, l)
		}
	}
	return &chainCategorizer{links: kept}
}

func (c *chainCategorizer) Suggest(ctx context.Context, txn domain.CanonicalTransaction) (string, error) {
	var firstErr error
	for _, l := range c.links {
		category, err := l.Suggest(ctx, txn)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if category != "" {
			return category, nil
		}
	}
	return "", firstErr
}
