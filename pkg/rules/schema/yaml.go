package schema

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlCategory is the document shape before compilation.
type yamlCategory struct {
	CategoryID         string            `yaml:"category_id"`
	Description        string            `yaml:"description"`
	Priority           int               `yaml:"priority"`
	Indicators         []yamlIndicator   `yaml:"indicators"`
	Routing            []yamlRoutingRule `yaml:"routing"`
	EvaluatorWhitelist []string          `yaml:"evaluator_whitelist"`
	FieldAccess        []string          `yaml:"field_access"`
}

type yamlIndicator struct {
	IndicatorID        string        `yaml:"indicator_id"`
	Description        string        `yaml:"description"`
	IndicatorCondition any           `yaml:"indicator_condition"`
	Triggers           []yamlTrigger `yaml:"triggers"`
}

type yamlTrigger struct {
	TriggerID   string `yaml:"trigger_id"`
	Description string `yaml:"description"`
	Condition   any    `yaml:"condition"`
}

type yamlRoutingRule struct {
	TriggerID           string           `yaml:"trigger_id"`
	Severity            string           `yaml:"severity"`
	Actions             []string         `yaml:"actions"`
	HumanReviewRequired bool             `yaml:"human_review_required"`
	Suppression         *yamlSuppression `yaml:"suppression"`
}

// Pointers distinguish unset from zero so defaults can apply.
type yamlSuppression struct {
	CooldownMinutes *int  `yaml:"cooldown_minutes"`
	VersionAware    *bool `yaml:"version_aware"`
}

// decodeDocuments decodes every YAML document in data. JSON input is accepted as
// YAML. Empty documents are skipped.
func decodeDocuments(data []byte) ([]yamlCategory, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var docs []yamlCategory
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(node.Content) == 0 {
			continue
		}

		var doc yamlCategory
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
