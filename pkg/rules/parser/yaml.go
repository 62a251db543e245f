package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"mercator-hq/beacon/pkg/rules/ast"
	rulesErrors "mercator-hq/beacon/pkg/rules/errors"
)

// ParseYAML decodes a single expression document and parses it.
func (p *Parser) ParseYAML(data []byte) (ast.Node, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &rulesErrors.Error{
			Type:       rulesErrors.ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Suggestion: "Check YAML syntax (indentation, colons, quotes)",
		}
	}
	return p.Parse(raw)
}
