package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"mercator-hq/beacon/pkg/rules/ast"
	rulesErrors "mercator-hq/beacon/pkg/rules/errors"
	"mercator-hq/beacon/pkg/rules/evaluators"
	"mercator-hq/beacon/pkg/rules/parser"
)

// LoaderConfig controls how categories are compiled.
type LoaderConfig struct {
	// MaxDepth is the maximum expression nesting depth (default: 5)
	MaxDepth int

	// Categories restricts loading to these category ids. Empty loads all.
	Categories []string
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{MaxDepth: parser.DefaultMaxDepth}
}

// Loader compiles category documents into validated schemas. A category with any
// configuration error is rejected as a whole.
type Loader struct {
	source   Source
	config   LoaderConfig
	parser   *parser.Parser
	registry *evaluators.Registry
	logger   *slog.Logger
}

// NewLoader creates a loader reading from source.
func NewLoader(source Source, config LoaderConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = parser.DefaultMaxDepth
	}

	return &Loader{
		source:   source,
		config:   config,
		parser:   parser.NewParser().WithMaxDepth(config.MaxDepth),
		registry: evaluators.NewRegistry(),
		logger:   logger.With("component", "schema.loader"),
	}
}

// Load returns the single category with the given id.
func (l *Loader) Load(categoryID string) (*CategorySchema, error) {
	schemas, err := l.LoadAll()

	for _, s := range schemas {
		if s.CategoryID == categoryID {
			return s, nil
		}
	}

	var errList *rulesErrors.ErrorList
	if errors.As(err, &errList) {
		own := rulesErrors.NewErrorList()
		for _, e := range errList.Errors {
			if e.Category == categoryID {
				own.Add(e)
			}
		}
		if own.HasErrors() {
			return nil, own
		}
	}

	notFound := fmt.Errorf("%w: %q", ErrCategoryNotFound, categoryID)
	if err != nil {
		return nil, errors.Join(notFound, err)
	}
	return nil, notFound
}

// LoadAll compiles every category in the source, in source order. Valid
// categories are returned even when others are rejected; the returned error
// then describes every rejected category. A source-level failure returns no
// schemas.
func (l *Loader) LoadAll() ([]*CategorySchema, error) {
	docs, err := l.source.Documents()
	if err != nil {
		return nil, err
	}

	var schemas []*CategorySchema
	all := rulesErrors.NewErrorList()
	seen := make(map[string]string)

	for _, doc := range docs {
		categories, err := decodeDocuments(doc.Data)
		if err != nil {
			all.Add(&rulesErrors.Error{
				Type:       rulesErrors.ErrorTypeSyntax,
				Source:     doc.Source,
				Message:    fmt.Sprintf("YAML parsing failed: %v", err),
				Suggestion: "Check YAML syntax (indentation, colons, quotes)",
			})
			l.logger.Error("Failed to parse rule file", "source", doc.Source, "error", err)
			continue
		}

		for _, yc := range categories {
			if !l.wanted(yc.CategoryID) {
				continue
			}

			if prev, dup := seen[yc.CategoryID]; dup && yc.CategoryID != "" {
				all.Add(&rulesErrors.Error{
					Type:     rulesErrors.ErrorTypeStructural,
					Category: yc.CategoryID,
					Source:   doc.Source,
					Message:  fmt.Sprintf("category already defined in %s", prev),
				})
				continue
			}

			if yc.CategoryID != "" {
				seen[yc.CategoryID] = doc.Source
			}

			schema, errs := l.compile(yc, doc.Source)
			if errs.HasErrors() {
				all.Merge(errs)
				l.logger.Error("Category rejected",
					"category", yc.CategoryID,
					"source", doc.Source,
					"errors", errs.Count(),
					"error", errs.Error(),
				)
				continue
			}

			schemas = append(schemas, schema)

			for _, w := range schema.FieldWarnings() {
				l.logger.Warn("Category references a field outside the access policy",
					"category", schema.CategoryID,
					"field", w.Field,
					"suggestion", w.Suggestion,
				)
			}
		}
	}

	l.logger.Debug("Categories loaded", "loaded", len(schemas), "rejected_errors", all.Count())
	return schemas, all.ToError()
}

// Validate compiles the source and reports every configuration error without
// returning schemas.
func (l *Loader) Validate() error {
	_, err := l.LoadAll()
	return err
}

func (l *Loader) wanted(categoryID string) bool {
	return len(l.config.Categories) == 0 || slices.Contains(l.config.Categories, categoryID)
}

// compile turns one decoded document into a schema, collecting every error.
func (l *Loader) compile(yc yamlCategory, source string) (*CategorySchema, *rulesErrors.ErrorList) {
	errs := rulesErrors.NewErrorList()

	if yc.CategoryID == "" {
		errs.AddError(rulesErrors.ErrorTypeStructural, "", "", "category_id is required")
	}

	schema := &CategorySchema{
		CategoryID:         yc.CategoryID,
		Description:        yc.Description,
		Priority:           yc.Priority,
		Indicators:         make([]*Indicator, 0, len(yc.Indicators)),
		Routing:            make([]*RoutingRule, 0, len(yc.Routing)),
		EvaluatorWhitelist: slices.Clone(yc.EvaluatorWhitelist),
		FieldAccess:        slices.Clone(yc.FieldAccess),
		Source:             source,
	}

	for _, name := range yc.EvaluatorWhitelist {
		if !l.registry.Has(name) {
			l.logger.Warn("evaluator_whitelist lists an unknown evaluator",
				"category", yc.CategoryID, "evaluator", name)
		}
	}

	indicatorIDs := make(map[string]bool)
	triggerIDs := make(map[string]bool)

	for i, yi := range yc.Indicators {
		rule := fmt.Sprintf("indicators[%d]", i)
		if yi.IndicatorID == "" {
			errs.AddError(rulesErrors.ErrorTypeStructural, "", rule, "indicator_id is required")
		} else {
			rule = fmt.Sprintf("indicator %q", yi.IndicatorID)
			if indicatorIDs[yi.IndicatorID] {
				errs.AddError(rulesErrors.ErrorTypeStructural, "", rule, "duplicate indicator_id")
			}
			indicatorIDs[yi.IndicatorID] = true
		}

		ind := &Indicator{
			IndicatorID: yi.IndicatorID,
			Description: yi.Description,
			Triggers:    make([]*Trigger, 0, len(yi.Triggers)),
		}
		if yi.IndicatorCondition != nil {
			ind.Condition = l.compileExpression(yi.IndicatorCondition, rule+" indicator_condition", errs)
		}

		for j, yt := range yi.Triggers {
			trgRule := fmt.Sprintf("%s triggers[%d]", rule, j)
			if yt.TriggerID == "" {
				errs.AddError(rulesErrors.ErrorTypeStructural, "", trgRule, "trigger_id is required")
			} else {
				trgRule = fmt.Sprintf("trigger %q", yt.TriggerID)
				if triggerIDs[yt.TriggerID] {
					errs.AddError(rulesErrors.ErrorTypeStructural, "", trgRule, "duplicate trigger_id within category")
				}
				triggerIDs[yt.TriggerID] = true
			}

			trg := &Trigger{TriggerID: yt.TriggerID, Description: yt.Description}
			if yt.Condition == nil {
				errs.AddError(rulesErrors.ErrorTypeStructural, "", trgRule, "condition is required")
			} else {
				trg.Condition = l.compileExpression(yt.Condition, trgRule+" condition", errs)
			}
			ind.Triggers = append(ind.Triggers, trg)
		}

		schema.Indicators = append(schema.Indicators, ind)
	}

	routed := make(map[string]bool)
	for k, yr := range yc.Routing {
		rule := fmt.Sprintf("routing[%d]", k)
		if yr.TriggerID == "" {
			errs.AddError(rulesErrors.ErrorTypeStructural, "", rule, "trigger_id is required")
			continue
		}
		rule = fmt.Sprintf("routing %q", yr.TriggerID)

		if !triggerIDs[yr.TriggerID] {
			errs.AddError(rulesErrors.ErrorTypeStructural, "", rule, "routing rule references unknown trigger")
		}
		if routed[yr.TriggerID] {
			errs.AddError(rulesErrors.ErrorTypeStructural, "", rule, "duplicate routing rule for trigger")
		}
		routed[yr.TriggerID] = true

		severity, err := ParseSeverity(yr.Severity)
		if err != nil {
			errs.AddError(rulesErrors.ErrorTypeStructural, "", rule, err.Error())
		}

		supp := SuppressionConfig{
			CooldownMinutes: DefaultCooldownMinutes,
			VersionAware:    DefaultVersionAware,
		}
		if yr.Suppression != nil {
			if yr.Suppression.CooldownMinutes != nil {
				supp.CooldownMinutes = *yr.Suppression.CooldownMinutes
			}
			if yr.Suppression.VersionAware != nil {
				supp.VersionAware = *yr.Suppression.VersionAware
			}
		}
		if supp.CooldownMinutes < 0 {
			errs.AddError(rulesErrors.ErrorTypeStructural, "", rule,
				fmt.Sprintf("cooldown_minutes must be >= 0, got %d", supp.CooldownMinutes))
		}

		actions := slices.Clone(yr.Actions)
		if actions == nil {
			actions = []string{}
		}

		schema.Routing = append(schema.Routing, &RoutingRule{
			TriggerID:           yr.TriggerID,
			Severity:            severity,
			Actions:             actions,
			HumanReviewRequired: yr.HumanReviewRequired,
			Suppression:         supp,
		})
	}

	errs.WithCategory(yc.CategoryID, source)
	if errs.HasErrors() {
		return nil, errs
	}
	return schema, errs
}

// compileExpression validates raw before building it, then checks every leaf's
// argument shape. Errors are added to errs and nil is returned.
func (l *Loader) compileExpression(raw any, rule string, errs *rulesErrors.ErrorList) ast.Node {
	if err := l.parser.Validate(raw, 0); err != nil {
		errs.Add(asRuleError(err, rule))
		return nil
	}

	node, err := l.parser.Parse(raw)
	if err != nil {
		errs.Add(asRuleError(err, rule))
		return nil
	}

	ok := true
	for _, leaf := range ast.Evaluators(node) {
		if err := l.registry.CheckArgs(leaf.Evaluator, evaluators.Args(leaf.Args)); err != nil {
			errs.Add(&rulesErrors.Error{
				Type:    rulesErrors.ErrorTypeMalformedExpression,
				Rule:    rule,
				Message: err.Error(),
			})
			ok = false
		}
	}
	if !ok {
		return nil
	}
	return node
}

func asRuleError(err error, rule string) *rulesErrors.Error {
	var rerr *rulesErrors.Error
	if errors.As(err, &rerr) {
		copied := *rerr
		copied.Rule = rule
		return &copied
	}
	return &rulesErrors.Error{
		Type:    rulesErrors.ErrorTypeMalformedExpression,
		Rule:    rule,
		Message: err.Error(),
	}
}
