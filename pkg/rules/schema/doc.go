// Package schema loads category rule-sets and keeps the active set.
//
// A category document looks like:
//
//	category_id: oversight
//	description: Watchdog activity on veterans affairs
//	priority: 10
//	indicators:
//	  - indicator_id: watchdog
//	    indicator_condition:
//	      evaluator: equals
//	      args: {field: authority_source, value: congress_gov}
//	    triggers:
//	      - trigger_id: gao_investigation
//	        condition:
//	          all_of:
//	            - evaluator: contains_any
//	              args: {field: body_text, terms: [GAO, OIG]}
//	            - any_of:
//	                - evaluator: field_in
//	                  args: {field: committee, values: [HVAC, SVAC]}
//	              label: committee
//	routing:
//	  - trigger_id: gao_investigation
//	    severity: high
//	    actions: [post_slack_alert]
//	    suppression: {cooldown_minutes: 60, version_aware: true}
//
// Every condition is validated against the evaluator whitelist and the depth limit
// before its tree is built, and every leaf's arguments are checked. Any error
// rejects the whole category: Loader.LoadAll returns the categories that compiled
// cleanly together with an *errors.ErrorList naming each rejected category and
// the violation.
//
// Catalog holds the active categories behind an atomic pointer so a reload
// replaces the set in one step.
package schema
