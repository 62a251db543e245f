// Beacon routes government-activity envelopes through declarative category
// rules and decides which matches should be surfaced now.
//
// Usage:
//
//	# Validate rule files
//	beacon lint --rules ./rules
//
//	# Route envelopes and print the results
//	beacon route --envelope hearing.json
//
//	# Route a JSON-lines stream, dispatch alerts, serve metrics
//	beacon run --config beacon.yaml --input events.jsonl
//
//	# Inspect the audit log
//	beacon audit query --trigger gao_investigation --since 24h
package main

func main() {
	Execute()
}
