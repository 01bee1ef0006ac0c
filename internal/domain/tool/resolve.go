package tool

import (
	"fmt"
	"strings"
)

// TargetDelimiter is the namespacing separator the gateway injects when
// multiple proxy targets share one name prefix (e.g. "KBTarget___query_knowledge_base").
const TargetDelimiter = "___"

// nameKeys are the event keys that may carry a tool name, in precedence order.
var nameKeys = []string{"tool_name", "name", "toolName"}

// inputKeys are the event keys that may carry tool arguments, in precedence order.
var inputKeys = []string{"tool_input", "input", "arguments", "toolInput"}

// match is the result of one extraction rule: a candidate tool name and
// argument mapping. ok is false when the rule does not apply to the event.
type match struct {
	name  string
	input map[string]any
	ok    bool
}

// extractionRule is one named step of the normalization policy. Rules are
// evaluated in fixed precedence; the first rule that matches wins.
type extractionRule struct {
	name    string
	extract func(Event) match
}

// extractionRules is the ordered normalization policy. Order is load-bearing:
// explicit name keys beat the action fallback, which beats shape inference.
var extractionRules = []extractionRule{
	{"name-keys", extractNameKeys},
	{"action-fallback", extractActionFallback},
	{"query-shape", inferFromQueryShape},
	{"bare-event", inferBareEvent},
}

// Resolve normalizes a raw gateway event into a Call. It tolerates every
// framing the gateway is known to produce: tool_name/tool_input, name/input,
// name/arguments, toolName/toolInput, action/parameters, and bare argument
// mappings with the tool name stripped entirely.
//
// An UnknownToolError is returned when no rule resolves a name or the
// resolved name is not one of the four valid tools.
func Resolve(event Event) (Call, error) {
	call := Call{
		Input:       map[string]any{},
		UserContext: firstMap(event, "user_context", "userContext"),
		SessionID:   firstString(event, "session_id", "sessionId"),
	}

	var resolved match
	for _, rule := range extractionRules {
		if m := rule.extract(event); m.ok {
			resolved = m
			break
		}
	}

	name := resolved.name
	if idx := strings.LastIndex(name, TargetDelimiter); idx >= 0 {
		name = name[idx+len(TargetDelimiter):]
	}

	if !Name(name).IsValid() {
		return Call{}, &UnknownToolError{Value: name}
	}

	call.Name = Name(name)
	if resolved.input != nil {
		call.Input = resolved.input
	}
	return call, nil
}

// extractNameKeys resolves the explicit name keys plus the argument keys.
// Matches only when a non-empty name is present; the argument lookup
// tolerates a missing or empty input (defaults to an empty mapping).
func extractNameKeys(event Event) match {
	name := firstString(event, nameKeys...)
	if name == "" {
		return match{}
	}
	return match{name: name, input: firstMap(event, inputKeys...), ok: true}
}

// extractActionFallback handles the direct-invocation framing: action as the
// tool name, parameters as the arguments. Only consulted when no explicit
// name key carried a value.
func extractActionFallback(event Event) match {
	action, isString := event["action"].(string)
	if !isString || action == "" {
		return match{}
	}
	return match{name: action, input: asMap(event["parameters"]), ok: true}
}

// inferFromQueryShape infers the tool from a bare argument mapping that
// carries a query. Generation-only knobs (max_tokens, temperature) pick
// retrieve_and_generate; a plain query means semantic search. The whole
// event becomes the arguments.
func inferFromQueryShape(event Event) match {
	if _, hasQuery := event["query"]; !hasQuery {
		return match{}
	}
	name := NameQueryKnowledgeBase
	if hasAnyKey(event, "max_tokens", "temperature") {
		name = NameRetrieveAndGenerate
	}
	return match{name: string(name), input: map[string]any(event), ok: true}
}

// inferBareEvent defaults an event with no recognized name key at all to
// list_sources. The gateway sends empty mappings for the no-argument tools.
func inferBareEvent(event Event) match {
	if hasAnyKey(event, "tool_name", "name", "action", "toolName") {
		return match{}
	}
	return match{name: string(NameListSources), input: map[string]any(event), ok: true}
}

// UnknownToolError reports an unresolved or unrecognized tool name.
type UnknownToolError struct {
	// Value is the offending name, possibly empty when nothing resolved.
	Value string
}

func (e *UnknownToolError) Error() string {
	valid := make([]string, 0, 4)
	for _, n := range All() {
		valid = append(valid, string(n))
	}
	return fmt.Sprintf("unknown tool: %q (valid tools: %s)", e.Value, strings.Join(valid, ", "))
}

// firstString returns the first non-empty string value among keys.
func firstString(event Event, keys ...string) string {
	for _, k := range keys {
		if s, ok := event[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// firstMap returns the first non-empty mapping value among keys, or nil.
func firstMap(event Event, keys ...string) map[string]any {
	for _, k := range keys {
		if m, ok := event[k].(map[string]any); ok && len(m) > 0 {
			return m
		}
	}
	return nil
}

// asMap coerces a value to a mapping, returning an empty mapping otherwise.
func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// hasAnyKey reports whether the event carries at least one of keys.
func hasAnyKey(event Event, keys ...string) bool {
	for _, k := range keys {
		if _, ok := event[k]; ok {
			return true
		}
	}
	return false
}
