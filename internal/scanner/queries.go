package scanner

// DefinitionQueries captures callable declarations per language.
// Each pattern tags the declaration node with @def and its identifier
// with @name.
var DefinitionQueries = map[string]string{
	"go": `
		(function_declaration name: (identifier) @name) @def
		(method_declaration name: (field_identifier) @name) @def
		(type_declaration (type_spec name: (type_identifier) @name)) @def
	`,
	"python": `
		(function_definition name: (identifier) @name) @def
		(class_definition name: (identifier) @name) @def
	`,
	"javascript": `
		(function_declaration name: (identifier) @name) @def
		(class_declaration name: (identifier) @name) @def
		(method_definition name: (property_identifier) @name) @def
	`,
	"typescript": `
		(function_declaration name: (identifier) @name) @def
		(class_declaration name: (type_identifier) @name) @def
		(method_definition name: (property_identifier) @name) @def
		(interface_declaration name: (type_identifier) @name) @def
	`,
}

// CallQueries captures reference sites per language. Each pattern tags
// the whole call node with @call and the referenced identifier with
// @callee. The enclosing definition is recovered by walking ancestors,
// so the queries stay flat.
var CallQueries = map[string]string{
	"go": `
		(call_expression function: (identifier) @callee) @call
		(call_expression function: (selector_expression field: (field_identifier) @callee)) @call
	`,
	"python": `
		(call function: (identifier) @callee) @call
		(call function: (attribute attribute: (identifier) @callee)) @call
	`,
	"javascript": `
		(call_expression function: (identifier) @callee) @call
		(call_expression function: (member_expression property: (property_identifier) @callee)) @call
	`,
	"typescript": `
		(call_expression function: (identifier) @callee) @call
		(call_expression function: (member_expression property: (property_identifier) @callee)) @call
	`,
}

// definitionKinds lists the node kinds that delimit an enclosing
// callable when ascending from a call site.
var definitionKinds = map[string]map[string]bool{
	"go": {
		"function_declaration": true,
		"method_declaration":   true,
	},
	"python": {
		"function_definition": true,
		"class_definition":    true,
	},
	"javascript": {
		"function_declaration": true,
		"class_declaration":    true,
		"method_definition":    true,
	},
	"typescript": {
		"function_declaration": true,
		"class_declaration":    true,
		"method_definition":    true,
	},
}
