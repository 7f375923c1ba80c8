// Package dsl parses and generates flow-module text, the on-disk form
// of a workflow graph.
//
// # Module Syntax
//
// A flow module is a header of named references followed by a single
// export default object literal:
//
//	use ops from "loom/envs/ops"
//
//	export default {
//	  id: "fetch-and-notify",
//	  env: ops,
//	  context: {
//	    retries: 3,
//	  },
//	  start: "fetch",
//	  nodes: {
//	    fetch: {
//	      kind: "http",
//	      url: "https://example.com/data",
//	      method: "GET",
//	      next: "notify",
//	    },
//	    notify: {
//	      kind: "end",
//	    },
//	  },
//	}
//
// Keys may be bare identifiers or quoted strings. Values are strings,
// numbers, booleans, null, arrays, and nested objects. Trailing commas
// and // line comments are accepted on input; comments are not
// preserved.
//
// # Transitions
//
// Edges are written as transition fields on the source node: next and
// onError for most kinds, onTrue and onFalse for eval nodes. Terminal
// nodes carry no transition fields. The stored graph and the text form
// are therefore interconvertible without a separate edge section.
//
// # Canonical Form
//
// Generate always renders the same graph as the same bytes: references
// sort by name, module fields follow a fixed order, nodes are emitted
// in topological order with lexicographic tie-breaking, and object
// keys sort. Parse accepts any conforming text; parse followed by
// Generate yields the canonical form, which fmt relies on.
package dsl
