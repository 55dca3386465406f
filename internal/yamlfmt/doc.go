/*
Package yamlfmt prints document values as block-style YAML.

Output keeps mapping keys in insertion order, leaves non-ASCII text as is and
does not indent sequences nested under a mapping key:

	panels:
	- id: 5
	  targets:
	  - expr: up

Scalars are rendered by gopkg.in/yaml.v3 so that quoting follows the YAML
rules. document.RawExpr values are written verbatim, which is how reference
expressions keep their template delimiters unquoted in generated templates.
*/
package yamlfmt
