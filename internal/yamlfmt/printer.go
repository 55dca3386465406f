package yamlfmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/dashgen/internal/document"
	"gopkg.in/yaml.v3"
)

// DefaultIndent is the mapping indentation used when none is configured.
const DefaultIndent = 2

// Printer renders document values as YAML text.
type Printer struct {
	indent int
}

// Option configures a Printer.
type Option func(*Printer)

// WithIndent sets the number of spaces per nesting level. Values below 2 are ignored.
func WithIndent(n int) Option {
	return func(p *Printer) {
		if n >= 2 {
			p.indent = n
		}
	}
}

// NewPrinter returns a Printer with the given options applied.
func NewPrinter(opts ...Option) *Printer {
	p := &Printer{indent: DefaultIndent}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Marshal prints v with the default indentation.
func Marshal(v any) ([]byte, error) {
	s, err := NewPrinter().Print(v)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// Print returns the YAML text for v, terminated by a newline.
func (p *Printer) Print(v any) (string, error) {
	var lines []string
	if err := p.print(v, 0, &lines); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func (p *Printer) print(v any, depth int, lines *[]string) error {
	pad := strings.Repeat(" ", depth)

	switch val := v.(type) {
	case *document.Map:
		if val.Len() == 0 {
			*lines = append(*lines, pad+"{}")
			return nil
		}
		return val.IterateErr(func(key string, item any) error {
			k, err := formatString(key)
			if err != nil {
				return err
			}
			switch {
			case isBlockMap(item):
				*lines = append(*lines, pad+k+":")
				return p.print(item, depth+p.indent, lines)
			case isBlockList(item):
				// Sequences sit at the same column as their key.
				*lines = append(*lines, pad+k+":")
				return p.print(item, depth, lines)
			default:
				s, err := formatScalar(item)
				if err != nil {
					return fmt.Errorf("key %q: %w", key, err)
				}
				*lines = append(*lines, pad+k+": "+s)
				return nil
			}
		})

	case []any:
		if len(val) == 0 {
			*lines = append(*lines, pad+"[]")
			return nil
		}
		marker := "-" + strings.Repeat(" ", p.indent-1)
		for i, item := range val {
			if !isBlockMap(item) && !isBlockList(item) {
				s, err := formatScalar(item)
				if err != nil {
					return fmt.Errorf("index %d: %w", i, err)
				}
				*lines = append(*lines, pad+"- "+s)
				continue
			}
			start := len(*lines)
			if err := p.print(item, depth+p.indent, lines); err != nil {
				return err
			}
			// The first line of the nested block shares the dash's line.
			(*lines)[start] = pad + marker + (*lines)[start][depth+p.indent:]
		}
		return nil

	default:
		s, err := formatScalar(v)
		if err != nil {
			return err
		}
		*lines = append(*lines, pad+s)
		return nil
	}
}

func isBlockMap(v any) bool {
	m, ok := v.(*document.Map)
	return ok && m.Len() > 0
}

func isBlockList(v any) bool {
	l, ok := v.([]any)
	return ok && len(l) > 0
}

// formatScalar renders a leaf value on a single line.
func formatScalar(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return formatFloat(val), nil
	case float32:
		return formatFloat(float64(val)), nil
	case string:
		return formatString(val)
	case document.RawExpr:
		return string(val), nil
	case *document.Map:
		return "{}", nil
	case []any:
		return "[]", nil
	default:
		return "", fmt.Errorf("cannot print value of type %T", v)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		// Keep the value a float when it is read back.
		s += ".0"
	}
	return s
}

// formatString lets yaml.v3 decide whether s needs quoting. Multi-line text
// is forced into double quotes so every scalar stays on one line.
func formatString(s string) (string, error) {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if strings.ContainsAny(s, "\n\r") {
		node.Style = yaml.DoubleQuotedStyle
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}
