package subst

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// formatSpec is one parsed format specification:
//
//	[[fill]align][sign][#][0][width][,][.precision][verb]
//
// following the conventions of printf-style numeric formatting with
// explicit fill and alignment.
type formatSpec struct {
	fill  rune
	align byte // '<', '>', '^', '=' (0 picks a default per type)
	sign  byte // '+', '-', ' '
	alt   bool
	width int
	comma bool
	prec  int  // -1 when unset
	verb  byte // 0 when unset
}

const formatVerbs = "dboxXnfFeEgG%s"

func isAlign(r rune) bool {
	return r == '<' || r == '>' || r == '^' || r == '='
}

func parseFormatSpec(s string) (formatSpec, error) {
	sp := formatSpec{fill: ' ', prec: -1}
	runes := []rune(s)
	i := 0

	switch {
	case len(runes) >= 2 && isAlign(runes[1]):
		sp.fill = runes[0]
		sp.align = byte(runes[1])
		i = 2
	case len(runes) >= 1 && isAlign(runes[0]):
		sp.align = byte(runes[0])
		i = 1
	}

	if i < len(runes) && (runes[i] == '+' || runes[i] == '-' || runes[i] == ' ') {
		sp.sign = byte(runes[i])
		i++
	}

	if i < len(runes) && runes[i] == '#' {
		sp.alt = true
		i++
	}

	if i < len(runes) && runes[i] == '0' {
		if sp.align == 0 {
			sp.align = '='
			sp.fill = '0'
		}

		i++
	}

	for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
		sp.width = sp.width*10 + int(runes[i]-'0')
		i++
	}

	if i < len(runes) && runes[i] == ',' {
		sp.comma = true
		i++
	}

	if i < len(runes) && runes[i] == '.' {
		i++

		if i >= len(runes) || runes[i] < '0' || runes[i] > '9' {
			return sp, fmt.Errorf("format specifier missing precision: '%s'", s)
		}

		sp.prec = 0
		for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
			sp.prec = sp.prec*10 + int(runes[i]-'0')
			i++
		}
	}

	if i < len(runes) {
		verb := runes[i]
		if verb > 0x7f || !strings.ContainsRune(formatVerbs, verb) || i != len(runes)-1 {
			return sp, fmt.Errorf("invalid format specifier: '%s'", s)
		}

		sp.verb = byte(verb)
		i++
	}

	return sp, nil
}

// formatValue renders value according to spec. An empty spec
// stringifies the value directly.
func formatValue(value any, spec string) (string, error) {
	if spec == "" {
		return stringify(value), nil
	}

	sp, err := parseFormatSpec(spec)
	if err != nil {
		return "", err
	}

	switch sp.verb {
	case 'd', 'b', 'o', 'x', 'X', 'n':
		n, ok := toInt(value)
		if !ok {
			return "", fmt.Errorf("unknown format code '%c' for value of type %T", sp.verb, value)
		}

		return sp.integer(n), nil
	case 'f', 'F', 'e', 'E', 'g', 'G', '%':
		f, ok := toFloat(value)
		if !ok {
			return "", fmt.Errorf("unknown format code '%c' for value of type %T", sp.verb, value)
		}

		return sp.float(f), nil
	default:
		// 's' or none: numbers still format as numbers so a bare
		// width like "{x:5}" aligns them.
		if sp.verb == 0 {
			if n, ok := toInt(value); ok {
				return sp.integer(n), nil
			}

			if _, isf := value.(float64); isf {
				f, _ := toFloat(value)

				return sp.float(f), nil
			}
		}

		if sp.sign != 0 || sp.comma || sp.align == '=' {
			return "", fmt.Errorf("invalid format specifier '%s' for value of type %T", spec, value)
		}

		s := stringify(value)
		if sp.prec >= 0 && sp.prec < utf8.RuneCountInString(s) {
			s = string([]rune(s)[:sp.prec])
		}

		return sp.pad(s, '<'), nil
	}
}

// stringify renders a value the way it would appear in config output.
func stringify(value any) string {
	switch t := value.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func toInt(value any) (int64, bool) {
	switch t := value.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case uint64:
		return int64(t), true
	case uint:
		return int64(t), true
	case int32:
		return int64(t), true
	default:
		return 0, false
	}
}

func toFloat(value any) (float64, bool) {
	switch t := value.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	default:
		n, ok := toInt(value)

		return float64(n), ok
	}
}

func (sp formatSpec) integer(n int64) string {
	neg := n < 0

	mag := uint64(n)
	if neg {
		mag = uint64(-n)
	}

	var digits, prefix string

	switch sp.verb {
	case 'b':
		digits = strconv.FormatUint(mag, 2)

		if sp.alt {
			prefix = "0b"
		}
	case 'o':
		digits = strconv.FormatUint(mag, 8)

		if sp.alt {
			prefix = "0o"
		}
	case 'x':
		digits = strconv.FormatUint(mag, 16)

		if sp.alt {
			prefix = "0x"
		}
	case 'X':
		digits = strings.ToUpper(strconv.FormatUint(mag, 16))

		if sp.alt {
			prefix = "0X"
		}
	default:
		digits = strconv.FormatUint(mag, 10)
	}

	if sp.comma && (sp.verb == 'd' || sp.verb == 0 || sp.verb == 'n') {
		digits = groupThousands(digits)
	}

	return sp.padNumber(signOf(neg, sp.sign), prefix, digits)
}

func (sp formatSpec) float(f float64) string {
	prec := sp.prec
	if prec < 0 {
		prec = 6
	}

	neg := f < 0
	if neg {
		f = -f
	}

	var digits, suffix string

	switch sp.verb {
	case 'e', 'E':
		digits = strconv.FormatFloat(f, sp.verb, prec, 64)
	case 'g', 'G':
		if sp.prec < 0 {
			prec = -1
		}

		digits = strconv.FormatFloat(f, sp.verb, prec, 64)
	case '%':
		digits = strconv.FormatFloat(f*100, 'f', prec, 64)
		suffix = "%"
	default:
		digits = strconv.FormatFloat(f, 'f', prec, 64)
	}

	if sp.comma {
		whole, frac, found := strings.Cut(digits, ".")
		digits = groupThousands(whole)

		if found {
			digits += "." + frac
		}
	}

	return sp.padNumber(signOf(neg, sp.sign), "", digits+suffix)
}

func signOf(neg bool, sign byte) string {
	switch {
	case neg:
		return "-"
	case sign == '+':
		return "+"
	case sign == ' ':
		return " "
	default:
		return ""
	}
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder

	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}

	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}

		b.WriteString(digits[i : i+3])
	}

	return b.String()
}

// padNumber pads a rendered number. The '=' alignment inserts fill
// between the sign and the digits.
func (sp formatSpec) padNumber(sign, prefix, digits string) string {
	if sp.align == '=' {
		body := sign + prefix
		pad := sp.width - utf8.RuneCountInString(body) - utf8.RuneCountInString(digits)

		if pad > 0 {
			body += strings.Repeat(string(sp.fill), pad)
		}

		return body + digits
	}

	return sp.pad(sign+prefix+digits, '>')
}

// pad aligns s within the spec width using fallback when the spec
// names no alignment.
func (sp formatSpec) pad(s string, fallback byte) string {
	align := sp.align
	if align == 0 {
		align = fallback
	}

	gap := sp.width - utf8.RuneCountInString(s)
	if gap <= 0 {
		return s
	}

	fill := string(sp.fill)

	switch align {
	case '<':
		return s + strings.Repeat(fill, gap)
	case '^':
		left := gap / 2

		return strings.Repeat(fill, left) + s + strings.Repeat(fill, gap-left)
	default:
		return strings.Repeat(fill, gap) + s
	}
}
