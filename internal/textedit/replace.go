package textedit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/docedit/internal/doctree"
)

// ReplaceOptions controls ReplaceText behavior.
type ReplaceOptions struct {
	// TrackChanges records each replacement as a tracked insertion plus a
	// tracked deletion.
	TrackChanges bool
	// UseRegex compiles the pattern as a regular expression and enables
	// backreference expansion in the replacement.
	UseRegex bool
	// Filter, when set, must hold for every run intersected by a match or
	// the match is skipped.
	Filter func(*doctree.RunProperties) bool
	// ReplaceFunc, when set, computes the replacement from the matched
	// text and takes precedence over the literal replacement.
	ReplaceFunc func(match string) string
}

// ReplaceText replaces every occurrence of pattern in the paragraph's
// flattened text. Matches are processed in descending offset order so
// earlier edits never invalidate pending match offsets. Returns the number
// of replacements performed.
func (e *Engine) ReplaceText(p *doctree.Paragraph, pattern, replacement string, opts ReplaceOptions) (int, error) {
	if pattern == "" {
		return 0, fmt.Errorf("search pattern: %w", ErrArgumentInvalid)
	}

	text := p.Text()
	matches, re, err := findMatches(text, pattern, opts.UseRegex)
	if err != nil {
		return 0, err
	}

	replaced := 0
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		start, end := byteToRune(text, m[0]), byteToRune(text, m[1])
		if opts.Filter != nil && !allRunsSatisfy(p, start, end, opts.Filter) {
			continue
		}

		matched := text[m[0]:m[1]]
		rep := replacement
		if opts.ReplaceFunc != nil {
			rep = opts.ReplaceFunc(matched)
		} else if opts.UseRegex {
			rep = expandReferences(replacement, text, m, re.NumSubexp())
		}

		// Insert after the match first, then remove the original span:
		// neither step disturbs offsets at or before start.
		if rep != "" {
			if err := e.InsertText(p, end, rep, InsertOptions{TrackChanges: opts.TrackChanges}); err != nil {
				return replaced, err
			}
		}
		if err := e.RemoveText(p, start, end-start, opts.TrackChanges); err != nil {
			return replaced, err
		}
		replaced++
	}
	return replaced, nil
}

// findMatches returns non-overlapping match index pairs (byte offsets,
// submatches included for regex patterns) in ascending order.
func findMatches(text, pattern string, useRegex bool) ([][]int, *regexp.Regexp, error) {
	if useRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("compile pattern %q: %w", pattern, ErrArgumentInvalid)
		}
		return re.FindAllStringSubmatchIndex(text, -1), re, nil
	}
	var out [][]int
	for from := 0; ; {
		i := strings.Index(text[from:], pattern)
		if i < 0 {
			break
		}
		start := from + i
		out = append(out, []int{start, start + len(pattern)})
		from = start + len(pattern)
	}
	return out, nil, nil
}

// allRunsSatisfy reports whether every run intersecting [start, end)
// passes the filter.
func allRunsSatisfy(p *doctree.Paragraph, start, end int, filter func(*doctree.RunProperties) bool) bool {
	for _, r := range runsInRange(p, start, end) {
		if !filter(r.Props) {
			return false
		}
	}
	return true
}

// runsInRange collects the runs whose character spans intersect
// [start, end), descending into wrappers and hyperlinks.
func runsInRange(p *doctree.Paragraph, start, end int) []*doctree.Run {
	var out []*doctree.Run
	cum := 0
	visit := func(r *doctree.Run) {
		l := r.Length()
		if l > 0 && cum < end && cum+l > start {
			out = append(out, r)
		}
		cum += l
	}
	for _, child := range p.Children {
		switch v := child.(type) {
		case *doctree.Run:
			visit(v)
		case *doctree.RevisionWrapper:
			for _, r := range v.Runs {
				visit(r)
			}
		case *doctree.Hyperlink:
			for _, r := range v.Runs {
				visit(r)
			}
		}
	}
	return out
}

// byteToRune converts a byte offset in s to a rune offset.
func byteToRune(s string, b int) int {
	n := 0
	for i := range s {
		if i >= b {
			break
		}
		n++
	}
	return n
}

// expandReferences expands substitution tokens in a replacement string
// against a regex match: $$ (literal dollar), $& (whole match), $1..$n
// (capture groups), $` (text before the match), $' (text after the match)
// and $_ (the entire input).
func expandReferences(repl, input string, m []int, groups int) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c != '$' || i+1 == len(repl) {
			b.WriteByte(c)
			continue
		}
		i++
		switch repl[i] {
		case '$':
			b.WriteByte('$')
		case '&':
			b.WriteString(input[m[0]:m[1]])
		case '`':
			b.WriteString(input[:m[0]])
		case '\'':
			b.WriteString(input[m[1]:])
		case '_':
			b.WriteString(input)
		default:
			if repl[i] < '0' || repl[i] > '9' {
				// Not a token; emit verbatim.
				b.WriteByte('$')
				b.WriteByte(repl[i])
				continue
			}
			// Longest valid group number wins.
			j := i
			for j+1 < len(repl) && repl[j+1] >= '0' && repl[j+1] <= '9' {
				j++
			}
			num := 0
			end := j
			for k := i; k <= j; k++ {
				num = num*10 + int(repl[k]-'0')
			}
			for num > groups && end > i {
				end--
				num /= 10
			}
			if num > groups {
				// No such group; emit verbatim.
				b.WriteByte('$')
				b.WriteString(repl[i : j+1])
				i = j
				continue
			}
			if m[2*num] >= 0 {
				b.WriteString(input[m[2*num] : m[2*num+1]])
			}
			i = end
		}
	}
	return b.String()
}
