// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package route

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([^{}/]+)\}`)

// Placeholders returns the placeholder names of template in order of
// appearance.
func Placeholders(template string) []string {
	matches := placeholderRe.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Substitute replaces every {name} in template with params[name]. A
// placeholder without a value is left as literal text.
func Substitute(template string, params map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		if v, ok := params[match[1:len(match)-1]]; ok {
			return v
		}
		return match
	})
}

// Segment is one "/"-separated piece of a path template.
type Segment struct {
	Raw string
	// Params lists the placeholder names found in Raw.
	Params []string
	// Matcher is set when Raw mixes literal text with placeholders.
	Matcher *regexp.Regexp
}

// Literal reports whether the segment has no placeholders.
func (s Segment) Literal() bool { return len(s.Params) == 0 }

// Whole reports whether the segment is exactly one placeholder.
func (s Segment) Whole() bool { return len(s.Params) == 1 && s.Matcher == nil }

// Extract matches value against a mixed segment and returns its parameter
// values. ok is false when value does not fit the segment's literal text.
func (s Segment) Extract(value string) (map[string]string, bool) {
	switch {
	case s.Literal():
		return nil, value == s.Raw
	case s.Whole():
		return map[string]string{s.Params[0]: value}, true
	}
	m := s.Matcher.FindStringSubmatch(value)
	if m == nil {
		return nil, false
	}
	out := make(map[string]string, len(s.Params))
	for i, name := range s.Params {
		out[name] = m[i+1]
	}
	return out, true
}

// Segments splits template on "/" and classifies every piece. The leading
// empty segment of an absolute path is dropped.
func Segments(template string) []Segment {
	raw := strings.Split(strings.TrimPrefix(template, "/"), "/")
	out := make([]Segment, 0, len(raw))
	for _, piece := range raw {
		seg := Segment{Raw: piece, Params: Placeholders(piece)}
		if len(seg.Params) > 0 && !(len(seg.Params) == 1 && piece == "{"+seg.Params[0]+"}") {
			seg.Matcher = segmentMatcher(piece)
		}
		out = append(out, seg)
	}
	return out
}

func segmentMatcher(piece string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range placeholderRe.FindAllStringIndex(piece, -1) {
		b.WriteString(regexp.QuoteMeta(piece[last:loc[0]]))
		b.WriteString("(.+?)")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(piece[last:]))
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
