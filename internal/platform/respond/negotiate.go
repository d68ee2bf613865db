package respond

import (
	"strconv"
	"strings"
)

type mediaRange struct {
	typ     string
	subtype string
	q       float64
}

// parseAccept splits an Accept header into media ranges. Malformed or
// out-of-range q values are treated as 1.0; a bare type means type/*.
func parseAccept(header string) []mediaRange {
	var ranges []mediaRange
	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		params := strings.Split(part, ";")
		media := strings.ToLower(strings.TrimSpace(params[0]))
		mr := mediaRange{q: 1.0}
		if typ, sub, ok := strings.Cut(media, "/"); ok {
			mr.typ, mr.subtype = typ, sub
		} else {
			mr.typ, mr.subtype = media, "*"
		}
		for _, p := range params[1:] {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if !ok || strings.ToLower(strings.TrimSpace(k)) != "q" {
				continue
			}
			if q, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && q >= 0 && q <= 1 {
				mr.q = q
			}
		}
		ranges = append(ranges, mr)
	}
	return ranges
}

// specificity ranks how closely mr matches application/<format> or
// application/problem+<format>: -1 means no match.
func (mr mediaRange) specificity(format string) int {
	switch {
	case mr.typ == "*" && mr.subtype == "*":
		return 0
	case mr.typ != "application":
		return -1
	case mr.subtype == "*":
		return 1
	case mr.subtype == "*+"+format:
		return 2
	case mr.subtype == format:
		return 3
	case mr.subtype == "problem+"+format:
		return 4
	default:
		return -1
	}
}

type match struct {
	q           float64
	specificity int
}

// bestMatch returns the q value and rank of the most specific range
// matching format. A format no range matches gets q 0 and rank -1.
func bestMatch(ranges []mediaRange, format string) match {
	best := match{specificity: -1}
	for _, mr := range ranges {
		s := mr.specificity(format)
		if s > best.specificity || (s == best.specificity && s >= 0 && mr.q > best.q) {
			best = match{q: mr.q, specificity: s}
		}
	}
	return best
}

// selectFormat reports whether CBOR should be used for the given Accept
// header. The higher q wins; at equal q the more specific range wins, and
// JSON is the default for remaining ties or when nothing matches.
func selectFormat(accept string) bool {
	ranges := parseAccept(accept)
	if len(ranges) == 0 {
		return false
	}
	c, j := bestMatch(ranges, "cbor"), bestMatch(ranges, "json")
	if c.q == 0 {
		return false
	}
	if c.q != j.q {
		return c.q > j.q
	}
	return c.specificity > j.specificity
}
