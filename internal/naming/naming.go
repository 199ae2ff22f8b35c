package naming

import (
	"strings"
)

// Candidate is one name observed for a device, with where it came from.
type Candidate struct {
	Name   string
	Source string
}

const minHostnameScore = 60

// Normalize trims a raw name and scores how useful it is as a tooltip hostname.
// Names from DNS are lowercased. ok is false for names that should never be shown.
func Normalize(source, rawName string) (name string, score int, ok bool) {
	source = strings.ToLower(strings.TrimSpace(source))
	name = strings.TrimSuffix(strings.TrimSpace(rawName), ".")
	if name == "" {
		return "", 0, false
	}
	if source == "reverse_dns" {
		name = strings.ToLower(name)
	}

	s := scoreCandidate(source, name)
	if s < 0 {
		return name, s, false
	}
	return name, s, true
}

// BestHostname picks the highest scoring candidate. Earlier candidates win ties.
func BestHostname(candidates []Candidate) (string, bool) {
	best := ""
	bestScore := -1

	for _, c := range candidates {
		name, score, ok := Normalize(c.Source, c.Name)
		if !ok || score < minHostnameScore {
			continue
		}
		if score > bestScore {
			best, bestScore = name, score
		}
	}

	if best == "" {
		return "", false
	}
	return best, true
}

func scoreCandidate(source, name string) int {
	normalized := strings.ToLower(name)
	if looksGarbage(normalized) {
		return -1
	}

	base := 50
	switch source {
	case "reverse_dns":
		base = 90
	case "snmp":
		base = 88
	case "lldp", "cdp":
		base = 86
	case "manual":
		base = 70
	}

	label := normalized
	if i := strings.Index(label, "."); i > 0 {
		label = label[:i]
	}

	// Penalize very short labels.
	if len(label) < 2 {
		base -= 50
	}
	if strings.ContainsAny(name, " \t") {
		base -= 25
	}
	if !looksHostnameLabel(label) {
		base -= 20
	}
	// Provider-generated PTRs such as 10-0-0-1.dyn.example.net say nothing new.
	if looksAddressDerived(label) {
		base -= 40
	}
	if strings.HasSuffix(normalized, ".local") || strings.HasSuffix(normalized, ".localdomain") {
		base -= 5
	}

	return base
}

func looksHostnameLabel(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

func looksAddressDerived(label string) bool {
	numeric := 0
	for _, part := range strings.FieldsFunc(label, func(r rune) bool { return r == '-' || r == '_' }) {
		if part == "" {
			continue
		}
		digits := true
		for _, r := range part {
			if r < '0' || r > '9' {
				digits = false
				break
			}
		}
		if digits {
			numeric++
		}
	}
	return numeric >= 4
}

func looksGarbage(normalized string) bool {
	if normalized == "" {
		return true
	}
	if strings.Contains(normalized, "in-addr.arpa") || strings.Contains(normalized, "ip6.arpa") {
		return true
	}
	switch normalized {
	case "localhost", "localhost.localdomain", "localdomain":
		return true
	}
	return false
}
