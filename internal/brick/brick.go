// Package brick holds the tagset vocabulary shared by the classifier adapters.
package brick

import "strings"

const (
	Base    = "http://example.com/building#"
	Brick   = "https://brickschema.org/schema/1.0.3/Brick#"
	RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
)

const (
	TagsetNone    = "none"
	TagsetUnknown = "unknown"
)

// PointPostfixes are the trailing tags that mark a tagset as a point category.
var PointPostfixes = []string{"sensor", "setpoint", "alarm", "command", "meter"}

// IsPointTagset reports whether tagset names a point category such as
// Zone_Temperature_Sensor. The placeholders none and unknown count as points.
func IsPointTagset(tagset string) bool {
	lower := strings.ToLower(tagset)
	if lower == TagsetNone || lower == TagsetUnknown {
		return true
	}
	idx := strings.LastIndex(lower, "_")
	last := lower[idx+1:]
	for _, postfix := range PointPostfixes {
		if last == postfix {
			return true
		}
	}
	return false
}

// SelectPointTagset returns the first point tagset in tagsets, or "".
func SelectPointTagset(tagsets []string) string {
	for _, tagset := range tagsets {
		if IsPointTagset(tagset) {
			return tagset
		}
	}
	return ""
}

// SameTagset compares two tagsets, treating none and unknown as equal.
func SameTagset(a, b string) bool {
	if a == b {
		return true
	}
	return (a == TagsetNone && b == TagsetUnknown) || (a == TagsetUnknown && b == TagsetNone)
}

func EntityIRI(srcid string) string {
	return Base + srcid
}

func TagsetIRI(tagset string) string {
	return Brick + tagset
}

// TagsetFromIRI strips the Brick namespace. Values outside it are returned as-is.
func TagsetFromIRI(iri string) string {
	return strings.TrimPrefix(iri, Brick)
}

func SrcIDFromIRI(iri string) string {
	return strings.TrimPrefix(iri, Base)
}
