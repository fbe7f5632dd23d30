// Package graph implements the result graph that adapters populate with
// predicted type assertions and that the evaluation harness scores.
package graph

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jkatofsky/plastering/internal/brick"
)

// Triple is a single (subject, predicate, object) assertion. All three terms
// are IRIs, so a Triple is comparable and usable as a map key.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// Confidences maps instance triples to the classifier's top-class probability.
type Confidences map[Triple]float64

// InstanceTriple builds the type assertion for srcid being an instance of tagset.
func InstanceTriple(srcid, tagset string) Triple {
	return Triple{
		Subject:   brick.EntityIRI(srcid),
		Predicate: brick.RDFType,
		Object:    brick.TagsetIRI(tagset),
	}
}

// Graph is append-only. Adding a triple twice keeps the first position.
type Graph struct {
	triples     []Triple
	index       map[Triple]struct{}
	confidences Confidences
}

func New() *Graph {
	return &Graph{
		index:       make(map[Triple]struct{}),
		confidences: make(Confidences),
	}
}

// Add appends t and reports whether it was new.
func (g *Graph) Add(t Triple) bool {
	if _, ok := g.index[t]; ok {
		return false
	}
	g.index[t] = struct{}{}
	g.triples = append(g.triples, t)
	return true
}

// AddPredPoint records that srcid is predicted to be an instance of tagset
// with probability prob.
func (g *Graph) AddPredPoint(srcid, tagset string, prob float64) Triple {
	t := InstanceTriple(srcid, tagset)
	g.Add(t)
	g.confidences[t] = prob
	return t
}

func (g *Graph) Len() int {
	return len(g.triples)
}

func (g *Graph) Contains(t Triple) bool {
	_, ok := g.index[t]
	return ok
}

// Triples returns a copy in insertion order.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

func (g *Graph) Confidence(t Triple) (float64, bool) {
	c, ok := g.confidences[t]
	return c, ok
}

// PointType returns the first point tagset asserted for srcid.
func (g *Graph) PointType(srcid string) (string, bool) {
	subject := brick.EntityIRI(srcid)
	for _, t := range g.triples {
		if t.Subject != subject || t.Predicate != brick.RDFType {
			continue
		}
		tagset := brick.TagsetFromIRI(t.Object)
		if brick.IsPointTagset(tagset) {
			return tagset, true
		}
	}
	return "", false
}

// InstanceTuples maps every typed srcid to its point tagset.
func (g *Graph) InstanceTuples() map[string]string {
	tuples := make(map[string]string)
	for _, t := range g.triples {
		if t.Predicate != brick.RDFType {
			continue
		}
		tagset := brick.TagsetFromIRI(t.Object)
		if !brick.IsPointTagset(tagset) {
			continue
		}
		srcid := brick.SrcIDFromIRI(t.Subject)
		if _, seen := tuples[srcid]; !seen {
			tuples[srcid] = tagset
		}
	}
	return tuples
}

// WriteNTriples serializes the graph in N-Triples form.
func (g *Graph) WriteNTriples(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, t := range g.triples {
		if _, err := fmt.Fprintf(bw, "<%s> <%s> <%s> .\n", t.Subject, t.Predicate, t.Object); err != nil {
			return fmt.Errorf("failed to write triple: %w", err)
		}
	}
	return bw.Flush()
}
