package graph

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkatofsky/plastering/internal/brick"
)

func TestGraph_AddDeduplicates(t *testing.T) {
	g := New()
	tr := InstanceTriple("A", "Zone_Temperature_Sensor")

	assert.True(t, g.Add(tr))
	assert.False(t, g.Add(tr))
	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Contains(tr))
}

func TestGraph_AddPredPoint(t *testing.T) {
	g := New()
	tr := g.AddPredPoint("A", "Zone_Temperature_Sensor", 0.7)

	assert.Equal(t, brick.EntityIRI("A"), tr.Subject)
	assert.Equal(t, brick.RDFType, tr.Predicate)
	conf, ok := g.Confidence(tr)
	require.True(t, ok)
	assert.InDelta(t, 0.7, conf, 1e-9)

	point, ok := g.PointType("A")
	require.True(t, ok)
	assert.Equal(t, "Zone_Temperature_Sensor", point)

	_, ok = g.PointType("B")
	assert.False(t, ok)
}

func TestGraph_InstanceTuples(t *testing.T) {
	g := New()
	g.AddPredPoint("A", "Zone_Temperature_Sensor", 1)
	g.AddPredPoint("B", "none", 1)
	g.Add(Triple{Subject: brick.EntityIRI("C"), Predicate: brick.RDFType, Object: brick.TagsetIRI("Room")})

	tuples := g.InstanceTuples()
	assert.Equal(t, map[string]string{
		"A": "Zone_Temperature_Sensor",
		"B": "none",
	}, tuples)
}

func TestGraph_TriplesIsCopy(t *testing.T) {
	g := New()
	g.AddPredPoint("A", "Zone_Temperature_Sensor", 1)

	triples := g.Triples()
	triples[0].Object = "mutated"

	point, _ := g.PointType("A")
	assert.Equal(t, "Zone_Temperature_Sensor", point)
}

func TestGraph_WriteNTriples(t *testing.T) {
	g := New()
	g.AddPredPoint("A", "Zone_Temperature_Sensor", 1)
	g.AddPredPoint("B", "Supply_Air_Temperature_Setpoint", 1)

	var buf bytes.Buffer
	require.NoError(t, g.WriteNTriples(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "<"+brick.EntityIRI("A")+"> <"+brick.RDFType+"> <"+brick.TagsetIRI("Zone_Temperature_Sensor")+"> .", lines[0])
}
