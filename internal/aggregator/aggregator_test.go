package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkatofsky/plastering/internal/brick"
)

func TestAggregate_Perfect(t *testing.T) {
	agg := NewAggregator(DefaultConfig())
	truth := map[string]string{"A": "Zone_Temperature_Sensor", "B": "Supply_Air_Temperature_Setpoint"}

	scores := agg.Aggregate(truth, truth)
	assert.Equal(t, 1.0, scores.Accuracy)
	assert.Equal(t, 1.0, scores.F1)
	assert.Equal(t, 1.0, scores.MacroF1)
	assert.Equal(t, 2, scores.Total)
}

func TestAggregate_Mixed(t *testing.T) {
	agg := NewAggregator(DefaultConfig())
	truth := map[string]string{
		"A": "Zone_Temperature_Sensor",
		"B": "Zone_Temperature_Sensor",
		"C": "Supply_Air_Temperature_Setpoint",
		"D": "Supply_Air_Temperature_Setpoint",
	}
	pred := map[string]string{
		"A": "Zone_Temperature_Sensor",
		"B": "Supply_Air_Temperature_Setpoint",
		"C": "Supply_Air_Temperature_Setpoint",
	}

	scores := agg.Aggregate(truth, pred)
	assert.InDelta(t, 0.5, scores.Accuracy, 1e-9)
	// tp=2 fp=1 fn=2
	assert.InDelta(t, 4.0/7.0, scores.F1, 1e-9)

	require.Len(t, scores.PerClass, 2)
	setpoint := scores.PerClass[0]
	assert.Equal(t, "Supply_Air_Temperature_Setpoint", setpoint.Class)
	assert.InDelta(t, 0.5, setpoint.Precision, 1e-9)
	assert.InDelta(t, 0.5, setpoint.Recall, 1e-9)
	sensor := scores.PerClass[1]
	assert.InDelta(t, 1.0, sensor.Precision, 1e-9)
	assert.InDelta(t, 0.5, sensor.Recall, 1e-9)
	assert.InDelta(t, (0.5+2.0/3.0)/2, scores.MacroF1, 1e-9)
}

func TestAggregate_Empty(t *testing.T) {
	scores := NewAggregator(Config{}).Aggregate(nil, map[string]string{"A": "none"})
	assert.Equal(t, Scores{}, scores)
}

func TestAggregate_CustomMatch(t *testing.T) {
	agg := NewAggregator(Config{Match: brick.SameTagset})
	scores := agg.Aggregate(map[string]string{"A": "none"}, map[string]string{"A": "unknown"})
	assert.Equal(t, 1.0, scores.Accuracy)
}
