package robot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRange_Values(t *testing.T) {
	tests := []struct {
		name     string
		r        SweepRange
		expected []float64
	}{
		{"ascending", SweepRange{-20, 35, 10}, []float64{-20, -10, 0, 10, 20, 30}},
		{"descending", SweepRange{-60, -90, 15}, []float64{-60, -75, -90}},
		{"negative step", SweepRange{0, 20, -10}, []float64{0, 10, 20}},
		{"single", SweepRange{-103, -103, 15}, []float64{-103}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.r.Values()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := SweepRange{0, 10, 0}.Values()
	assert.Error(t, err)
}

func TestZone_Points(t *testing.T) {
	z := Zone{
		X: SweepRange{-103, -103, 15},
		Y: SweepRange{-60, -50, 10},
		Z: SweepRange{-110, -90, 10},
	}
	points, err := z.Points()
	require.NoError(t, err)
	require.Len(t, points, 6)
	assert.Equal(t, Point{-103, -60, -110}, points[0])
	assert.Equal(t, Point{-103, -60, -100}, points[1])
	assert.Equal(t, Point{-103, -50, -90}, points[5])
}

func TestPoint_Program(t *testing.T) {
	p := Point{1, 2, 3}.Program("sweep", 1)
	require.Equal(t, 1, p.Len())
	s := p.Steps[0]
	assert.Equal(t, PointMove, s.Command)
	assert.Equal(t, "0x550xAA G00 X1.0 Y2.0 Z3.0 F20.0 0xAA0x55", string(Frames(s)[0]))
}

func TestDefaultZones_Expand(t *testing.T) {
	counts := map[string]int{}
	for name, z := range DefaultZones() {
		pts, err := z.Points()
		require.NoError(t, err, name)
		counts[name] = len(pts)
	}
	assert.Equal(t, map[string]int{
		"delivery_area":  6 * 2 * 2,
		"juice_dispense": 3 * 4 * 2,
		"ice_dispense":   1 * 1 * 4,
		"cup_pick":       4 * 5 * 5,
	}, counts)
}
