package robot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	fixClock(t)
	path := filepath.Join(t.TempDir(), "juices", "mango.json")

	p := NewProgram("mango")
	p.Description = "pour and deliver"
	require.NoError(t, p.AddStep(moveTo(-70, -65, -105)))
	pour := NewStep(PointMove)
	pour.Angle = Float(120)
	pour.Delay = 2500 * time.Millisecond
	require.NoError(t, p.AddStep(pour))
	require.NoError(t, p.AddStep(NewStep(LinearMove)))

	require.NoError(t, SaveProgram(path, p))
	loaded, err := LoadProgram(path)
	require.NoError(t, err)

	assert.Equal(t, p.Name, loaded.Name)
	assert.Equal(t, p.Description, loaded.Description)
	assert.Equal(t, p.Version, loaded.Version)
	assert.True(t, p.CreatedAt.Equal(loaded.CreatedAt))
	assert.True(t, p.ModifiedAt.Equal(loaded.ModifiedAt))
	require.Equal(t, p.Len(), loaded.Len())
	for i := range p.Steps {
		assert.True(t, p.Steps[i].Equal(loaded.Steps[i]), "step %d: %s != %s", i, p.Steps[i], loaded.Steps[i])
	}
}

func TestUnmarshalProgram_Document(t *testing.T) {
	data := []byte(`{
  "name": "origin",
  "description": "home the arm",
  "version": "2.1",
  "created_at": "2025-11-03T09:15:42.123456",
  "modified_at": "2025-11-04T10:00:00",
  "steps": [
    {"cmd": "G00", "x": 0, "y": 0, "z": 100, "f": 40, "delay": 1.5, "do0": null},
    {"cmd": "G01", "x": null, "y": null, "z": null, "f": 20, "delay": 0.5, "do0": 90}
  ]
}`)
	p, err := UnmarshalProgram(data, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "origin", p.Name)
	assert.Equal(t, "2.1", p.Version)
	assert.True(t, time.Date(2025, 11, 3, 9, 15, 42, 123456000, time.UTC).Equal(p.CreatedAt))
	require.Len(t, p.Steps, 2)

	s := p.Steps[0]
	assert.Equal(t, PointMove, s.Command)
	assert.Equal(t, 100.0, *s.Z)
	assert.Equal(t, 40.0, s.FeedRate)
	assert.Equal(t, 1500*time.Millisecond, s.Delay)
	assert.Nil(t, s.Angle)

	s = p.Steps[1]
	assert.False(t, s.HasMove())
	assert.Equal(t, 90.0, *s.Angle)
}

func TestUnmarshalProgram_Defaults(t *testing.T) {
	p, err := UnmarshalProgram([]byte(`{"steps": [{"x": 5}]}`), "file")
	require.NoError(t, err)
	assert.Equal(t, DefaultProgramName, p.Name)
	assert.Equal(t, DefaultVersion, p.Version)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, LinearMove, p.Steps[0].Command)
	assert.Equal(t, DefaultFeedRate, p.Steps[0].FeedRate)
	assert.Equal(t, DefaultDelay, p.Steps[0].Delay)
}

func TestUnmarshalProgram_UnknownCommand(t *testing.T) {
	_, err := UnmarshalProgram([]byte(`{"steps": [{"cmd": "G02", "x": 5}]}`), "file")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestLoadProgram_Legacy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pick_cup.json")
	legacy := `[
  {"cmd": "G00", "x": -140, "y": -70, "z": -65, "f": 20, "delay": 1, "do0": null},
  {"cmd": "G01", "x": null, "y": null, "z": -110, "f": 10, "delay": 0.5, "do0": null},
  {"cmd": "G01", "x": null, "y": null, "z": null, "f": 20, "delay": 0.8, "do0": 30}
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	p, err := LoadProgram(path)
	require.NoError(t, err)
	assert.Equal(t, "pick_cup", p.Name)
	assert.Equal(t, DefaultVersion, p.Version)
	assert.False(t, p.CreatedAt.IsZero())
	require.Len(t, p.Steps, 3)
	assert.Nil(t, p.Steps[1].X)
	assert.Equal(t, -110.0, *p.Steps[1].Z)
}

func TestLoadProgram_Missing(t *testing.T) {
	_, err := LoadProgram(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
