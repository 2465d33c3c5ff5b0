package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/zkbot/pkg/robot"
)

func TestBuildStep(t *testing.T) {
	step, err := buildStep("G00", "-140", " ", "-110.5", "20", "90", "1.5")
	require.NoError(t, err)
	assert.Equal(t, robot.PointMove, step.Command)
	require.NotNil(t, step.X)
	assert.Equal(t, -140.0, *step.X)
	assert.Nil(t, step.Y)
	assert.Equal(t, -110.5, *step.Z)
	assert.Equal(t, 90.0, *step.Angle)
	assert.Equal(t, 1500*time.Millisecond, step.Delay)
}

func TestBuildStep_Errors(t *testing.T) {
	_, err := buildStep("G02", "", "", "", "20", "", "0.5")
	assert.Error(t, err)
	_, err = buildStep("G01", "ten", "", "", "20", "", "0.5")
	assert.Error(t, err)
	_, err = buildStep("G01", "", "", "", "", "", "0.5")
	assert.Error(t, err)
}

func TestStepFieldsRoundTrip(t *testing.T) {
	assert.Equal(t, "", formatOptional(nil))
	assert.Equal(t, "-12.25", formatOptional(robot.Float(-12.25)))

	assert.NoError(t, validateOptional(""))
	assert.Error(t, validateNumber(""))
	assert.Error(t, validateNumber("x"))
	assert.NoError(t, validateNumber("0.5"))
}

func TestWaitText(t *testing.T) {
	assert.Equal(t, "now", waitText(0))
	assert.Equal(t, "2 minutes", waitText(2*time.Minute))
}

func TestTeachSession_LeaveAsksOnlyWhenDirty(t *testing.T) {
	var asked []string
	answer := false
	s := &teachSession{
		prog:    robot.NewProgram("kiwi"),
		confirm: func(title string) bool { asked = append(asked, title); return answer },
	}
	var err error
	s.saved, err = s.prog.Fingerprint()
	require.NoError(t, err)

	assert.True(t, s.leave(), "a clean program leaves without asking")
	assert.Empty(t, asked)

	require.NoError(t, s.prog.AddStep(robot.NewStep(robot.LinearMove)))
	assert.False(t, s.leave(), "declining keeps the session open")
	assert.Equal(t, []string{"Discard unsaved changes?"}, asked)

	answer = true
	assert.True(t, s.leave())
	assert.Len(t, asked, 2)
}
