package robot

import (
	"strconv"
	"strings"
)

// Frame delimiters. The vendor protocol sends these as literal ASCII
// text, not as the bytes 0x55 0xAA.
const (
	FramePreamble  = "0x550xAA"
	FramePostamble = "0xAA0x55"
)

// Frame is one delimited command unit sent over the serial line.
type Frame string

// Bytes returns the frame as it is written to the wire.
func (f Frame) Bytes() []byte {
	return []byte(f)
}

// Body returns the G-code between the delimiters.
func (f Frame) Body() string {
	s := strings.TrimPrefix(string(f), FramePreamble+" ")
	return strings.TrimSuffix(s, " "+FramePostamble)
}

// NewFrame wraps a G-code body in the frame delimiters.
func NewFrame(body string) Frame {
	return Frame(FramePreamble + " " + body + " " + FramePostamble)
}

// ActuatorFrame builds the G06 end-effector frame for the given angle.
func ActuatorFrame(angle float64) Frame {
	return NewFrame("G06 D7 S1 A" + formatNumber(angle))
}

// MoveFrame builds the move frame for s, or returns false when no axis is set.
// Unset axes are omitted, never sent as zero.
func MoveFrame(s Step) (Frame, bool) {
	if !s.HasMove() {
		return "", false
	}
	parts := []string{string(s.Command)}
	if s.X != nil {
		parts = append(parts, "X"+formatNumber(*s.X))
	}
	if s.Y != nil {
		parts = append(parts, "Y"+formatNumber(*s.Y))
	}
	if s.Z != nil {
		parts = append(parts, "Z"+formatNumber(*s.Z))
	}
	parts = append(parts, "F"+formatNumber(s.FeedRate))
	return NewFrame(strings.Join(parts, " ")), true
}

// Frames returns the zero, one or two frames for a step, actuator first.
func Frames(s Step) []Frame {
	var frames []Frame
	if s.Angle != nil {
		frames = append(frames, ActuatorFrame(*s.Angle))
	}
	if f, ok := MoveFrame(s); ok {
		frames = append(frames, f)
	}
	return frames
}

// formatNumber renders v in shortest form, except that integral values
// keep a trailing ".0". Whole numbers read from a document as JSON
// integers render the same way: 10 and 10.0 both become "10.0".
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
