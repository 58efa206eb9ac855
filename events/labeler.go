package events

import "github.com/ercarpio/SG-CNN/interval"

// Check maps an annotated event to the class a window overlapping it gets.
type Check struct {
	Event Name
	Class Class
}

// Group is the ordered list of checks for one modality. Later checks win.
type Group struct {
	Name   string
	Checks []Check
}

// AudioGroup labels audio windows: anything the robot says is Robot, the
// participant's spoken answers are Human.
var AudioGroup = Group{
	Name: "audio",
	Checks: []Check{
		{Command, Robot},
		{Prompt, Robot},
		{Reward, Robot},
		{Abort, Robot},
		{Noise0, Robot},
		{Noise1, Robot},
		{Audio0, Human},
		{Audio1, Human},
	},
}

// VideoGroup labels video windows: robot gestures during command and prompt
// are Robot, participant gestures are Human.
var VideoGroup = Group{
	Name: "video",
	Checks: []Check{
		{Command, Robot},
		{Prompt, Robot},
		{Noise0, Robot},
		{Noise1, Robot},
		{Gesture0, Human},
		{Gesture1, Human},
	},
}

// Overlaps reports whether the window w shares frames with the annotated
// interval of n. A missing annotation never overlaps.
func Overlaps(w interval.Interval, t Timing, n Name) bool {
	iv, ok := t[n]
	if !ok {
		return false
	}
	return interval.Relate(w, iv).Known()
}

// LabelWindow derives the ground-truth class of window w for group g.
func LabelWindow(w interval.Interval, t Timing, g Group) OneHot {
	class := Silence
	for _, c := range g.Checks {
		if Overlaps(w, t, c.Event) {
			class = c.Class
		}
	}
	return OneHotOf(class)
}
