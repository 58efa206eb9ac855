// Package events holds the event vocabulary of the interaction sessions, the
// ground-truth timing dictionary recorded with each session and the window
// labeler that turns that dictionary into per-window supervision.
package events

import "fmt"

// Name identifies an event in the ground-truth timing dictionary.
type Name string

// Events detected by the engine.
const (
	Abort    Name = "abort"
	Command  Name = "command"
	Prompt   Name = "prompt"
	Response Name = "response"
	Reward   Name = "reward"
)

// Auxiliary timing slots. They only feed the window labeler.
const (
	Noise0   Name = "noise_0"
	Noise1   Name = "noise_1"
	Audio0   Name = "audio_0"
	Audio1   Name = "audio_1"
	Gesture0 Name = "gesture_0"
	Gesture1 Name = "gesture_1"
)

// Detectable lists the events the engine can confirm, in sorted order.
var Detectable = []Name{Abort, Command, Prompt, Response, Reward}

// IsDetectable reports whether n is one of the five detectable events.
func IsDetectable(n Name) bool {
	for _, d := range Detectable {
		if d == n {
			return true
		}
	}
	return false
}

// Modality is the actor an event is observed from.
type Modality int

const (
	ByRobot Modality = iota + 1
	ByHuman
)

func (m Modality) String() string {
	switch m {
	case ByRobot:
		return "robot"
	case ByHuman:
		return "human"
	}
	return fmt.Sprintf("Modality(%d)", int(m))
}

// ModalityOf returns who produces n. Only the response comes from the human.
func ModalityOf(n Name) Modality {
	if n == Response {
		return ByHuman
	}
	return ByRobot
}

// Class is the discrete output of the audio and video classifiers.
type Class int

const (
	Silence Class = iota
	Robot
	Human
)

// NumClasses is the size of the classifier output space.
const NumClasses = 3

// SequenceChars renders classes in debug strips.
var SequenceChars = [NumClasses]byte{'_', '|', '*'}

// Valid reports whether c is one of the three classes.
func (c Class) Valid() bool { return c >= Silence && c < NumClasses }

func (c Class) String() string {
	switch c {
	case Silence:
		return "silence"
	case Robot:
		return "robot"
	case Human:
		return "human"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// OneHot is a single-row label vector over the classifier classes.
type OneHot [NumClasses]float64

// OneHotOf returns the vector with c set.
func OneHotOf(c Class) OneHot {
	var v OneHot
	v[c] = 1
	return v
}

// Class returns the argmax of v. Ties resolve to the lowest class.
func (v OneHot) Class() Class {
	best := Silence
	for c := Class(1); c < NumClasses; c++ {
		if v[c] > v[best] {
			best = c
		}
	}
	return best
}
