package joints

import (
	"github.com/banshee-data/movement.screen/internal/geom"
	"github.com/banshee-data/movement.screen/internal/pose"
)

// Joint names.
const (
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
	LeftElbow     = "left_elbow"
	RightElbow    = "right_elbow"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
	LeftKnee      = "left_knee"
	RightKnee     = "right_knee"
	LeftAnkle     = "left_ankle"
	RightAnkle    = "right_ankle"
	LeftTorso     = "left_torso_alignment"
	RightTorso    = "right_torso_alignment"
)

// Definition describes one joint: the angle at Vertex between A and B,
// and the target band [Min, Max] in degrees.
type Definition struct {
	Name   string
	A      int
	Vertex int
	B      int
	Min    float64
	Max    float64
	Plane  geom.Plane
}

// Landmarks returns the three landmark indices in (A, Vertex, B) order.
func (d Definition) Landmarks() [3]int { return [3]int{d.A, d.Vertex, d.B} }

// Catalog is the fixed, ordered joint catalog.
var Catalog = []Definition{
	{Name: LeftShoulder, A: pose.LeftElbow, Vertex: pose.LeftShoulder, B: pose.LeftHip, Min: 150, Max: 180},
	{Name: RightShoulder, A: pose.RightElbow, Vertex: pose.RightShoulder, B: pose.RightHip, Min: 150, Max: 180},
	{Name: LeftElbow, A: pose.LeftShoulder, Vertex: pose.LeftElbow, B: pose.LeftWrist, Min: 150, Max: 180},
	{Name: RightElbow, A: pose.RightShoulder, Vertex: pose.RightElbow, B: pose.RightWrist, Min: 150, Max: 180},
	{Name: LeftHip, A: pose.LeftShoulder, Vertex: pose.LeftHip, B: pose.LeftKnee, Min: 45, Max: 180},
	{Name: RightHip, A: pose.RightShoulder, Vertex: pose.RightHip, B: pose.RightKnee, Min: 45, Max: 180},
	{Name: LeftKnee, A: pose.LeftHip, Vertex: pose.LeftKnee, B: pose.LeftAnkle, Min: 30, Max: 180},
	{Name: RightKnee, A: pose.RightHip, Vertex: pose.RightKnee, B: pose.RightAnkle, Min: 30, Max: 180},
	{Name: LeftAnkle, A: pose.LeftKnee, Vertex: pose.LeftAnkle, B: pose.LeftFootIndex, Min: 60, Max: 120},
	{Name: RightAnkle, A: pose.RightKnee, Vertex: pose.RightAnkle, B: pose.RightFootIndex, Min: 60, Max: 120},
	{Name: LeftTorso, A: pose.LeftShoulder, Vertex: pose.LeftHip, B: pose.LeftAnkle, Min: 160, Max: 180},
	{Name: RightTorso, A: pose.RightShoulder, Vertex: pose.RightHip, B: pose.RightAnkle, Min: 160, Max: 180},
}

// Lookup returns the catalog definition with the given name.
func Lookup(name string) (Definition, bool) {
	for _, d := range Catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
