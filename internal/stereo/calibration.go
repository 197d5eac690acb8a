package stereo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/movement.screen/internal/geom"
)

// ErrNotCalibrated is returned when processing is requested without a
// calibrated rig.
var ErrNotCalibrated = errors.New("stereo rig not calibrated")

// CameraParams describes one camera of the rig. Rotation and Translation
// map world coordinates into the camera frame (x_cam = R·X + t).
type CameraParams struct {
	Intrinsic   geom.Mat3  `json:"intrinsic"`
	Distortion  []float64  `json:"distortion,omitempty"`
	Rotation    geom.Mat3  `json:"rotation"`
	Translation geom.Vec3  `json:"translation"`
	Projection  geom.Mat34 `json:"projection"`
}

// NewCameraParams builds camera parameters and the projection K·[R|t].
func NewCameraParams(K, R geom.Mat3, t geom.Vec3, distortion []float64) CameraParams {
	return CameraParams{
		Intrinsic:   K,
		Distortion:  distortion,
		Rotation:    R,
		Translation: t,
		Projection:  composeProjection(K, R, t),
	}
}

// FocalLength returns the horizontal focal length in pixels.
func (c CameraParams) FocalLength() float64 { return c.Intrinsic[0][0] }

// Center returns the camera centre in world coordinates, the null space of
// the projection matrix.
func (c CameraParams) Center() (geom.Vec3, error) {
	var m geom.Mat3
	for r := 0; r < 3; r++ {
		for col := 0; col < 3; col++ {
			m[r][col] = c.Projection[r][col]
		}
	}
	inv, err := geom.Inverse3x3(m)
	if err != nil {
		return geom.Vec3{}, fmt.Errorf("camera centre: %w", err)
	}
	p4 := geom.Vec3{X: c.Projection[0][3], Y: c.Projection[1][3], Z: c.Projection[2][3]}
	return inv.MulVec(p4).Scale(-1), nil
}

// Calibration is the stereo rig calibration. It is read-only once a
// Processor holds it.
type Calibration struct {
	Camera1      CameraParams `json:"camera1"`
	Camera2      CameraParams `json:"camera2"`
	Fundamental  geom.Mat3    `json:"fundamental"`
	Essential    geom.Mat3    `json:"essential"`
	Baseline     float64      `json:"baseline"` // meters between camera centres
	ImageWidth   int          `json:"image_width"`
	ImageHeight  int          `json:"image_height"`
	IsCalibrated bool         `json:"is_calibrated"`
	CalibratedAt time.Time    `json:"calibrated_at,omitempty"`
}

// NewCalibration derives the relative pose, essential and fundamental
// matrices and the baseline for two cameras and marks the result
// calibrated.
func NewCalibration(cam1, cam2 CameraParams, width, height int, at time.Time) (*Calibration, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	r1 := toDense(cam1.Rotation)
	r2 := toDense(cam2.Rotation)

	// Relative pose of camera 2 with respect to camera 1.
	var rel mat.Dense
	rel.Mul(r2, r1.T())
	t1 := mat.NewVecDense(3, []float64{cam1.Translation.X, cam1.Translation.Y, cam1.Translation.Z})
	var rt1 mat.VecDense
	rt1.MulVec(&rel, t1)
	t := geom.Vec3{
		X: cam2.Translation.X - rt1.AtVec(0),
		Y: cam2.Translation.Y - rt1.AtVec(1),
		Z: cam2.Translation.Z - rt1.AtVec(2),
	}

	var essential mat.Dense
	essential.Mul(skew(t), &rel)

	var k1inv, k2inv mat.Dense
	if err := k1inv.Inverse(toDense(cam1.Intrinsic)); err != nil {
		return nil, fmt.Errorf("invert camera 1 intrinsics: %w", err)
	}
	if err := k2inv.Inverse(toDense(cam2.Intrinsic)); err != nil {
		return nil, fmt.Errorf("invert camera 2 intrinsics: %w", err)
	}
	var fundamental, tmp mat.Dense
	tmp.Mul(k2inv.T(), &essential)
	fundamental.Mul(&tmp, &k1inv)

	c := &Calibration{
		Camera1:      cam1,
		Camera2:      cam2,
		Essential:    fromDense(&essential),
		Fundamental:  fromDense(&fundamental),
		ImageWidth:   width,
		ImageHeight:  height,
		IsCalibrated: true,
		CalibratedAt: at,
	}
	c1, err := cam1.Center()
	if err != nil {
		return nil, err
	}
	c2, err := cam2.Center()
	if err != nil {
		return nil, err
	}
	c.Baseline = geom.Distance(c1, c2)
	return c, nil
}

// FromProjections builds a calibration from two projection matrices alone,
// as produced by an external calibration tool. Only the projections and
// baseline are populated.
func FromProjections(P1, P2 geom.Mat34, width, height int) (*Calibration, error) {
	c := &Calibration{
		Camera1:      CameraParams{Projection: P1},
		Camera2:      CameraParams{Projection: P2},
		ImageWidth:   width,
		ImageHeight:  height,
		IsCalibrated: true,
	}
	c1, err := c.Camera1.Center()
	if err != nil {
		return nil, err
	}
	c2, err := c.Camera2.Center()
	if err != nil {
		return nil, err
	}
	c.Baseline = geom.Distance(c1, c2)
	return c, nil
}

// Validate checks the calibration can drive a Processor.
func (c *Calibration) Validate() error {
	if c == nil || !c.IsCalibrated {
		return ErrNotCalibrated
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return fmt.Errorf("invalid image size %dx%d", c.ImageWidth, c.ImageHeight)
	}
	if c.Baseline <= 0 {
		return fmt.Errorf("invalid baseline %v", c.Baseline)
	}
	return nil
}

// EpipolarError returns x2ᵀ·F·x1 for a pixel correspondence. It is near
// zero for a consistent calibration.
func (c *Calibration) EpipolarError(p1, p2 geom.Point2) float64 {
	x1 := geom.Vec3{X: p1.X, Y: p1.Y, Z: 1}
	x2 := geom.Vec3{X: p2.X, Y: p2.Y, Z: 1}
	return x2.Dot(c.Fundamental.MulVec(x1))
}

// LoadCalibration reads a calibration JSON file.
func LoadCalibration(path string) (*Calibration, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("calibration file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}
	var c Calibration
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse calibration JSON: %w", err)
	}
	return &c, nil
}

// Save writes the calibration as indented JSON.
func (c *Calibration) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode calibration: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), data, 0o644); err != nil {
		return fmt.Errorf("failed to write calibration file: %w", err)
	}
	return nil
}

func composeProjection(K, R geom.Mat3, t geom.Vec3) geom.Mat34 {
	rt := mat.NewDense(3, 4, []float64{
		R[0][0], R[0][1], R[0][2], t.X,
		R[1][0], R[1][1], R[1][2], t.Y,
		R[2][0], R[2][1], R[2][2], t.Z,
	})
	var p mat.Dense
	p.Mul(toDense(K), rt)
	var out geom.Mat34
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			out[r][c] = p.At(r, c)
		}
	}
	return out
}

func skew(t geom.Vec3) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -t.Z, t.Y,
		t.Z, 0, -t.X,
		-t.Y, t.X, 0,
	})
}

func toDense(m geom.Mat3) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

func fromDense(d mat.Matrix) geom.Mat3 {
	var m geom.Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] = d.At(r, c)
		}
	}
	return m
}
