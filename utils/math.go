package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// EulerToQuat converts XYZ euler angles in radians. X is applied first.
func EulerToQuat(v mgl32.Vec3) mgl32.Quat {
	return mgl32.AnglesToQuat(v[2], v[1], v[0], mgl32.ZYX).Normalize()
}

// QuatToEuler returns XYZ euler angles in radians.
func QuatToEuler(q mgl32.Quat) (e mgl32.Vec3) {
	sinr_cosp := float64(2 * (q.W*q.X() + q.Y()*q.Z()))
	cosr_cosp := float64(1 - 2*(q.X()*q.X()+q.Y()*q.Y()))

	e[0] = float32(math.Atan2(sinr_cosp, cosr_cosp))

	sinp := float64(2 * (q.W*q.Y() - q.Z()*q.X()))
	if math.Abs(sinp) >= 1 {
		e[1] = math.Pi / 2
		if sinp < 0 {
			e[1] *= -1
		}
	} else {
		e[1] = float32(math.Asin(sinp))
	}

	siny_cosp := float64(2 * (q.W*q.Z() + q.X()*q.Y()))
	cosy_cosp := float64(1 - 2*(q.Y()*q.Y()+q.Z()*q.Z()))
	e[2] = float32(math.Atan2(siny_cosp, cosy_cosp))

	return e
}

// QuatToAngleAxis returns the rotation angle in degrees and a unit axis.
// Identity yields angle 0 around Z.
func QuatToAngleAxis(q mgl32.Quat) (float32, mgl32.Vec3) {
	q = q.Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	s := q.V.Len()
	if s < 1e-6 {
		return 0, mgl32.Vec3{0, 0, 1}
	}
	angle := 2 * math.Atan2(float64(s), float64(q.W))
	return mgl32.RadToDeg(float32(angle)), q.V.Mul(1 / s)
}

// Decompose splits an affine matrix into translation, rotation and scale.
// Shear is lost, negative scale is folded into X.
func Decompose(m mgl32.Mat4) (translation mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) {
	translation = m.Col(3).Vec3()
	basis := [3]mgl32.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	for i := range basis {
		scale[i] = basis[i].Len()
	}
	if m.Mat3().Det() < 0 {
		scale[0] = -scale[0]
	}
	var rm mgl32.Mat3
	for i := range basis {
		if scale[i] != 0 {
			basis[i] = basis[i].Mul(1 / scale[i])
		}
		rm.SetCol(i, basis[i])
	}
	rotation = mgl32.Mat4ToQuat(rm.Mat4()).Normalize()
	return translation, rotation, scale
}

func IsPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

func FloatArray32to64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
