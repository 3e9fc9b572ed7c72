package geo

import "math"

// Quat is a unit quaternion (w,x,y,z), used for ActorState orientation and
// Transform rotation.
type Quat struct {
	W, X, Y, Z float64
}

// Normalize returns q scaled to unit length. Pose orientation must be a
// unit quaternion per spec §3; callers normalize on ingest.
func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return Quat{W: 1}
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// NEDPositionToECS converts an NED position into the renderer-convention
// ECS frame: input (north, east, down) maps to ECS (east, -down, north),
// per spec §4.3.1.
func NEDPositionToECS(ned Vec3) Vec3 {
	return Vec3{X: ned.Y, Y: -ned.Z, Z: ned.X}
}

// ECSPositionToNED is the inverse of NEDPositionToECS.
func ECSPositionToNED(ecs Vec3) Vec3 {
	return Vec3{X: ecs.Z, Y: ecs.X, Z: -ecs.Y}
}

// The NED->ECS position change of basis (north,east,down)->(east,-down,north)
// has determinant -1: it is a reflection, not a rotation, because NED is
// right-handed and the ECS renderer frame is left-handed. A single
// quaternion sandwich q v q* cannot represent it, so orientation is
// converted via rotation-matrix conjugation R' = M R Mᵀ instead, which
// stays in SO(3) for any orthogonal M (det(M)²·det(R) = det(R)).
var nedToECSBasis = mat3{
	{0, 1, 0},
	{0, 0, -1},
	{1, 0, 0},
}

type mat3 [3][3]float64

func (m mat3) transpose() mat3 {
	var t mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[j][i] = m[i][j]
		}
	}
	return t
}

func (m mat3) mul(o mat3) mat3 {
	var r mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s := 0.0
			for k := 0; k < 3; k++ {
				s += m[i][k] * o[k][j]
			}
			r[i][j] = s
		}
	}
	return r
}

func quatToMat3(q Quat) mat3 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}

func mat3ToQuat(m mat3) Quat {
	trace := m[0][0] + m[1][1] + m[2][2]
	var q Quat
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1.0)
		q = Quat{
			W: 0.25 / s,
			X: (m[2][1] - m[1][2]) * s,
			Y: (m[0][2] - m[2][0]) * s,
			Z: (m[1][0] - m[0][1]) * s,
		}
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := 2.0 * math.Sqrt(1.0+m[0][0]-m[1][1]-m[2][2])
		q = Quat{
			W: (m[2][1] - m[1][2]) / s,
			X: 0.25 * s,
			Y: (m[0][1] + m[1][0]) / s,
			Z: (m[0][2] + m[2][0]) / s,
		}
	case m[1][1] > m[2][2]:
		s := 2.0 * math.Sqrt(1.0+m[1][1]-m[0][0]-m[2][2])
		q = Quat{
			W: (m[0][2] - m[2][0]) / s,
			X: (m[0][1] + m[1][0]) / s,
			Y: 0.25 * s,
			Z: (m[1][2] + m[2][1]) / s,
		}
	default:
		s := 2.0 * math.Sqrt(1.0+m[2][2]-m[0][0]-m[1][1])
		q = Quat{
			W: (m[1][0] - m[0][1]) / s,
			X: (m[0][2] + m[2][0]) / s,
			Y: (m[1][2] + m[2][1]) / s,
			Z: 0.25 * s,
		}
	}
	return q.Normalize()
}

// QuatNEDToECS converts an orientation quaternion expressed in the NED
// frame into the equivalent orientation in the ECS frame.
func QuatNEDToECS(q Quat) Quat {
	r := quatToMat3(q)
	return mat3ToQuat(nedToECSBasis.mul(r).mul(nedToECSBasis.transpose()))
}

// QuatECSToNED is the inverse of QuatNEDToECS.
func QuatECSToNED(q Quat) Quat {
	r := quatToMat3(q)
	mT := nedToECSBasis.transpose()
	return mat3ToQuat(mT.mul(r).mul(nedToECSBasis))
}

// QuatFromEulerRPY builds a unit quaternion from roll/pitch/yaw radians
// using extrinsic Z-Y-X composition (yaw about Z, then pitch about Y, then
// roll about X), matching the NED convention named in spec §4.3.1.
func QuatFromEulerRPY(roll, pitch, yaw float64) Quat {
	cr, sr := math.Cos(roll*0.5), math.Sin(roll*0.5)
	cp, sp := math.Cos(pitch*0.5), math.Sin(pitch*0.5)
	cy, sy := math.Cos(yaw*0.5), math.Sin(yaw*0.5)

	return Quat{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}.Normalize()
}
