package geo

import "testing"

func almostEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestNEDPositionToECSAndBack(t *testing.T) {
	ned := Vec3{X: 10, Y: 20, Z: 30}
	ecs := NEDPositionToECS(ned)
	want := Vec3{X: 20, Y: -30, Z: 10}
	if ecs != want {
		t.Fatalf("NEDPositionToECS(%+v) = %+v, want %+v", ned, ecs, want)
	}
	back := ECSPositionToNED(ecs)
	if back != ned {
		t.Fatalf("round trip through ECS frame: got %+v want %+v", back, ned)
	}
}

func TestTwoActorLoadScenarioConversion(t *testing.T) {
	// Mirrors spec §8 end-to-end scenario 1: actor B at NED (10,0,0)
	// must store ECS transform (0,0,10).
	got := NEDPositionToECS(Vec3{X: 10, Y: 0, Z: 0})
	want := Vec3{X: 0, Y: 0, Z: 10}
	if got != want {
		t.Fatalf("scenario 1 conversion: got %+v want %+v", got, want)
	}
}

func TestWorldCoordinateNEDRoundTrip(t *testing.T) {
	e := WGS84()
	wc := NewWorldCoordinate(37.0, -122.0, 10.0, e)
	wc.SetNED(Vec3{X: 100, Y: -50, Z: 5})
	ned := wc.NED()
	if ned != (Vec3{X: 100, Y: -50, Z: 5}) {
		t.Fatalf("set_ned followed by ned() must return input exactly, got %+v", ned)
	}
}

func TestWorldCoordinateLLARoundTrip(t *testing.T) {
	e := WGS84()
	wc := NewWorldCoordinate(0, 0, 0, e)
	wantLat, wantLon, wantAlt := 10.0, 20.0, 500.0
	wc.SetLLA(wantLat, wantLon, wantAlt)
	lat, lon, alt := wc.LLA()
	if !almostEqual(lat, wantLat, 1e-7) || !almostEqual(lon, wantLon, 1e-7) || !almostEqual(alt, wantAlt, 0.01) {
		t.Fatalf("lla round trip within 1cm: got (%v,%v,%v) want (%v,%v,%v)", lat, lon, alt, wantLat, wantLon, wantAlt)
	}
}

func TestWorldCoordinateECEFAndCartesianStayConsistent(t *testing.T) {
	e := WGS84()
	wc := NewWorldCoordinate(10, 10, 0, e)
	wc.SetECEF(LLAToECEF(12, 11, 100, e))
	lat, lon, alt := wc.LLA()
	if !almostEqual(lat, 12, 1e-6) || !almostEqual(lon, 11, 1e-6) || !almostEqual(alt, 100, 0.01) {
		t.Fatalf("set_ecef must recompute lla, got (%v,%v,%v)", lat, lon, alt)
	}
	wantCartesian := LLAToCartesian(12, 11, 100, 10, 10, 0, e)
	got := wc.Cartesian()
	if !almostEqual(got.X, wantCartesian.X, 1e-6) || !almostEqual(got.Y, wantCartesian.Y, 1e-6) || !almostEqual(got.Z, wantCartesian.Z, 1e-6) {
		t.Fatalf("set_ecef must also recompute cartesian for mutual consistency, got %+v want %+v", got, wantCartesian)
	}
}

func TestQuatNEDToECSRoundTrip(t *testing.T) {
	q := QuatFromEulerRPY(0.1, -0.2, 0.5)
	ecs := QuatNEDToECS(q)
	back := QuatECSToNED(ecs)
	if !almostEqual(back.W, q.W, 1e-9) || !almostEqual(back.X, q.X, 1e-9) ||
		!almostEqual(back.Y, q.Y, 1e-9) || !almostEqual(back.Z, q.Z, 1e-9) {
		t.Fatalf("quaternion NED<->ECS round trip: got %+v want %+v", back, q)
	}
}

func TestQuatConversionPreservesUnitLength(t *testing.T) {
	q := QuatFromEulerRPY(1.2, 0.3, -0.7)
	ecs := QuatNEDToECS(q)
	n := ecs.W*ecs.W + ecs.X*ecs.X + ecs.Y*ecs.Y + ecs.Z*ecs.Z
	if !almostEqual(n, 1.0, 1e-9) {
		t.Fatalf("converted quaternion must stay unit length, got norm^2=%v", n)
	}
}
