package geo

// WorldCoordinate caches all four representations of a single point (NED,
// LLA, ECEF, cartesian) alongside the origin and ellipsoid they were
// derived against, ported from aerosim-core's WorldCoordinate.
//
// Unlike the upstream type, every setter here recomputes all three other
// representations, including SetECEF and SetCartesian (left as dead,
// commented-out code upstream) — see DESIGN.md for why this port closes
// that gap rather than reproducing it: spec §3 states the derived-view
// invariant as "any mutation sets all representations", which the
// upstream's own SetECEF/SetCartesian violated.
type WorldCoordinate struct {
	ned       Vec3
	lla       Vec3 // X=lat, Y=lon, Z=alt
	ecef      Vec3
	cartesian Vec3
	originLLA Vec3 // X=lat, Y=lon, Z=alt
	ellipsoid Ellipsoid
}

// NewWorldCoordinate constructs a WorldCoordinate at the NED origin (0,0,0)
// for the given geodetic origin and ellipsoid.
func NewWorldCoordinate(originLat, originLon, originAlt float64, e Ellipsoid) *WorldCoordinate {
	wc := &WorldCoordinate{
		originLLA: Vec3{originLat, originLon, originAlt},
		ellipsoid: e,
	}
	wc.SetNED(Vec3{})
	return wc
}

// FromNED constructs a WorldCoordinate from an NED point.
func FromNED(ned Vec3, originLat, originLon, originAlt float64, e Ellipsoid) *WorldCoordinate {
	wc := NewWorldCoordinate(originLat, originLon, originAlt, e)
	wc.SetNED(ned)
	return wc
}

// FromLLA constructs a WorldCoordinate from a geodetic point.
func FromLLA(lat, lon, alt, originLat, originLon, originAlt float64, e Ellipsoid) *WorldCoordinate {
	wc := NewWorldCoordinate(originLat, originLon, originAlt, e)
	wc.SetLLA(lat, lon, alt)
	return wc
}

// FromECEF constructs a WorldCoordinate from an ECEF point.
func FromECEF(ecef Vec3, originLat, originLon, originAlt float64, e Ellipsoid) *WorldCoordinate {
	wc := NewWorldCoordinate(originLat, originLon, originAlt, e)
	wc.SetECEF(ecef)
	return wc
}

// FromCartesian constructs a WorldCoordinate from a local cartesian point.
func FromCartesian(point Vec3, originLat, originLon, originAlt float64, e Ellipsoid) *WorldCoordinate {
	wc := NewWorldCoordinate(originLat, originLon, originAlt, e)
	wc.SetCartesian(point)
	return wc
}

// SetNED sets the canonical NED position and recomputes LLA/ECEF/cartesian.
func (wc *WorldCoordinate) SetNED(ned Vec3) {
	wc.ned = ned
	lat, lon, alt := NEDToLLA(ned, wc.originLLA.X, wc.originLLA.Y, wc.originLLA.Z, wc.ellipsoid)
	wc.lla = Vec3{lat, lon, alt}
	wc.ecef = NEDToECEF(ned, wc.originLLA.X, wc.originLLA.Y, wc.originLLA.Z, wc.ellipsoid)
	wc.cartesian = NEDToCartesian(ned, wc.originLLA.X, wc.originLLA.Y, wc.originLLA.Z, wc.ellipsoid)
}

// NED returns the cached NED position.
func (wc *WorldCoordinate) NED() Vec3 { return wc.ned }

// SetLLA sets the canonical geodetic position and recomputes the rest.
func (wc *WorldCoordinate) SetLLA(lat, lon, alt float64) {
	wc.lla = Vec3{lat, lon, alt}
	wc.ned = LLAToNED(lat, lon, alt, wc.originLLA.X, wc.originLLA.Y, wc.originLLA.Z, wc.ellipsoid)
	wc.ecef = LLAToECEF(lat, lon, alt, wc.ellipsoid)
	wc.cartesian = LLAToCartesian(lat, lon, alt, wc.originLLA.X, wc.originLLA.Y, wc.originLLA.Z, wc.ellipsoid)
}

// LLA returns the cached geodetic position as (lat, lon, alt).
func (wc *WorldCoordinate) LLA() (lat, lon, alt float64) {
	return wc.lla.X, wc.lla.Y, wc.lla.Z
}

// SetECEF sets the canonical ECEF position and recomputes the rest.
func (wc *WorldCoordinate) SetECEF(ecef Vec3) {
	wc.ecef = ecef
	wc.ned = ECEFToNED(ecef, wc.originLLA.X, wc.originLLA.Y, wc.originLLA.Z, wc.ellipsoid)
	lat, lon, alt := ECEFToLLA(ecef, wc.ellipsoid)
	wc.lla = Vec3{lat, lon, alt}
	wc.cartesian = ECEFToCartesian(ecef, wc.originLLA.X, wc.originLLA.Y, wc.originLLA.Z, wc.ellipsoid)
}

// ECEF returns the cached ECEF position.
func (wc *WorldCoordinate) ECEF() Vec3 { return wc.ecef }

// SetCartesian sets the canonical local cartesian position and recomputes
// the rest.
func (wc *WorldCoordinate) SetCartesian(point Vec3) {
	wc.cartesian = point
	wc.ned = CartesianToNED(point, wc.originLLA.X, wc.originLLA.Y, wc.originLLA.Z, wc.ellipsoid)
	lat, lon, alt := CartesianToLLA(point, wc.originLLA.X, wc.originLLA.Y, wc.originLLA.Z, wc.ellipsoid)
	wc.lla = Vec3{lat, lon, alt}
	wc.ecef = CartesianToECEF(point, wc.originLLA.X, wc.originLLA.Y, wc.originLLA.Z, wc.ellipsoid)
}

// Cartesian returns the cached local cartesian position.
func (wc *WorldCoordinate) Cartesian() Vec3 { return wc.cartesian }

// Origin returns the geodetic origin this coordinate was derived against.
func (wc *WorldCoordinate) Origin() (lat, lon, alt float64) {
	return wc.originLLA.X, wc.originLLA.Y, wc.originLLA.Z
}

// Ellipsoid returns the reference ellipsoid this coordinate was derived
// against.
func (wc *WorldCoordinate) Ellipsoid() Ellipsoid { return wc.ellipsoid }
