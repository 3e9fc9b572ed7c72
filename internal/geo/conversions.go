package geo

import "math"

// Vec3 is a plain 3-component vector used for both NED and cartesian
// points, avoiding a proliferation of near-identical tuple types.
type Vec3 struct {
	X, Y, Z float64
}

// LLAToECEF converts geodetic latitude/longitude/altitude (degrees,
// degrees, meters) to earth-centered-earth-fixed cartesian coordinates.
func LLAToECEF(latDeg, lonDeg, alt float64, e Ellipsoid) Vec3 {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	cosLat, sinLat := math.Cos(lat), math.Sin(lat)
	cosLon, sinLon := math.Cos(lon), math.Sin(lon)

	e2 := e.FlatteningFactor * (2.0 - e.FlatteningFactor)
	n := e.EquatorialRadius / math.Sqrt(1.0-e2*sinLat*sinLat)

	x := (n + alt) * cosLat * cosLon
	y := (n + alt) * cosLat * sinLon
	z := ((1.0-e.FlatteningFactor)*(1.0-e.FlatteningFactor)*n + alt) * sinLat
	return Vec3{x, y, z}
}

// ECEFToLLA converts ECEF cartesian coordinates back to geodetic
// latitude/longitude (degrees) and altitude (meters).
func ECEFToLLA(ecef Vec3, e Ellipsoid) (lat, lon, alt float64) {
	er2 := e.EquatorialRadius * e.EquatorialRadius
	pr2 := e.PolarRadius * e.PolarRadius
	e2 := (er2 - pr2) / er2
	ep2 := (er2 - pr2) / pr2

	p := math.Hypot(ecef.X, ecef.Y)
	theta := math.Atan2(ecef.Z*e.EquatorialRadius, p*e.PolarRadius)

	latRad := math.Atan2(ecef.Z+ep2*e.PolarRadius*cube(math.Sin(theta)), p-e2*e.EquatorialRadius*cube(math.Cos(theta)))
	lonRad := math.Atan2(ecef.Y, ecef.X)

	n := e.EquatorialRadius / math.Sqrt(1.0-e2*math.Sin(latRad)*math.Sin(latRad))
	altitude := p/math.Cos(latRad) - n

	return latRad * 180 / math.Pi, lonRad * 180 / math.Pi, altitude
}

func cube(v float64) float64 { return v * v * v }

// NEDToECEF converts a north/east/down offset relative to an LLA origin
// into ECEF coordinates.
func NEDToECEF(ned Vec3, originLat, originLon, originAlt float64, e Ellipsoid) Vec3 {
	origin := LLAToECEF(originLat, originLon, originAlt, e)

	lat := originLat * math.Pi / 180
	lon := originLon * math.Pi / 180
	cosLat, sinLat := math.Cos(lat), math.Sin(lat)
	cosLon, sinLon := math.Cos(lon), math.Sin(lon)

	dx := -sinLat*cosLon*ned.X - sinLon*ned.Y - cosLat*cosLon*ned.Z
	dy := -sinLat*sinLon*ned.X + cosLon*ned.Y - cosLat*sinLon*ned.Z
	dz := cosLat*ned.X - sinLat*ned.Z

	return Vec3{origin.X + dx, origin.Y + dy, origin.Z + dz}
}

// ECEFToNED converts an ECEF point into north/east/down relative to an LLA
// origin.
func ECEFToNED(ecef Vec3, originLat, originLon, originAlt float64, e Ellipsoid) Vec3 {
	origin := LLAToECEF(originLat, originLon, originAlt, e)
	dx := ecef.X - origin.X
	dy := ecef.Y - origin.Y
	dz := ecef.Z - origin.Z

	lat := originLat * math.Pi / 180
	lon := originLon * math.Pi / 180
	cosLat, sinLat := math.Cos(lat), math.Sin(lat)
	cosLon, sinLon := math.Cos(lon), math.Sin(lon)

	north := -sinLat*cosLon*dx - sinLat*sinLon*dy + cosLat*dz
	east := -sinLon*dx + cosLon*dy
	down := -cosLat*cosLon*dx - cosLat*sinLon*dy - sinLat*dz

	return Vec3{north, east, down}
}

// LLAToNED converts geodetic coordinates to NED relative to an origin.
func LLAToNED(latDeg, lonDeg, alt, originLat, originLon, originAlt float64, e Ellipsoid) Vec3 {
	ecef := LLAToECEF(latDeg, lonDeg, alt, e)
	return ECEFToNED(ecef, originLat, originLon, originAlt, e)
}

// NEDToLLA converts an NED offset relative to an origin back to geodetic
// coordinates.
func NEDToLLA(ned Vec3, originLat, originLon, originAlt float64, e Ellipsoid) (lat, lon, alt float64) {
	ecef := NEDToECEF(ned, originLat, originLon, originAlt, e)
	return ECEFToLLA(ecef, e)
}

// LLAToCartesian converts geodetic coordinates to a local cartesian frame
// (ECEF minus origin ECEF).
func LLAToCartesian(latDeg, lonDeg, alt, originLat, originLon, originAlt float64, e Ellipsoid) Vec3 {
	point := LLAToECEF(latDeg, lonDeg, alt, e)
	origin := LLAToECEF(originLat, originLon, originAlt, e)
	return Vec3{point.X - origin.X, point.Y - origin.Y, point.Z - origin.Z}
}

// NEDToCartesian converts an NED offset to the local cartesian frame.
func NEDToCartesian(ned Vec3, originLat, originLon, originAlt float64, e Ellipsoid) Vec3 {
	ecef := NEDToECEF(ned, originLat, originLon, originAlt, e)
	origin := LLAToECEF(originLat, originLon, originAlt, e)
	return Vec3{ecef.X - origin.X, ecef.Y - origin.Y, ecef.Z - origin.Z}
}

// CartesianToNED converts a local cartesian point back to NED relative to
// the origin.
func CartesianToNED(point Vec3, originLat, originLon, originAlt float64, e Ellipsoid) Vec3 {
	origin := LLAToECEF(originLat, originLon, originAlt, e)
	ecef := Vec3{origin.X + point.X, origin.Y + point.Y, origin.Z + point.Z}
	return ECEFToNED(ecef, originLat, originLon, originAlt, e)
}

// CartesianToLLA converts a local cartesian point back to geodetic
// coordinates.
func CartesianToLLA(point Vec3, originLat, originLon, originAlt float64, e Ellipsoid) (lat, lon, alt float64) {
	origin := LLAToECEF(originLat, originLon, originAlt, e)
	ecef := Vec3{origin.X + point.X, origin.Y + point.Y, origin.Z + point.Z}
	return ECEFToLLA(ecef, e)
}

// ECEFToCartesian converts an ECEF point into the local cartesian frame.
func ECEFToCartesian(ecef Vec3, originLat, originLon, originAlt float64, e Ellipsoid) Vec3 {
	origin := LLAToECEF(originLat, originLon, originAlt, e)
	return Vec3{ecef.X - origin.X, ecef.Y - origin.Y, ecef.Z - origin.Z}
}

// CartesianToECEF converts a local cartesian point into ECEF.
func CartesianToECEF(point Vec3, originLat, originLon, originAlt float64, e Ellipsoid) Vec3 {
	origin := LLAToECEF(originLat, originLon, originAlt, e)
	return Vec3{origin.X + point.X, origin.Y + point.Y, origin.Z + point.Z}
}

// HaversineDistanceMeters returns the great-circle distance between two
// geodetic points, supplemented from aerosim-core's geo helpers for
// trajectory/waypoint tooling.
func HaversineDistanceMeters(lat1, lon1, lat2, lon2 float64, e Ellipsoid) float64 {
	r := e.EquatorialRadius
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return r * c
}

// BearingDeg returns the initial bearing in degrees from point 1 to point
// 2, supplemented for waypoint tooling alongside HaversineDistanceMeters.
func BearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLambda) * math.Cos(p2)
	x := math.Cos(p1)*math.Sin(p2) - math.Sin(p1)*math.Cos(p2)*math.Cos(dLambda)
	theta := math.Atan2(y, x)
	return math.Mod(theta*180/math.Pi+360, 360)
}
