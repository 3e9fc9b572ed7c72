// Package geo implements the coordinate-frame conversions and the
// WorldCoordinate derived view named in spec §3/§4.3, ported from
// aerosim-core's coordinate_system module.
package geo

// Ellipsoid describes a reference geodetic ellipsoid.
type Ellipsoid struct {
	EquatorialRadius float64
	FlatteningFactor float64
	PolarRadius      float64
}

// WGS84 returns the World Geodetic System 1984 ellipsoid, the default used
// throughout the core.
func WGS84() Ellipsoid {
	equatorial := 6378137.0
	flattening := 1.0 / 298.257223563
	return Ellipsoid{
		EquatorialRadius: equatorial,
		FlatteningFactor: flattening,
		PolarRadius:      equatorial * (1.0 - flattening),
	}
}

// Custom builds an ellipsoid from explicit parameters.
func Custom(equatorialRadius, flatteningFactor float64) Ellipsoid {
	return Ellipsoid{
		EquatorialRadius: equatorialRadius,
		FlatteningFactor: flatteningFactor,
		PolarRadius:      equatorialRadius * (1.0 - flatteningFactor),
	}
}
