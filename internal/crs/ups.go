package crs

import "math"

// WGS84 ellipsoid and UPS projection constants.
const (
	wgsA  = 6378137.0
	wgsF  = 1 / 298.257223563
	upsK0 = 0.994
	upsFE = 2000000.0
	upsFN = 2000000.0
)

var (
	wgsE2 = wgsF * (2 - wgsF)
	wgsE  = math.Sqrt(wgsE2)

	// 2*a*k0 / sqrt((1+e)^(1+e) * (1-e)^(1-e)), the scaled polar radius.
	upsC = 2 * wgsA * upsK0 / math.Sqrt(math.Pow(1+wgsE, 1+wgsE)*math.Pow(1-wgsE, 1-wgsE))
)

// LonLatToUPS projects a geographic coordinate into UPS easting/northing.
// The hemisphere is taken from the latitude sign.
func LonLatToUPS(lat, lon float64) (northern bool, easting, northing float64) {
	northern = lat >= 0
	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180
	if !northern {
		phi = -phi
	}

	sinPhi := math.Sin(phi)
	t := math.Tan(math.Pi/4-phi/2) * math.Pow((1+wgsE*sinPhi)/(1-wgsE*sinPhi), wgsE/2)
	rho := upsC * t

	easting = upsFE + rho*math.Sin(lam)
	if northern {
		northing = upsFN - rho*math.Cos(lam)
	} else {
		northing = upsFN + rho*math.Cos(lam)
	}
	return northern, easting, northing
}

// UPSToLonLat inverts the UPS projection for the given hemisphere.
func UPSToLonLat(northern bool, easting, northing float64) (lon, lat float64) {
	dx := easting - upsFE
	dy := northing - upsFN
	rho := math.Hypot(dx, dy)

	if rho == 0 {
		if northern {
			return 0, 90
		}
		return 0, -90
	}

	t := rho / upsC
	chi := math.Pi/2 - 2*math.Atan(t)

	// Series expansion of the inverse conformal latitude.
	e2 := wgsE2
	e4 := e2 * e2
	e6 := e4 * e2
	e8 := e6 * e2
	phi := chi +
		(e2/2+5*e4/24+e6/12+13*e8/360)*math.Sin(2*chi) +
		(7*e4/48+29*e6/240+811*e8/11520)*math.Sin(4*chi) +
		(7*e6/120+81*e8/1120)*math.Sin(6*chi) +
		(4279*e8/161280)*math.Sin(8*chi)

	var lam float64
	if northern {
		lam = math.Atan2(dx, -dy)
	} else {
		phi = -phi
		lam = math.Atan2(dx, dy)
	}

	return lam * 180 / math.Pi, phi * 180 / math.Pi
}
