// Package domain implements the irrigation decision engine: reference
// evapotranspiration, crop coefficient adjustment, the forecast water balance,
// and savings/urgency classification.
//
// Every function in this package is a pure computation over its arguments.
// Nothing here performs network or storage I/O; weather and vegetation data
// are fetched by the calling layer and handed in already normalized.
//
// # Model Chain
//
//	Solar geometry → ET0 → (with Kc) water balance → savings & classification
//
// Solar geometry (FAO-56 style, day-of-year J, latitude φ in radians):
//
//	δ  = 0.409 · sin(2π/365 · J − 1.39)
//	ωs = acos(clamp(−tan φ · tan δ, −1, 1))
//	dr = 1 + 0.033 · cos(2π · J / 365)
//	Ra = 37.6 · dr · (ωs · sin φ · sin δ + cos φ · cos δ · sin ωs)
//
// The clamp on the arc-cosine argument handles polar day and polar night,
// where the unclamped product leaves [−1, 1].
//
// Reference evapotranspiration (simplified Penman-Monteith, mm/day):
//
//	Rs  = 0.75 · Ra                      (moderate sunshine, no cloud data)
//	Rn  = max(0, 0.77 · Rs − 0.9)
//	es  = (e(Tmax) + e(Tmin)) / 2        e(T) = 0.6108 · exp(17.27T / (T + 237.3))
//	vpd = max(0, es − es · RH/100)
//	u2  = u10 · 4.87 / ln(67.8 · 10 + offset)
//	ET0 = max(0, (0.408 · Rn + 900/(Tmean + 273) · u2 · vpd) / (1 + 0.34 · u2))
//
// The wind log offset is −5.42 (the FAO-56 profile). Some deployments were
// calibrated with +5.42; [WindLogAlternate] selects that variant.
//
// Crop coefficient:
//
//	Stage base:  initial 0.50 | mid 0.65 | late 0.60 (unknown → 0.65)
//	NDVI adjust: <0.3 +0.15 | <0.5 +0.10 | <0.7 +0.05 | ≥0.7 +0.00
//	Kc = clamp(base + adjust, 0.40, 0.85)
//
// # Water Balance
//
// ET0 is summed over the forecast window, scaled by Kc, and offset by the
// probability-weighted rainfall credit (a nominal 5 mm event per day). The
// net depth never goes negative. Depth converts to volume over the plot area
// (1 ha = 10 000 m²) and is split per plant, with a 4 L/h drip emitter giving
// the run time.
//
// # Savings
//
// The traditional baseline is 1.5× the computed volume. Cost is priced per
// cubic metre of water saved (0.5 local currency units/m³, converted to USD at
// a fixed 0.32 rate). A non-positive baseline yields an all-zero report.
//
// # Display Rounding
//
// Outputs are rounded for display with [Recommendation.Rounded]: volumes (m³)
// and Kc to 3 decimals, everything else to 2.
package domain
