// Package domain models daily streamflow records retrieved from the USGS
// National Water Information System (NWIS).
//
// # Data Source
//
// Daily values come from the NWIS daily-values web service at
// https://waterservices.usgs.gov/nwis/dv/. A request names one site, one
// parameter code, one statistic code and an inclusive date range; the
// service answers with WaterML encoded as JSON. The acquisition command
// fetches the response once and caches the cleaned (date, discharge) pairs
// as a snapshot; the report command only ever reads the snapshot.
//
// # NWIS Conventions
//
// Site numbers:
//
//	8 to 15 digit strings, e.g. "01646500" (Potomac River near Washington,
//	DC, Little Falls Pump Station). Leading zeros are significant.
//
// Parameter and statistic codes:
//
//	Parameter "00060" is discharge in cubic feet per second (cfs).
//	Statistic "00003" is the daily mean. Other statistics (00001 max,
//	00002 min) use the same response shape.
//
// Values:
//
//	Each value carries a decimal string, an ISO-8601 dateTime at local
//	midnight ("2019-06-01T00:00:00.000") and a list of qualifier codes.
//	The variable's noDataValue (-999999) marks a missing day.
//
// Qualifiers:
//
//	"A" approved, "P" provisional, "e" estimated, "Ice" ice-affected,
//	"Eqp" equipment malfunction. Only "A", "P" and "e" values are kept
//	by [Clean]; ice and equipment codes arrive with the noDataValue and
//	are dropped as missing.
//
// # Cleaning
//
// [Clean] drops missing and negative discharges, collapses duplicate
// dates keeping the last occurrence, and sorts the series ascending.
// Zero discharge is valid for intermittent streams; power re-expression
// with a non-positive exponent rejects it downstream.
package domain
