package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding attaches the circle's place to a report. The extraction
// result itself is never modified. If geocoder is nil the report is returned
// unchanged; lookup failures set Place.Source to "failed".
func EnrichWithGeocoding(ctx context.Context, report Report, geocoder Geocoder, logger *slog.Logger) Report {
	if geocoder == nil || report.Result == nil {
		return report
	}

	info := report.Result.CountInfo
	hasName := info.CountName != nil && *info.CountName != ""

	// Reverse geocode: circle center → place details.
	if info.HasCoordinates() {
		place := &Place{Lat: *info.Lat, Lon: *info.Lon, Source: "original"}
		result, err := geocoder.ReverseGeocode(ctx, *info.Lat, *info.Lon)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"report_id", report.ID,
				"lat", *info.Lat,
				"lon", *info.Lon,
				"error", err,
			)
			place.Source = "failed"
			report.Place = place
			return report
		}
		if result.FormattedAddress != "" {
			place.FormattedAddress = result.FormattedAddress
			place.PlaceName = result.PlaceName
			place.Confidence = result.Confidence
			place.Source = "reverse"
		}
		report.Place = place
		return report
	}

	// Forward geocode: circle name → coordinates (when the export has none).
	if hasName {
		result, err := geocoder.ForwardGeocode(ctx, *info.CountName)
		if err != nil {
			logger.Warn("forward geocoding failed",
				"report_id", report.ID,
				"count_name", *info.CountName,
				"error", err,
			)
			report.Place = &Place{Source: "failed"}
			return report
		}
		if result.Lat != 0 || result.Lon != 0 {
			report.Place = &Place{
				Lat:              result.Lat,
				Lon:              result.Lon,
				FormattedAddress: result.FormattedAddress,
				PlaceName:        result.PlaceName,
				Confidence:       result.Confidence,
				Source:           "forward",
			}
			return report
		}
	}

	report.Place = &Place{Source: "original"}
	return report
}
