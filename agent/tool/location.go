package tool

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

func (r *Registry) lookupLocation(ctx context.Context, args map[string]any, _ contractx.ToolEnv) contractx.ToolOutcome {
	query := stringArg(args, "query", "location")
	if query == "" {
		return failure("query is required")
	}

	if r.deps.Geocoder != nil {
		place, err := r.deps.Geocoder.Geocode(ctx, query)
		switch {
		case err != nil:
			log.Ctx(ctx).Warn().Err(err).Str("query", query).Msg("geocoder lookup failed")
		case !InServiceArea(place.Lat, place.Lng):
			log.Ctx(ctx).Info().Str("query", query).Float64("lat", place.Lat).Float64("lng", place.Lng).Msg("geocoded place outside service area")
		default:
			return success(map[string]any{
				"query":   query,
				"address": place.Address,
				"lat":     place.Lat,
				"lng":     place.Lng,
				"source":  "geocoder",
			})
		}
	}

	return success(map[string]any{
		"query":   query,
		"address": fmt.Sprintf("부산광역시 행정동 정보 (%s)", query),
		"source":  "offline",
	})
}
