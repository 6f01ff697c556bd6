package maplayer

import (
	"sort"

	"github.com/mmcloughlin/geohash"

	"github.com/meetnearby/meetnearby/internal/geo"
	"github.com/meetnearby/meetnearby/internal/nearby"
)

// placed is a nearby user resolved to the coordinate actually shown.
type placed struct {
	user  nearby.User
	coord geo.Coordinate
}

// cluster groups users sharing a geohash cell at the current zoom.
type cluster struct {
	key      string
	center   geo.Coordinate
	members  []placed
	business bool
}

// cellPrecision maps a map resolution (meters per pixel; larger means
// zoomed further out) to a geohash cell size.
func cellPrecision(resolution float64) uint {
	switch {
	case resolution > 160:
		return 4
	case resolution > 80:
		return 5
	default:
		return 6
	}
}

// clusterPlaced buckets markers into geohash cells. A cluster is business
// typed only when every member is a business profile.
func clusterPlaced(markers []placed, resolution float64) []cluster {
	buckets := make(map[string]*cluster)
	for _, m := range markers {
		key := geohash.EncodeWithPrecision(m.coord.Lat, m.coord.Lng, cellPrecision(resolution))
		c, ok := buckets[key]
		if !ok {
			c = &cluster{key: key, business: true}
			buckets[key] = c
		}
		c.members = append(c.members, m)
		if !m.user.Business {
			c.business = false
		}
	}

	out := make([]cluster, 0, len(buckets))
	for _, c := range buckets {
		var lat, lng float64
		for _, m := range c.members {
			lat += m.coord.Lat
			lng += m.coord.Lng
		}
		n := float64(len(c.members))
		c.center = geo.Coordinate{Lat: lat / n, Lng: lng / n}
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}
