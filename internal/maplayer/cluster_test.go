package maplayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetnearby/meetnearby/internal/geo"
	"github.com/meetnearby/meetnearby/internal/nearby"
)

func TestCellPrecision(t *testing.T) {
	assert.Equal(t, uint(4), cellPrecision(200))
	assert.Equal(t, uint(5), cellPrecision(100))
	assert.Equal(t, uint(6), cellPrecision(80))
	assert.Equal(t, uint(6), cellPrecision(10))
}

func TestClusterPlaced_GroupsByCell(t *testing.T) {
	markers := []placed{
		{user: nearby.User{ID: "a"}, coord: geo.Coordinate{Lat: 52.5200, Lng: 13.4050}},
		{user: nearby.User{ID: "b"}, coord: geo.Coordinate{Lat: 52.5201, Lng: 13.4051}},
		{user: nearby.User{ID: "c"}, coord: geo.Coordinate{Lat: 48.8566, Lng: 2.3522}},
	}

	clusters := clusterPlaced(markers, 200)
	require.Len(t, clusters, 2)

	sizes := []int{len(clusters[0].members), len(clusters[1].members)}
	assert.ElementsMatch(t, []int{1, 2}, sizes)
}

func TestClusterPlaced_CenterIsMemberAverage(t *testing.T) {
	markers := []placed{
		{user: nearby.User{ID: "a"}, coord: geo.Coordinate{Lat: 52.0, Lng: 13.0}},
		{user: nearby.User{ID: "b"}, coord: geo.Coordinate{Lat: 52.002, Lng: 13.002}},
	}

	clusters := clusterPlaced(markers, 200)
	require.Len(t, clusters, 1)
	assert.InDelta(t, 52.001, clusters[0].center.Lat, 1e-9)
	assert.InDelta(t, 13.001, clusters[0].center.Lng, 1e-9)
}

func TestClusterPlaced_BusinessOnlyWhenAllMembersBusiness(t *testing.T) {
	base := geo.Coordinate{Lat: 52.5200, Lng: 13.4050}
	near := geo.Coordinate{Lat: 52.5201, Lng: 13.4051}

	all := clusterPlaced([]placed{
		{user: nearby.User{ID: "a", Business: true}, coord: base},
		{user: nearby.User{ID: "b", Business: true}, coord: near},
	}, 200)
	require.Len(t, all, 1)
	assert.True(t, all[0].business)

	mixed := clusterPlaced([]placed{
		{user: nearby.User{ID: "a", Business: true}, coord: base},
		{user: nearby.User{ID: "b"}, coord: near},
	}, 200)
	require.Len(t, mixed, 1)
	assert.False(t, mixed[0].business)
}

func TestClusterPlaced_Empty(t *testing.T) {
	assert.Empty(t, clusterPlaced(nil, 200))
}

func TestClusterPlaced_FinerCellsAtHigherZoom(t *testing.T) {
	// About 1.5 km apart: same precision-4 cell, different precision-6 cells.
	markers := []placed{
		{user: nearby.User{ID: "a"}, coord: geo.Coordinate{Lat: 52.520, Lng: 13.405}},
		{user: nearby.User{ID: "b"}, coord: geo.Coordinate{Lat: 52.533, Lng: 13.405}},
	}

	coarse := clusterPlaced(markers, 200)
	fine := clusterPlaced(markers, 10)
	assert.Len(t, coarse, 1)
	assert.Len(t, fine, 2)
}
