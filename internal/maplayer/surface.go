package maplayer

import (
	"sort"
	"sync"
)

// Surface is the narrow contract of the interactive map canvas: styled
// point and circle features grouped in layers, plus a readable zoom
// resolution. The real canvas lives client-side; the server keeps a
// mirror and streams changes down.
type Surface interface {
	SetFeature(f Feature)
	ClearLayer(layer Layer)
	Features(layer Layer) []Feature
	SetOpacity(layer Layer, id string, opacity float64)
	Resolution() float64
	SetResolution(r float64)
}

// MemSurface is the in-memory Surface mirror.
type MemSurface struct {
	mu         sync.Mutex
	layers     map[Layer]map[string]Feature
	resolution float64
}

func NewMemSurface() *MemSurface {
	return &MemSurface{
		layers:     make(map[Layer]map[string]Feature),
		resolution: 1,
	}
}

func (s *MemSurface) SetFeature(f Feature) {
	s.mu.Lock()
	defer s.mu.Unlock()

	layer, ok := s.layers[f.Layer]
	if !ok {
		layer = make(map[string]Feature)
		s.layers[f.Layer] = layer
	}
	layer[f.ID] = f
}

func (s *MemSurface) ClearLayer(layer Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.layers, layer)
}

func (s *MemSurface) Features(layer Layer) []Feature {
	s.mu.Lock()
	defer s.mu.Unlock()

	features := make([]Feature, 0, len(s.layers[layer]))
	for _, f := range s.layers[layer] {
		features = append(features, f)
	}
	sort.Slice(features, func(i, j int) bool {
		return features[i].ID < features[j].ID
	})
	return features
}

func (s *MemSurface) SetOpacity(layer Layer, id string, opacity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.layers[layer][id]; ok {
		f.Style.Opacity = opacity
		s.layers[layer][id] = f
	}
}

func (s *MemSurface) Resolution() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolution
}

func (s *MemSurface) SetResolution(r float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolution = r
}
