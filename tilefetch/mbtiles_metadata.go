package tilefetch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// MbtilesMetadata is the key/value metadata carried by an mbtiles archive,
// with typed accessors for the well-known spatial keys.
type MbtilesMetadata struct {
	metadata map[string]string
}

func NewMbtilesMetadata(metadata map[string]string) *MbtilesMetadata {
	return &MbtilesMetadata{metadata: metadata}
}

func (m *MbtilesMetadata) Get(k string) (string, bool) {
	v, exists := m.metadata[k]
	return v, exists
}

func (m *MbtilesMetadata) Set(k string, v string) {
	m.metadata[k] = v
}

func (m *MbtilesMetadata) Keys() []string {
	keys := make([]string, 0, len(m.metadata))
	for k := range m.metadata {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}

// parseFloats parses a comma-separated list of n floats.
func (m *MbtilesMetadata) parseFloats(key string, n int) ([]float64, error) {
	str, exists := m.Get(key)
	if !exists {
		return nil, fmt.Errorf("metadata is missing %s", key)
	}

	parts := strings.Split(str, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("invalid %s metadata", key)
	}

	vals := make([]float64, n)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s, %w", key, err)
		}
		vals[i] = v
	}

	return vals, nil
}

func (m *MbtilesMetadata) parseZoom(key string) (uint, error) {
	str, exists := m.Get(key)
	if !exists {
		return 0, fmt.Errorf("metadata is missing %s", key)
	}

	i, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s value, %w", key, err)
	}

	return uint(i), nil
}

// Bounds returns the "bounds" key as minx,miny,maxx,maxy.
func (m *MbtilesMetadata) Bounds() (orb.Bound, error) {
	vals, err := m.parseFloats("bounds", 4)
	if err != nil {
		return orb.Bound{}, err
	}

	return orb.Bound{
		Min: orb.Point{vals[0], vals[1]},
		Max: orb.Point{vals[2], vals[3]},
	}, nil
}

// Center returns the "center" key as an x,y point.
func (m *MbtilesMetadata) Center() (orb.Point, error) {
	vals, err := m.parseFloats("center", 2)
	if err != nil {
		return orb.Point{}, err
	}

	return orb.Point{vals[0], vals[1]}, nil
}

func (m *MbtilesMetadata) MinZoom() (uint, error) {
	return m.parseZoom("minzoom")
}

func (m *MbtilesMetadata) MaxZoom() (uint, error) {
	return m.parseZoom("maxzoom")
}

func (m *MbtilesMetadata) Format() string {
	return m.metadata["format"]
}

func (m *MbtilesMetadata) Name() string {
	return m.metadata["name"]
}
