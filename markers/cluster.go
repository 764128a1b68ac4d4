// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package markers

import "github.com/jcodagnone/mailgeo/spatial"

// SameBuilding is the distance, in meters, under which markers are
// considered to share a delivery point.
const SameBuilding = 15.0

func (m Marker) point() *spatial.Point {
	return &spatial.Point{Lat: m.Lat, Lng: m.Lng}
}

// Cluster groups markers closer than threshold meters to any member of a
// group. Groups keep the order of their first member.
func Cluster(markers []Marker, threshold float64) [][]Marker {
	clusters := make([][]Marker, 0, len(markers))

	visited := make([]bool, len(markers))

	for i, m1 := range markers {
		if visited[i] {
			continue
		}

		cluster := []Marker{m1}
		visited[i] = true

		// grows while scanning, so later members can pull in more markers
		for k := 0; k < len(cluster); k++ {
			for j, m2 := range markers {
				if visited[j] {
					continue
				}

				if cluster[k].point().HaversineDistance(m2.point()) <= threshold {
					cluster = append(cluster, m2)
					visited[j] = true
				}
			}
		}

		clusters = append(clusters, cluster)
	}

	return clusters
}

// Shared returns the clusters with more than one marker.
func Shared(markers []Marker, threshold float64) [][]Marker {
	var ret [][]Marker

	for _, c := range Cluster(markers, threshold) {
		if len(c) > 1 {
			ret = append(ret, c)
		}
	}

	return ret
}
