package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElementBoundingBox(t *testing.T) {
	way := &Element{
		ID:   1,
		Kind: ElementWay,
		Geometry: []GeoCoordinate{
			{Latitude: 42.0, Longitude: -71.0},
			{Latitude: 42.5, Longitude: -70.5},
		},
	}
	assert.Equal(t, BoundingBox{MinLon: -71.0, MaxLon: -70.5, MinLat: 42.0, MaxLat: 42.5}, way.BoundingBox())
}

func TestRelationBoundingBoxFoldsMembers(t *testing.T) {
	node := &Element{ID: 1, Kind: ElementNode, Geometry: []GeoCoordinate{{Latitude: 42.0, Longitude: -71.0}}}
	way := &Element{ID: 2, Kind: ElementWay, Geometry: []GeoCoordinate{
		{Latitude: 43.0, Longitude: -70.0},
		{Latitude: 43.5, Longitude: -69.5},
	}}
	relation := &Element{ID: 3, Kind: ElementRelation, Members: []*Element{node, way}}

	assert.Equal(t, BoundingBox{MinLon: -71.0, MaxLon: -69.5, MinLat: 42.0, MaxLat: 43.5}, relation.BoundingBox())
}

func TestOriginNodeBoundingBox(t *testing.T) {
	node := &Element{ID: 1, Kind: ElementNode, Geometry: []GeoCoordinate{{}}}
	box := node.BoundingBox()
	assert.True(t, box.IsValid())
	assert.Equal(t, BoundingBox{}, box)
}

func TestEmptyElementBoundingBox(t *testing.T) {
	bare := &Element{ID: 1, Kind: ElementRelation}
	assert.False(t, bare.BoundingBox().IsValid())
}

func TestElementHasTag(t *testing.T) {
	e := &Element{Tags: []Tag{{Key: 1, Value: 2}}}
	assert.True(t, e.HasTag(1))
	assert.False(t, e.HasTag(2))
}

func TestElementKindString(t *testing.T) {
	assert.Equal(t, "Node", ElementNode.String())
	assert.Equal(t, "Way", ElementWay.String())
	assert.Equal(t, "Area", ElementArea.String())
	assert.Equal(t, "Relation", ElementRelation.String())
}
