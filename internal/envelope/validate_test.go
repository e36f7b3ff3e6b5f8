package envelope

import (
	"testing"

	"github.com/btraven00/geoextent-core/internal/model"
)

func TestValidateRejectsNilEnvelope(t *testing.T) {
	if err := Validate(nil, ValidationOptions{}); err == nil {
		t.Error("expected error for nil envelope")
	}
}

func TestValidateRejectsDegenerateBBox(t *testing.T) {
	env := &model.Envelope{CRS: model.WGS84, BBox: &model.BoundingBox{}}
	if err := Validate(env, ValidationOptions{}); err == nil {
		t.Error("expected error for degenerate [0,0,0,0] bbox")
	}
}

func TestValidateAcceptsNormalBBox(t *testing.T) {
	env := &model.Envelope{CRS: model.WGS84, BBox: &model.BoundingBox{MinX: -10, MinY: -10, MaxX: 10, MaxY: 10}}
	if err := Validate(env, ValidationOptions{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsOutOfRangeBBox(t *testing.T) {
	env := &model.Envelope{CRS: model.WGS84, BBox: &model.BoundingBox{MinX: -200, MinY: -10, MaxX: 10, MaxY: 10}}
	if err := Validate(env, ValidationOptions{}); err == nil {
		t.Error("expected error for out-of-range bbox")
	}
}

func TestValidateRejectsRasterPixelSpace(t *testing.T) {
	env := &model.Envelope{CRS: model.WGS84, BBox: &model.BoundingBox{MinX: 0, MinY: 0, MaxX: 4096, MaxY: 2048}}
	if err := Validate(env, ValidationOptions{IsRaster: true}); err == nil {
		t.Error("expected error for raster coordinates that look like pixel space")
	}
}

func TestValidateRejectsProjectedVectorCoordinates(t *testing.T) {
	env := &model.Envelope{CRS: model.WGS84, BBox: &model.BoundingBox{MinX: 500000, MinY: 4500000, MaxX: 510000, MaxY: 4510000}}
	if err := Validate(env, ValidationOptions{IsVector: true}); err == nil {
		t.Error("expected error for projected-looking vector coordinates")
	}
}

func TestValidateAssumeWGS84SkipsMagnitudeHeuristics(t *testing.T) {
	// same suspicious-looking raster coordinates, but the caller asserts
	// they are already WGS84 -- the magnitude heuristic must be skipped,
	// while the hard range check still applies (this box stays in range).
	env := &model.Envelope{CRS: model.WGS84, BBox: &model.BoundingBox{MinX: 0, MinY: 0, MaxX: 170, MaxY: 80}}
	if err := Validate(env, ValidationOptions{IsRaster: true, AssumeWGS84ForUngeoreferenced: true}); err != nil {
		t.Errorf("unexpected error with AssumeWGS84ForUngeoreferenced: %v", err)
	}
}

func TestValidateRejectsEmptyHull(t *testing.T) {
	env := &model.Envelope{CRS: model.WGS84, Hull: &model.ConvexHull{}}
	if err := Validate(env, ValidationOptions{}); err == nil {
		t.Error("expected error for empty convex hull")
	}
}

func TestValidateRejectsEnvelopeWithNeitherBBoxNorHull(t *testing.T) {
	env := &model.Envelope{CRS: model.WGS84}
	if err := Validate(env, ValidationOptions{}); err == nil {
		t.Error("expected error when neither bbox nor hull is set")
	}
}
