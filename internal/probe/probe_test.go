package probe

import (
	"context"
	"strings"
	"testing"

	"github.com/btraven00/geoextent-core/internal/model"
)

type extDecoder struct{ ext string }

func (e extDecoder) CanDecode(path string) bool { return strings.HasSuffix(path, e.ext) }
func (e extDecoder) Decode(context.Context, string, bool) (*model.Envelope, *model.TimeInterval, error) {
	return &model.Envelope{}, nil, nil
}

func TestNewRegistryWithNoDecoders(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Find("anything.tif")
	if ok {
		t.Error("expected no match with an empty registry")
	}
}

func TestFindFirstMatchWins(t *testing.T) {
	first := extDecoder{ext: ".tif"}
	second := extDecoder{ext: ".shp"}
	r := NewRegistry(first, second)

	d, ok := r.Find("data.shp")
	if !ok {
		t.Fatal("expected a match for .shp")
	}
	if d.(extDecoder).ext != ".shp" {
		t.Errorf("expected .shp decoder, got %+v", d)
	}
}

func TestFindNoMatch(t *testing.T) {
	r := NewRegistry(extDecoder{ext: ".tif"})
	if _, ok := r.Find("data.csv"); ok {
		t.Error("expected no match for unclaimed extension")
	}
}
