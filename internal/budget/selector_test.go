package budget

import (
	"testing"

	"github.com/btraven00/geoextent-core/internal/errs"
	"github.com/btraven00/geoextent-core/internal/model"
)

func size(n int64) *int64 { return &n }

func TestSelectUnboundedWhenLimitIsZero(t *testing.T) {
	descriptors := []model.FileDescriptor{
		{Name: "a.tif", DeclaredSize: size(1 << 30)},
		{Name: "b.tif", DeclaredSize: size(1 << 30)},
	}

	res, err := Select(descriptors, Options{Limit: 0, Method: MethodOrdered})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Selected) != 2 {
		t.Errorf("expected all descriptors selected when Limit<=0, got %d", len(res.Selected))
	}
	if len(res.Skipped) != 0 {
		t.Errorf("expected no skips when Limit<=0, got %d", len(res.Skipped))
	}
}

func TestSelectNegativeLimitAlsoUnbounded(t *testing.T) {
	descriptors := []model.FileDescriptor{{Name: "a.tif", DeclaredSize: size(5)}}
	res, err := Select(descriptors, Options{Limit: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Selected) != 1 {
		t.Errorf("expected 1 selected, got %d", len(res.Selected))
	}
}

func TestSelectFillsUpToLimitOrdered(t *testing.T) {
	descriptors := []model.FileDescriptor{
		{Name: "a.tif", DeclaredSize: size(10)},
		{Name: "b.tif", DeclaredSize: size(10)},
		{Name: "c.tif", DeclaredSize: size(10)},
	}

	res, err := Select(descriptors, Options{Limit: 20, Method: MethodOrdered})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Selected) != 2 {
		t.Fatalf("expected 2 selected under a 20-byte limit, got %d", len(res.Selected))
	}
	if res.Selected[0].Name != "a.tif" || res.Selected[1].Name != "b.tif" {
		t.Errorf("expected ordered fill a,b; got %+v", res.Selected)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Name != "c.tif" {
		t.Errorf("expected c.tif skipped, got %+v", res.Skipped)
	}
}

func TestSelectSoftLimitFailsClosed(t *testing.T) {
	descriptors := []model.FileDescriptor{
		{Name: "a.tif", DeclaredSize: size(100)},
	}
	_, err := Select(descriptors, Options{Limit: 10, SoftLimit: true, Provider: "Zenodo"})
	if err == nil {
		t.Fatal("expected ErrBudgetExceeded, got nil")
	}
	if !errs.Is(err, errs.KindBudgetExceeded) {
		t.Errorf("expected KindBudgetExceeded, got %v", err)
	}
}

func TestSelectUnknownSizeSortsLastAndNeverFitsWithOthers(t *testing.T) {
	descriptors := []model.FileDescriptor{
		{Name: "unknown.tif"}, // nil DeclaredSize
		{Name: "known.tif", DeclaredSize: size(5)},
	}

	res, err := Select(descriptors, Options{Limit: 5, Method: MethodSmallest})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Selected) != 1 || res.Selected[0].Name != "known.tif" {
		t.Errorf("expected only known.tif selected, got %+v", res.Selected)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Name != "unknown.tif" {
		t.Errorf("expected unknown.tif skipped with a warning, got %+v", res.Skipped)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning about the unknown-size exclusion")
	}
}

func TestSelectGroupKeyMovesFilesTogether(t *testing.T) {
	descriptors := []model.FileDescriptor{
		{Name: "a.shp", GroupKey: "shapefile", DeclaredSize: size(5)},
		{Name: "a.dbf", GroupKey: "shapefile", DeclaredSize: size(5)},
		{Name: "b.tif", DeclaredSize: size(5)},
	}

	// Limit fits the group (10) plus nothing else.
	res, err := Select(descriptors, Options{Limit: 10, Method: MethodOrdered})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Selected) != 2 {
		t.Fatalf("expected the grouped pair selected together, got %+v", res.Selected)
	}
	for _, d := range res.Selected {
		if d.GroupKey != "shapefile" {
			t.Errorf("expected only the shapefile group selected, got %+v", d)
		}
	}
}

func TestSelectLargestMethodOrdersDescending(t *testing.T) {
	descriptors := []model.FileDescriptor{
		{Name: "small", DeclaredSize: size(1)},
		{Name: "big", DeclaredSize: size(100)},
		{Name: "medium", DeclaredSize: size(10)},
	}

	res, err := Select(descriptors, Options{Limit: 1000, Method: MethodLargest})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Selected) != 3 {
		t.Fatalf("expected all 3 selected, got %d", len(res.Selected))
	}
	if res.Selected[0].Name != "big" || res.Selected[2].Name != "small" {
		t.Errorf("expected descending size order, got %+v", res.Selected)
	}
}

func TestSelectGeospatialOnlyDropsNonGeospatial(t *testing.T) {
	descriptors := []model.FileDescriptor{
		{Name: "data.tif", DeclaredSize: size(5)},
		{Name: "readme.txt", DeclaredSize: size(5)},
	}

	res, err := Select(descriptors, Options{Limit: 1000, GeospatialOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Selected) != 1 || res.Selected[0].Name != "data.tif" {
		t.Errorf("expected only data.tif selected, got %+v", res.Selected)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning noting the dropped non-geospatial descriptor")
	}
}
