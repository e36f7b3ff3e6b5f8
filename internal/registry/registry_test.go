package registry

import (
	"context"
	"strings"
	"testing"

	"github.com/btraven00/geoextent-core/internal/model"
	"github.com/btraven00/geoextent-core/internal/provider"
)

// fakeAdapter matches any canonical id containing substr, and counts how
// many times Matches was called so cache-hit behavior can be asserted.
type fakeAdapter struct {
	name   string
	substr string
	calls  int
}

func (f *fakeAdapter) Matches(_ context.Context, id model.Identifier) bool {
	f.calls++
	return strings.Contains(id.Canonical, f.substr)
}
func (f *fakeAdapter) SupportsMetadata() bool { return true }
func (f *fakeAdapter) FetchMetadata(context.Context, model.Identifier) (provider.Metadata, error) {
	return provider.Metadata{}, nil
}
func (f *fakeAdapter) EnumerateFiles(context.Context, model.Identifier, []string) ([]model.FileDescriptor, error) {
	return nil, nil
}
func (f *fakeAdapter) FriendlyName() string { return f.name }

func TestResolveFirstMatchWins(t *testing.T) {
	specific := &fakeAdapter{name: "Specific", substr: "zenodo.org"}
	fallback := &fakeAdapter{name: "Fallback", substr: ""}

	reg := New([]provider.Adapter{specific, fallback})

	a, ok := reg.Resolve(context.Background(), model.Identifier{Canonical: "https://zenodo.org/record/1"})
	if !ok {
		t.Fatal("expected a match")
	}
	if a.FriendlyName() != "Specific" {
		t.Errorf("expected Specific adapter to win, got %s", a.FriendlyName())
	}
}

func TestResolveFallsThroughToLaterAdapter(t *testing.T) {
	first := &fakeAdapter{name: "First", substr: "zenodo.org"}
	second := &fakeAdapter{name: "Second", substr: "github.com"}

	reg := New([]provider.Adapter{first, second})

	a, ok := reg.Resolve(context.Background(), model.Identifier{Canonical: "https://github.com/o/r"})
	if !ok {
		t.Fatal("expected a match")
	}
	if a.FriendlyName() != "Second" {
		t.Errorf("expected Second adapter to win, got %s", a.FriendlyName())
	}
}

func TestResolveNoMatch(t *testing.T) {
	reg := New([]provider.Adapter{&fakeAdapter{name: "Only", substr: "zenodo.org"}})
	_, ok := reg.Resolve(context.Background(), model.Identifier{Canonical: "https://unknown.example/x"})
	if ok {
		t.Error("expected no match")
	}
}

func TestResolveCachesMatchResult(t *testing.T) {
	a := &fakeAdapter{name: "A", substr: "zenodo.org"}
	reg := New([]provider.Adapter{a})
	id := model.Identifier{Canonical: "https://zenodo.org/record/1"}

	reg.Resolve(context.Background(), id)
	reg.Resolve(context.Background(), id)

	if a.calls != 1 {
		t.Errorf("expected Matches called once due to caching, got %d", a.calls)
	}
}

func TestResolveCachesNoMatchResult(t *testing.T) {
	a := &fakeAdapter{name: "A", substr: "zenodo.org"}
	reg := New([]provider.Adapter{a})
	id := model.Identifier{Canonical: "https://unknown.example/x"}

	reg.Resolve(context.Background(), id)
	reg.Resolve(context.Background(), id)

	if a.calls != 1 {
		t.Errorf("expected Matches called once for a cached miss, got %d", a.calls)
	}
}

func TestAnyMatches(t *testing.T) {
	reg := New([]provider.Adapter{&fakeAdapter{name: "A", substr: "zenodo.org"}})
	if !reg.AnyMatches("https://zenodo.org/record/1") {
		t.Error("expected AnyMatches true")
	}
	if reg.AnyMatches("https://unknown.example/x") {
		t.Error("expected AnyMatches false")
	}
}

func TestListReturnsCopyInOrder(t *testing.T) {
	a := &fakeAdapter{name: "A"}
	b := &fakeAdapter{name: "B"}
	reg := New([]provider.Adapter{a, b})

	list := reg.List()
	if len(list) != 2 || list[0].FriendlyName() != "A" || list[1].FriendlyName() != "B" {
		t.Errorf("unexpected List() order: %+v", list)
	}
}
