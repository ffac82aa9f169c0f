package module

import (
	"context"
	"testing"

	phttp "listingsync/internal/platform/net/http"
	"listingsync/internal/platform/testkit"
)

type runner interface{ Run(context.Context) error }
type depther interface{ Depth(context.Context, string) (int64, error) }

type fakeRunner struct{}

func (fakeRunner) Run(context.Context) error { return nil }

type fakeDepth struct{}

func (fakeDepth) Depth(context.Context, string) (int64, error) { return 3, nil }

type bundle struct {
	Runner runner
	Queue  depther
	hidden runner
}

type fakeModule struct{ ports any }

func (fakeModule) MountRoutes(phttp.Router) {}
func (m fakeModule) Ports() any             { return m.ports }
func (fakeModule) Name() string             { return "ingest" }

func TestPortsOf(t *testing.T) {
	tests := []struct {
		name   string
		ports  any
		wantOK bool
	}{
		{"nil ports", nil, false},
		{"bundle is the port", fakeRunner{}, true},
		{"exported field", bundle{Runner: fakeRunner{}}, true},
		{"only unexported field", bundle{hidden: fakeRunner{}}, false},
		{"non struct", 42, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := PortsOf[runner](fakeModule{ports: tc.ports})
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
		})
	}
}

func TestPortsOf_PicksMatchingField(t *testing.T) {
	m := fakeModule{ports: bundle{Runner: fakeRunner{}, Queue: fakeDepth{}}}
	q := MustPortsOf[depther](m)
	if n, _ := q.Depth(context.Background(), "a"); n != 3 {
		t.Fatalf("depth %d", n)
	}
}

func TestMustPortsOf_PanicsWhenMissing(t *testing.T) {
	testkit.MustPanic(t, func() { MustPortsOf[depther](fakeModule{ports: bundle{}}) })
}
