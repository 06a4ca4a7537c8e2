package queryapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aireyes/internal/domain"

	"github.com/paulmach/orb"
)

func TestHandleSuburbsViewboxFiltersByBoundingBox(t *testing.T) {
	inBox := &domain.Suburb{
		Hash: "in", Name: "Inside", State: domain.StateKnown("NSW"),
		BoundingBox:  domain.BoundingBox{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10},
		MultiPolygon: orb.MultiPolygon{{orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}},
	}
	outBox := &domain.Suburb{
		Hash: "out", Name: "Outside", State: domain.StateKnown("NSW"),
		BoundingBox:  domain.BoundingBox{MinX: 1000, MinY: 1000, MaxX: 1010, MaxY: 1010},
		MultiPolygon: orb.MultiPolygon{{orb.Ring{{1000, 1000}, {1010, 1000}, {1010, 1010}, {1000, 1010}, {1000, 1000}}}},
	}
	s := &Server{suburbs: []*domain.Suburb{inBox, outBox}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/suburbs/viewbox?minx=0&miny=0&maxx=20&maxy=20", nil)
	rec := httptest.NewRecorder()
	s.handleSuburbsViewbox(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"hash":"in"`) {
		t.Fatalf("expected in-box suburb in response, got %s", body)
	}
	if strings.Contains(body, `"hash":"out"`) {
		t.Fatalf("expected out-of-box suburb to be excluded, got %s", body)
	}
}

func TestHandleSuburbsViewboxRequiresNumericParams(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/suburbs/viewbox", nil)
	rec := httptest.NewRecorder()
	s.handleSuburbsViewbox(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without box params, got %d", rec.Code)
	}
}

func TestHandleSuburbsViewboxDefaultsNumPointsWithoutPointsStore(t *testing.T) {
	inBox := &domain.Suburb{
		Hash: "in", Name: "Inside", State: domain.StateKnown("NSW"),
		BoundingBox:  domain.BoundingBox{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10},
		MultiPolygon: orb.MultiPolygon{{orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}},
	}
	s := &Server{suburbs: []*domain.Suburb{inBox}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/suburbs/viewbox?minx=0&miny=0&maxx=20&maxy=20", nil)
	rec := httptest.NewRecorder()
	s.handleSuburbsViewbox(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"num_points":0`) {
		t.Fatalf("expected num_points:0 when no point store is configured, got %s", rec.Body.String())
	}
}

func TestHandleSuburbsViewboxNoneAircraftSkipsPointsLookup(t *testing.T) {
	s := &Server{suburbs: nil}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/suburbs/viewbox?minx=0&miny=0&maxx=20&maxy=20&aircraft=none", nil)
	rec := httptest.NewRecorder()
	s.handleSuburbsViewbox(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestResolveAircraftFilterAllAndNone(t *testing.T) {
	s := &Server{}
	if icaos, err := s.resolveAircraftFilter(context.Background(), ""); err != nil || icaos != nil {
		t.Fatalf("expected nil icaos for empty param, got %+v, %v", icaos, err)
	}
	if icaos, err := s.resolveAircraftFilter(context.Background(), "all"); err != nil || icaos != nil {
		t.Fatalf("expected nil icaos for 'all', got %+v, %v", icaos, err)
	}
	icaos, err := s.resolveAircraftFilter(context.Background(), "none")
	if err != nil {
		t.Fatalf("resolveAircraftFilter(none): %v", err)
	}
	if icaos == nil || len(icaos) != 0 {
		t.Fatalf("expected an empty non-nil slice for 'none', got %+v", icaos)
	}
}
