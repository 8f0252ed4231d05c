package prober

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"camsweep/camerapool/geolocate"
	"camsweep/camerapool/model"
)

func geoStub(t *testing.T, hits *atomic.Int32) *geolocate.Resolver {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Write([]byte(`{"status":"success","lat":52.52,"lon":13.4,"country":"Germany","city":"Berlin","regionName":"Berlin"}`))
	}))
	t.Cleanup(srv.Close)
	return geolocate.NewResolver(&geolocate.IPAPIComProvider{BaseURL: srv.URL})
}

func TestProbeAcceptsImageContentType(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xff, 0xd8})
	}))
	defer target.Close()

	var geoHits atomic.Int32
	p := New(2*time.Second, geoStub(t, &geoHits), nil, "test-agent")

	candidate := target.URL + "/cam_1.cgi"
	rec := p.Probe(context.Background(), candidate)
	if rec == nil {
		t.Fatal("expected a record for image/jpeg response")
	}
	if geoHits.Load() == 0 {
		t.Fatal("geolocation must be resolved for accepted probes")
	}
	if rec.Origin != model.OriginExpansion {
		t.Fatalf("expected origin expansion, got %q", rec.Origin)
	}
	if rec.Country != "Germany" || rec.City != "Berlin" {
		t.Fatalf("geo fields not populated: %+v", rec)
	}
	if rec.Manufacturer != "WebcamXP" {
		t.Fatalf("expected WebcamXP from cam_*.cgi signature, got %q", rec.Manufacturer)
	}

	u, _ := url.Parse(candidate)
	if rec.NetworkAddress != u.Hostname() {
		t.Fatalf("expected network address %q, got %q", u.Hostname(), rec.NetworkAddress)
	}
	wantPage := fmt.Sprintf("http://%s:%s", u.Hostname(), u.Port())
	if rec.SourcePageURL != wantPage {
		t.Fatalf("expected source page %q, got %q", wantPage, rec.SourcePageURL)
	}
	if rec.MediaURL != candidate {
		t.Fatalf("expected media URL %q, got %q", candidate, rec.MediaURL)
	}
}

func TestProbeRejectsHTMLRegardlessOfStatus(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>login</html>"))
	}))
	defer target.Close()

	var geoHits atomic.Int32
	p := New(2*time.Second, geoStub(t, &geoHits), nil, "")

	if rec := p.Probe(context.Background(), target.URL+"/"); rec != nil {
		t.Fatalf("text/html must be rejected, got %+v", rec)
	}
	if geoHits.Load() != 0 {
		t.Fatal("geolocation must not be queried for rejected probes")
	}
}

func TestProbeRejectsNonSuccessStatus(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusNotFound)
	}))
	defer target.Close()

	p := New(2*time.Second, geoStub(t, nil), nil, "")
	if rec := p.Probe(context.Background(), target.URL+"/missing.jpg"); rec != nil {
		t.Fatalf("non-2xx must be rejected, got %+v", rec)
	}
}

func TestProbeSilentOnTransportFailure(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target.Close()

	p := New(500*time.Millisecond, geoStub(t, nil), nil, "")
	if rec := p.Probe(context.Background(), target.URL+"/x.jpg"); rec != nil {
		t.Fatalf("transport failure must yield nil, got %+v", rec)
	}
}

func TestProbeAcceptsMultipartStream(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	p := New(2*time.Second, geoStub(t, nil), nil, "")
	if rec := p.Probe(context.Background(), target.URL+"/mjpg/video.mjpg"); rec == nil {
		t.Fatal("multipart/x-mixed-replace must be accepted")
	}
}

func TestProbeNilWhenGeolocationFails(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
	}))
	defer target.Close()

	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail"}`))
	}))
	defer geoSrv.Close()
	geo := geolocate.NewResolver(&geolocate.IPAPIComProvider{BaseURL: geoSrv.URL})

	p := New(2*time.Second, geo, nil, "")
	if rec := p.Probe(context.Background(), target.URL+"/x.jpg"); rec != nil {
		t.Fatalf("unresolvable address must yield nil, got %+v", rec)
	}
}

func TestDetectManufacturer(t *testing.T) {
	sigs := DefaultSignatures()

	tests := []struct {
		url  string
		want string
	}{
		{"http://203.0.113.1/mjpg/video.mjpg", "Axis"},
		{"http://203.0.113.1/axis-cgi/jpg/image.cgi", "Axis"},
		{"http://203.0.113.1/SnapshotJPEG?Resolution=640x480", "Panasonic"},
		{"http://203.0.113.1/cgi-bin/camera", "Panasonic"},
		{"http://203.0.113.1/-wvhttp-01-/GetOneShot", "Canon"},
		{"http://203.0.113.1/oneshotimage.jpg", "Sony"},
		{"http://203.0.113.1/cam_1.cgi", "WebcamXP"},
		{"http://203.0.113.1/tmpfs/auto.jpg", "FDT"},
		{"http://203.0.113.1/stream/custom", model.UnknownManufacturer},
		// cam_ 单独出现不足以判定 WebcamXP，必须同时带 .cgi。
		{"http://203.0.113.1/cam_1/live", model.UnknownManufacturer},
	}
	for _, tt := range tests {
		if got := DetectManufacturer(sigs, tt.url); got != tt.want {
			t.Errorf("DetectManufacturer(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestLoadSignaturesOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signatures.yaml")
	yaml := "- manufacturer: TestCam\n  any: [testcam]\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	sigs, err := LoadSignatures(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := DetectManufacturer(sigs, "http://203.0.113.1/testcam/img.jpg"); got != "TestCam" {
		t.Fatalf("expected TestCam, got %q", got)
	}
	if got := DetectManufacturer(sigs, "http://203.0.113.1/mjpg/video.mjpg"); got != model.UnknownManufacturer {
		t.Fatalf("loaded table must replace defaults, got %q", got)
	}
}
