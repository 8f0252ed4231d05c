package mutator

import (
	"math/rand"
	"net"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"camsweep/camerapool/model"
)

func seedRecord(mediaURL string) *model.CameraInfo {
	return &model.CameraInfo{
		Latitude:  1,
		Longitude: 2,
		Country:   "France",
		City:      "Paris",
		MediaURL:  mediaURL,
		Origin:    model.OriginListing,
	}
}

func TestGenerateStaysInSeedSubnet(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(1)))
	seed := seedRecord("http://203.0.113.5:80/cam_1.cgi?Resolution=640x480")

	candidates := g.Generate(seed, 20)
	if len(candidates) == 0 {
		t.Fatal("expected candidates")
	}

	_, subnet, _ := net.ParseCIDR("203.0.113.0/24")
	for _, c := range candidates {
		u, err := url.Parse(c)
		if err != nil {
			t.Fatalf("generated malformed URL %q: %v", c, err)
		}
		ip := net.ParseIP(u.Hostname())
		if ip == nil || !subnet.Contains(ip) {
			t.Fatalf("candidate %q outside seed /24", c)
		}
		if u.Hostname() == "203.0.113.5" && u.Port() == "80" && u.RequestURI() == "/cam_1.cgi?Resolution=640x480" {
			t.Fatalf("candidate %q reproduces the seed itself", c)
		}
	}
}

func TestGenerateAlternatePortsAndPathConventions(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(42)))
	seed := seedRecord("http://203.0.113.5:80/cam_1.cgi?Resolution=640x480")

	candidates := g.Generate(seed, 15)

	var sawAltPort, sawCam2, sawResolutionAlt bool
	for _, c := range candidates {
		u, _ := url.Parse(c)
		if u.Port() == "8080" {
			sawAltPort = true
		}
		if strings.Contains(c, "cam_2.cgi") {
			sawCam2 = true
		}
		if strings.Contains(c, "Resolution=320x240") {
			sawResolutionAlt = true
		}
	}
	if !sawAltPort {
		t.Fatal("expected at least one candidate on alternate port 8080")
	}
	if !sawCam2 {
		t.Fatal("expected at least one cam_2 path variant")
	}
	if !sawResolutionAlt {
		t.Fatal("expected a resolution sibling variant")
	}
}

func TestGenerateDeterministicForFixedSeed(t *testing.T) {
	seed := seedRecord("http://203.0.113.5:80/cam_1.cgi?Resolution=640x480")

	a := NewGenerator(rand.New(rand.NewSource(7))).Generate(seed, 10)
	b := NewGenerator(rand.New(rand.NewSource(7))).Generate(seed, 10)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same rand seed must yield identical candidates")
	}
}

func TestGenerateDeduplicates(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(3)))
	seed := seedRecord("http://203.0.113.5:80/img.jpg")

	candidates := g.Generate(seed, 50)
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			t.Fatalf("duplicate candidate %q", c)
		}
		seen[c] = struct{}{}
	}
}

func TestGenerateNonDefaultPortSkipsAlternates(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(5)))
	seed := seedRecord("http://203.0.113.5:8081/video.mjpg")

	for _, c := range g.Generate(seed, 10) {
		u, _ := url.Parse(c)
		if u.Port() != "8081" {
			t.Fatalf("non-default seed port must be preserved, got %q", c)
		}
	}
}

func TestGenerateUnusableSeeds(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(1)))

	tests := []struct {
		name string
		url  string
	}{
		{"sentinel media URL", model.SentinelNA},
		{"empty media URL", ""},
		{"domain host", "http://cam.example.net/video.mjpg"},
		{"ipv6 host", "http://[2001:db8::1]/video.mjpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Generate(seedRecord(tt.url), 10); len(got) != 0 {
				t.Fatalf("expected no candidates, got %d", len(got))
			}
		})
	}
}

func TestGenerateUnrecognizedPathYieldsNoPathVariants(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(9)))
	seed := seedRecord("http://203.0.113.5:80/stream/custom")

	for _, c := range g.Generate(seed, 5) {
		u, _ := url.Parse(c)
		if u.RequestURI() != "/stream/custom" {
			t.Fatalf("unexpected path variant %q", c)
		}
		if u.Hostname() == "203.0.113.5" {
			t.Fatalf("without path rules the seed host must not appear: %q", c)
		}
	}
}
