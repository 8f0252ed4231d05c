package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camsweep/camerapool/model"
)

func rec(mediaURL, country, manufacturer string) model.CameraInfo {
	return model.CameraInfo{
		Latitude:     1,
		Longitude:    2,
		Country:      country,
		City:         "c",
		Manufacturer: manufacturer,
		MediaURL:     mediaURL,
		Origin:       model.OriginListing,
	}
}

func TestAnalyzeSubnetAndPortCounts(t *testing.T) {
	records := []model.CameraInfo{
		rec("http://203.0.113.5:80/cam_1.cgi", "France", "WebcamXP"),
		rec("http://203.0.113.17:8080/cam_1.cgi", "France", "WebcamXP"),
		rec("http://198.51.100.9/snapshotjpeg", "Japan", "Panasonic"),
	}

	s := Analyze(records)

	assert.Equal(t, 2, s.SubnetCounts["203.0.113.0"])
	assert.Equal(t, 1, s.SubnetCounts["198.51.100.0"])
	// 无端口的 URL 归入默认端口 80。
	assert.Equal(t, 2, s.PortCounts[80])
	assert.Equal(t, 1, s.PortCounts[8080])
	assert.Equal(t, 2, s.PathCounts["/cam_1.cgi"])
	assert.Equal(t, 2, s.CountryCounts["France"])
	assert.Equal(t, 1, s.ManufacturerCounts["Panasonic"])
}

func TestAnalyzeSkipsNonNumericHostsForSubnets(t *testing.T) {
	records := []model.CameraInfo{
		rec("http://cam.example.net:8080/video.mjpg", "Sweden", "Axis"),
	}

	s := Analyze(records)

	assert.Empty(t, s.SubnetCounts, "domain hosts must not contribute subnet counts")
	// 其余统计照常进行。
	assert.Equal(t, 1, s.PortCounts[8080])
}

func TestAnalyzeSkipsRecordsWithoutMediaURL(t *testing.T) {
	records := []model.CameraInfo{
		rec(model.SentinelNA, "France", "Axis"),
		rec("://not-a-url", "France", "Axis"),
	}

	s := Analyze(records)

	assert.Empty(t, s.SubnetCounts)
	assert.Empty(t, s.PortCounts)
	assert.Empty(t, s.CountryCounts)
}

func TestTopPortsOrdering(t *testing.T) {
	records := []model.CameraInfo{
		rec("http://203.0.113.1:8080/a", "A", "M"),
		rec("http://203.0.113.2:8080/a", "A", "M"),
		rec("http://203.0.113.3:80/a", "A", "M"),
	}

	top := Analyze(records).TopPorts(5)
	require.Len(t, top, 2)
	assert.Equal(t, 8080, top[0].Port)
	assert.Equal(t, 2, top[0].Count)
}
