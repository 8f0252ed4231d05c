package validator

import (
	"fmt"
	"strconv"
	"strings"

	"camsweep/camerapool/model"
)

// RawDetails 是提取/探测阶段产出的原始字段集合，全部为未解析的字符串。
// 缺失字段用哨兵值 "N/A" 表示，而不是空串，便于区分“没解析到”和“解析到空”。
type RawDetails struct {
	Latitude       string
	Longitude      string
	Country        string
	City           string
	Region         string
	Manufacturer   string
	MediaURL       string
	SourcePageURL  string
	NetworkAddress string
}

// Rejection 描述一次验证拒绝。拒绝在这个系统里是高频的预期结果，
// 因此不建模为 error，由调用方按需计数或忽略。
type Rejection struct {
	Field  string
	Reason string
}

func (r *Rejection) String() string {
	return fmt.Sprintf("field=%s: %s", r.Field, r.Reason)
}

// Validate 是全系统唯一的记录物化入口：接受则构造 CameraInfo，
// 否则返回拒绝原因。任何生产原始字段的组件都必须经过这里。
func Validate(raw RawDetails, origin model.Origin) (*model.CameraInfo, *Rejection) {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"latitude", raw.Latitude},
		{"longitude", raw.Longitude},
		{"country", raw.Country},
		{"city", raw.City},
	} {
		if strings.TrimSpace(f.value) == "" || f.value == model.SentinelNA {
			return nil, &Rejection{Field: f.name, Reason: "required field missing"}
		}
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(raw.Latitude), 64)
	if err != nil {
		return nil, &Rejection{Field: "latitude", Reason: "not a number: " + raw.Latitude}
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(raw.Longitude), 64)
	if err != nil {
		return nil, &Rejection{Field: "longitude", Reason: "not a number: " + raw.Longitude}
	}
	if lat < -90 || lat > 90 {
		return nil, &Rejection{Field: "latitude", Reason: fmt.Sprintf("out of range: %v", lat)}
	}
	if lon < -180 || lon > 180 {
		return nil, &Rejection{Field: "longitude", Reason: fmt.Sprintf("out of range: %v", lon)}
	}

	region := raw.Region
	if strings.TrimSpace(region) == "" {
		region = model.SentinelNA
	}
	manufacturer := raw.Manufacturer
	if strings.TrimSpace(manufacturer) == "" || manufacturer == model.SentinelNA {
		manufacturer = model.UnknownManufacturer
	}
	mediaURL := raw.MediaURL
	if strings.TrimSpace(mediaURL) == "" {
		mediaURL = model.SentinelNA
	}

	return &model.CameraInfo{
		Latitude:       lat,
		Longitude:      lon,
		Country:        raw.Country,
		City:           raw.City,
		Region:         region,
		Manufacturer:   manufacturer,
		MediaURL:       mediaURL,
		SourcePageURL:  raw.SourcePageURL,
		Origin:         origin,
		NetworkAddress: raw.NetworkAddress,
	}, nil
}
