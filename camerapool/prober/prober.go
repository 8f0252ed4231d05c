package prober

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"camsweep/camerapool/geolocate"
	"camsweep/camerapool/model"
	"camsweep/camerapool/validator"
)

// 这些 content-type 前缀/子串被认定为摄像头媒体输出。
var mediaTypes = []string{"image/", "video/", "multipart/x-mixed-replace"}

// Prober 对候选 URL 发起一次轻量探测，并把命中的端点物化为记录。
// 探测本质上是投机性的，高失败率是预期行为，所以落空一律静默。
type Prober struct {
	client     *http.Client
	geo        *geolocate.Resolver
	signatures []Signature
	userAgent  string
}

func New(timeout time.Duration, geo *geolocate.Resolver, sigs []Signature, userAgent string) *Prober {
	if len(sigs) == 0 {
		sigs = DefaultSignatures()
	}
	return &Prober{
		client:     &http.Client{Timeout: timeout},
		geo:        geo,
		signatures: sigs,
		userAgent:  userAgent,
	}
}

// Probe 在候选 URL 是活跃摄像头媒体端点时返回已验证记录，否则返回 nil。
// 响应体不被消费：判定只依赖状态码和 content-type 头。
func (p *Prober) Probe(ctx context.Context, candidate string) *model.CameraInfo {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate, nil)
	if err != nil {
		return nil
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}
	if !isMediaContentType(resp.Header.Get("Content-Type")) {
		return nil
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	ip := u.Hostname()
	port := 80
	if s := u.Port(); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			port = n
		}
	}

	loc := p.geo.Resolve(ctx, ip)
	if loc == nil {
		return nil
	}

	raw := validator.RawDetails{
		Latitude:       strconv.FormatFloat(loc.Latitude, 'f', -1, 64),
		Longitude:      strconv.FormatFloat(loc.Longitude, 'f', -1, 64),
		Country:        orSentinel(loc.Country),
		City:           orSentinel(loc.City),
		Region:         loc.Region,
		Manufacturer:   DetectManufacturer(p.signatures, candidate),
		MediaURL:       candidate,
		SourcePageURL:  fmt.Sprintf("http://%s:%d", ip, port),
		NetworkAddress: ip,
	}

	rec, rejection := validator.Validate(raw, model.OriginExpansion)
	if rejection != nil {
		return nil
	}
	return rec
}

func isMediaContentType(contentType string) bool {
	lower := strings.ToLower(contentType)
	for _, t := range mediaTypes {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func orSentinel(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.SentinelNA
	}
	return s
}
