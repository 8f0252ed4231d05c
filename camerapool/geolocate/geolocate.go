package geolocate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"camsweep/internal/shared/logger"
)

const defaultTimeout = 5 * time.Second

// Location 是一次地理位置解析的结果，字段已归一到统一命名。
type Location struct {
	Latitude  float64
	Longitude float64
	Country   string
	City      string
	Region    string
}

// Provider 定义了单个外部地理位置服务的行为。
// 实现者只负责查询和解析自己的响应格式，不做重试或降级。
type Provider interface {
	Name() string
	Lookup(ctx context.Context, client *http.Client, ip string) (*Location, error)
}

// Resolver 按固定顺序查询多个 Provider，返回第一个可用结果。
// 任何单个 Provider 的传输错误只意味着落空到下一个，不向上传播。
type Resolver struct {
	providers []Provider
	client    *http.Client
	limiter   *rate.Limiter
}

// NewResolver 创建默认的解析链：ipapi.co 优先，ip-api.com 兜底。
func NewResolver(providers ...Provider) *Resolver {
	if len(providers) == 0 {
		providers = []Provider{
			&IpapiProvider{},
			&IPAPIComProvider{},
		}
	}
	return &Resolver{
		providers: providers,
		client:    &http.Client{Timeout: defaultTimeout},
		// 相邻两次外部查询之间保持至少 100ms 间隔。
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
}

// Resolve 返回第一个可用的地理位置，全部失败时返回 nil。
func (r *Resolver) Resolve(ctx context.Context, ip string) *Location {
	l := logger.WithComponent("CameraPool/Geolocate")

	for _, p := range r.providers {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil
		}

		loc, err := p.Lookup(ctx, r.client, ip)
		if err != nil {
			l.Debug().Err(err).Str("provider", p.Name()).Str("ip", ip).Msg("Provider lookup failed, falling through.")
			continue
		}
		return loc
	}
	return nil
}

// IpapiProvider 查询 ipapi.co。响应为扁平 JSON，
// 出错时带 error 标志而不是非 200 状态码。
type IpapiProvider struct {
	BaseURL string // 为空时使用线上地址；测试注入 httptest 地址
}

func (p *IpapiProvider) Name() string { return "ipapi.co" }

func (p *IpapiProvider) Lookup(ctx context.Context, client *http.Client, ip string) (*Location, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://ipapi.co"
	}

	var body struct {
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		CountryName string  `json:"country_name"`
		City        string  `json:"city"`
		Region      string  `json:"region"`
		Error       bool    `json:"error"`
	}
	if err := getJSON(ctx, client, fmt.Sprintf("%s/%s/json/", base, ip), &body); err != nil {
		return nil, err
	}
	if body.Error {
		return nil, fmt.Errorf("ipapi.co returned error flag for %s", ip)
	}

	return &Location{
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
		Country:   body.CountryName,
		City:      body.City,
		Region:    body.Region,
	}, nil
}

// IPAPIComProvider 查询 ip-api.com。status 字段为 "success" 才算有效应答。
type IPAPIComProvider struct {
	BaseURL string
}

func (p *IPAPIComProvider) Name() string { return "ip-api.com" }

func (p *IPAPIComProvider) Lookup(ctx context.Context, client *http.Client, ip string) (*Location, error) {
	base := p.BaseURL
	if base == "" {
		base = "http://ip-api.com"
	}

	var body struct {
		Status     string  `json:"status"`
		Lat        float64 `json:"lat"`
		Lon        float64 `json:"lon"`
		Country    string  `json:"country"`
		City       string  `json:"city"`
		RegionName string  `json:"regionName"`
	}
	if err := getJSON(ctx, client, fmt.Sprintf("%s/json/%s", base, ip), &body); err != nil {
		return nil, err
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("ip-api.com returned status %q for %s", body.Status, ip)
	}

	return &Location{
		Latitude:  body.Lat,
		Longitude: body.Lon,
		Country:   body.Country,
		City:      body.City,
		Region:    body.RegionName,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
