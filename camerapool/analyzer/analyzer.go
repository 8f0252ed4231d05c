package analyzer

import (
	"net"
	"net/url"
	"sort"
	"strconv"

	"camsweep/camerapool/model"
)

// Summary 汇总既有记录集合的统计模式。每次扩展运行前重建，
// 只由 Analyze 写入，消费方只读。
type Summary struct {
	// SubnetCounts 以 /24 网络地址（如 "203.0.113.0"）为键。
	SubnetCounts       map[string]int
	PathCounts         map[string]int
	PortCounts         map[int]int
	ManufacturerCounts map[string]int
	CountryCounts      map[string]int
}

// PortCount 是一个 (端口, 计数) 对，用于排序输出。
type PortCount struct {
	Port  int
	Count int
}

// Analyze 对记录集合做一次尽力而为的模式统计。
// 单条记录的 URL 解析失败只会跳过该记录，不影响整体。
func Analyze(records []model.CameraInfo) *Summary {
	s := &Summary{
		SubnetCounts:       make(map[string]int),
		PathCounts:         make(map[string]int),
		PortCounts:         make(map[int]int),
		ManufacturerCounts: make(map[string]int),
		CountryCounts:      make(map[string]int),
	}

	for i := range records {
		rec := &records[i]
		if !rec.HasMediaURL() {
			continue
		}

		u, err := url.Parse(rec.MediaURL)
		if err != nil || u.Hostname() == "" {
			continue
		}

		// 只有数字 IPv4 主机参与 /24 统计，域名主机跳过。
		if ip := net.ParseIP(u.Hostname()); ip != nil && ip.To4() != nil {
			subnet := ip.Mask(net.CIDRMask(24, 32)).String()
			s.SubnetCounts[subnet]++
		}

		if u.Path != "" {
			s.PathCounts[u.Path]++
		}

		port := 80
		if p := u.Port(); p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				port = n
			}
		}
		s.PortCounts[port]++

		manufacturer := rec.Manufacturer
		if manufacturer == "" {
			manufacturer = model.UnknownManufacturer
		}
		s.ManufacturerCounts[manufacturer]++

		country := rec.Country
		if country == "" {
			country = model.UnknownManufacturer
		}
		s.CountryCounts[country]++
	}

	return s
}

// TopPorts 返回计数最高的前 n 个端口，用于运行日志。
func (s *Summary) TopPorts(n int) []PortCount {
	out := make([]PortCount, 0, len(s.PortCounts))
	for port, count := range s.PortCounts {
		out = append(out, PortCount{Port: port, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Port < out[j].Port
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
