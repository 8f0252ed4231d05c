package model

// 字段缺失时使用的哨兵值。哨兵值与“字段不存在”不同：
// 它表示该字段曾尝试解析但未能得到结果。
const (
	SentinelNA          = "N/A"
	UnknownManufacturer = "Unknown"
)

// Origin 标记一条记录的来源：从列表站点发现，或由扩展引擎探测得到。
type Origin string

const (
	OriginListing   Origin = "listing"
	OriginExpansion Origin = "expansion"
)

// CameraInfo 定义了一个已验证摄像头端点的完整信息，是整个模块的核心数据结构。
// 它在内存中使用，并通过 Storage 持久化为 JSON。
//
// 不变量：CameraInfo 只能经由 validator 的接受路径构造；
// 一经构造不再修改，修正只能通过重新发现完成。
type CameraInfo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	City      string  `json:"city"`

	// Region 与 Manufacturer 允许缺失，缺失时分别为 "N/A" / "Unknown"。
	Region       string `json:"region"`
	Manufacturer string `json:"manufacturer"`

	// MediaURL 指向静态图/流端点。listing 记录可能没有（"N/A"）；
	// expansion 记录一定有，且经过在线探测。
	MediaURL string `json:"media_url"`

	// SourcePageURL 是该记录来源的详情页/列表项地址。
	SourcePageURL string `json:"source_page_url"`

	Origin Origin `json:"origin"`

	// NetworkAddress 仅 expansion 记录携带：探测成功端点的数字地址。
	NetworkAddress string `json:"network_address,omitempty"`
}

// HasMediaURL 报告该记录是否携带可用的媒体地址。
func (c *CameraInfo) HasMediaURL() bool {
	return c.MediaURL != "" && c.MediaURL != SentinelNA
}
