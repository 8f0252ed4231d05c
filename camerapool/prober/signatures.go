package prober

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"camsweep/camerapool/model"
)

// Signature 是一条厂商识别规则：Any 中任一子串命中即判定；
// All 非空时改为要求全部命中。规则按表序求值，先命中先得。
type Signature struct {
	Manufacturer string   `yaml:"manufacturer"`
	Any          []string `yaml:"any,omitempty"`
	All          []string `yaml:"all,omitempty"`
}

// DefaultSignatures 返回内置的厂商特征表。
func DefaultSignatures() []Signature {
	return []Signature{
		{Manufacturer: "Axis", Any: []string{"axis", "mjpg/video"}},
		{Manufacturer: "Panasonic", Any: []string{"snapshotjpeg", "cgi-bin/camera"}},
		{Manufacturer: "Canon", Any: []string{"getoneshot"}},
		{Manufacturer: "Sony", Any: []string{"oneshotimage"}},
		{Manufacturer: "WebcamXP", All: []string{"cam_", ".cgi"}},
		{Manufacturer: "FDT", Any: []string{"tmpfs/auto.jpg"}},
	}
}

// LoadSignatures 从 YAML 文件加载特征表，覆盖内置规则。
func LoadSignatures(path string) ([]Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sigs []Signature
	if err := yaml.Unmarshal(data, &sigs); err != nil {
		return nil, err
	}
	return sigs, nil
}

// DetectManufacturer 根据候选 URL 推断厂商，没有规则命中时返回 "Unknown"。
func DetectManufacturer(sigs []Signature, rawURL string) string {
	lower := strings.ToLower(rawURL)

	for _, sig := range sigs {
		if len(sig.All) > 0 {
			matched := true
			for _, token := range sig.All {
				if !strings.Contains(lower, token) {
					matched = false
					break
				}
			}
			if matched {
				return sig.Manufacturer
			}
			continue
		}
		for _, token := range sig.Any {
			if strings.Contains(lower, token) {
				return sig.Manufacturer
			}
		}
	}
	return model.UnknownManufacturer
}
