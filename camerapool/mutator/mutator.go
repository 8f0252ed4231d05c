package mutator

import (
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"strconv"
	"strings"

	"camsweep/camerapool/model"
)

// 端口为默认 80 时额外尝试的常见备用端口：
// 同一族摄像头经常在这些端口上暴露同样的路径。
var alternatePorts = []int{8080, 8081, 8888}

const maxPathVariants = 10

// pathRule 是一条路径约定的识别与展开规则。规则按表序求值，
// 只有种子路径里实际出现的约定才会展开。
type pathRule struct {
	token  string
	expand func(path string, rng *rand.Rand) []string
}

func replaceEach(token string, alternatives ...string) func(string, *rand.Rand) []string {
	return func(path string, _ *rand.Rand) []string {
		out := make([]string, 0, len(alternatives))
		for _, alt := range alternatives {
			out = append(out, strings.Replace(path, token, alt, 1))
		}
		return out
	}
}

func replaceRange(prefix string, from, to int) func(string, *rand.Rand) []string {
	token := prefix + "1"
	return func(path string, _ *rand.Rand) []string {
		out := make([]string, 0, to-from+1)
		for i := from; i <= to; i++ {
			out = append(out, strings.Replace(path, token, prefix+strconv.Itoa(i), 1))
		}
		return out
	}
}

var pathRules = []pathRule{
	{"Resolution=640x480", replaceEach("Resolution=640x480",
		"Resolution=320x240", "Resolution=800x600", "Resolution=1024x768")},
	{"Quality=Clarity", replaceEach("Quality=Clarity", "Quality=Standard")},
	{"Quality=Standard", replaceEach("Quality=Standard", "Quality=Clarity")},
	{"resolution=640", replaceEach("resolution=640", "resolution=320", "resolution=800")},
	{"cam_1", replaceRange("cam_", 2, 5)},
	{"channel=1", replaceRange("channel=", 2, 4)},
	{"COUNTER", func(path string, rng *rand.Rand) []string {
		return []string{
			strings.Replace(path, "COUNTER", strconv.Itoa(1000+rng.Intn(9000)), 1),
			strings.Replace(path, "COUNTER", "", 1),
		}
	}},
}

// Generator 基于一条种子记录合成候选媒体 URL。
// 随机源由调用方注入，测试可以固定种子获得确定输出。
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Generate 返回去重后的候选 URL 集合。种子的媒体地址必须是
// 带数字 IPv4 主机的合法 URL，否则返回空。
//
// 地址变异：同 /24 网段内最多 variations 个随机主机（排除种子自身），
// 沿用种子的端口与路径；端口为 80 时对每个变异地址追加备用端口。
// 路径变异：仅针对种子地址本身，按 pathRules 展开，至多 maxPathVariants 条。
func (g *Generator) Generate(seed *model.CameraInfo, variations int) []string {
	if !seed.HasMediaURL() {
		return nil
	}

	u, err := url.Parse(seed.MediaURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	ip := net.ParseIP(u.Hostname())
	if ip == nil || ip.To4() == nil {
		return nil
	}

	port := 80
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	// 路径模板包含 query 部分：摄像头的分辨率/通道等约定大多在 query 里。
	path := u.RequestURI()

	seen := make(map[string]struct{})
	var out []string
	add := func(candidate string) {
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	base := ip.To4().Mask(net.CIDRMask(24, 32))
	seedHost := u.Hostname()
	for i := 0; i < variations; i++ {
		mutated := make(net.IP, len(base))
		copy(mutated, base)
		mutated[3] = byte(1 + g.rng.Intn(254))
		if mutated.String() == seedHost {
			continue
		}

		add(fmt.Sprintf("http://%s:%d%s", mutated, port, path))
		if port == 80 {
			for _, alt := range alternatePorts {
				add(fmt.Sprintf("http://%s:%d%s", mutated, alt, path))
			}
		}
	}

	if path != "" {
		added := 0
		for _, rule := range pathRules {
			if !strings.Contains(path, rule.token) {
				continue
			}
			for _, variant := range rule.expand(path, g.rng) {
				if added >= maxPathVariants {
					break
				}
				add(fmt.Sprintf("http://%s:%d%s", seedHost, port, variant))
				added++
			}
		}
	}

	return out
}
