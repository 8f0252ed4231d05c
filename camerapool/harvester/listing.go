package harvester

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"camsweep/internal/shared/logger"
)

// listingSelector 匹配列表页上的摄像头条目链接。
const listingSelector = ".thumbnail-item__wrap"

// Listing 顺序翻页抓取列表站点，产出去重后的候选详情页链接。
// 翻页刻意保持串行：避免对单一列表主机造成并发压力，
// 也让进度汇报保持简单。
type Listing struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
}

// NewListing 创建列表抓取器。pageDelay 是相邻两页之间的礼貌间隔。
func NewListing(baseURL, userAgent string, timeout, pageDelay time.Duration) *Listing {
	return &Listing{
		baseURL:   baseURL,
		userAgent: userAgent,
		timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Every(pageDelay), 1),
	}
}

// Harvest 抓取 1..pages 页并返回候选链接集合。
// 去重按链接字符串字面值：不做 URL 归一化，只差尾斜杠或参数顺序的
// 链接会被当成不同候选（已知局限）。
// 单页失败只记日志并跳过，不中断整轮抓取。
func (h *Listing) Harvest(ctx context.Context, pages int) []string {
	l := logger.WithComponent("CameraPool/Harvester")
	l.Info().Int("pages", pages).Str("base_url", h.baseURL).Msg("Starting listing harvest...")

	// 每轮采集使用新的 collector：colly 会跳过已访问过的 URL，
	// 复用实例会让重复运行静默产出空集。
	collector := colly.NewCollector(
		colly.UserAgent(h.userAgent),
	)
	collector.SetRequestTimeout(h.timeout)

	var mu sync.Mutex
	seen := make(map[string]struct{})
	var links []string

	collector.OnHTML(listingSelector, func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if href == "" {
			return
		}
		link := e.Request.AbsoluteURL(href)

		mu.Lock()
		defer mu.Unlock()
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	collector.OnError(func(r *colly.Response, err error) {
		l.Error().Err(err).Int("status_code", r.StatusCode).Str("url", r.Request.URL.String()).Msg("Listing page request failed, skipping page.")
	})

	for page := 1; page <= pages; page++ {
		if err := h.limiter.Wait(ctx); err != nil {
			l.Warn().Int("page", page).Msg("Harvest interrupted, returning links collected so far.")
			break
		}

		pageURL := fmt.Sprintf("%s/en/byrating/?page=%d", h.baseURL, page)
		l.Debug().Str("url", pageURL).Msg("Visiting page...")
		if err := collector.Visit(pageURL); err != nil {
			l.Error().Err(err).Str("url", pageURL).Msg("Failed to visit listing page, skipping.")
			continue
		}

		if page%10 == 0 {
			mu.Lock()
			found := len(links)
			mu.Unlock()
			l.Info().Int("page", page).Int("pages", pages).Int("links", found).Msg("Harvest progress.")
		}
	}

	collector.Wait()

	l.Info().Int("count", len(links)).Msg("Listing harvest finished.")
	return links
}
