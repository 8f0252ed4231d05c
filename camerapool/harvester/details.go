package harvester

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"camsweep/camerapool/model"
	"camsweep/camerapool/validator"
)

// DetailExtractor 抓取单个候选详情页并提取标注字段。
// 不做缓存/重试/限速：并发与节奏由上层的 worker 池统一控制。
type DetailExtractor struct {
	client    *http.Client
	userAgent string
}

func NewDetailExtractor(timeout time.Duration, userAgent string) *DetailExtractor {
	return &DetailExtractor{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Extract 的三种结果互斥：记录（接受）、拒绝（字段不完整/越界）、
// 错误（传输或 HTML 解析失败）。单个字段缺失不构成错误，
// 会以哨兵值进入 validator 由它统一裁决。
func (d *DetailExtractor) Extract(ctx context.Context, pageURL string) (*model.CameraInfo, *validator.Rejection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	details := doc.Find("div.camera-details")

	raw := validator.RawDetails{
		Latitude:      detailField(details, "Latitude:"),
		Longitude:     detailField(details, "Longitude:"),
		Country:       detailField(details, "Country:"),
		City:          detailField(details, "City:"),
		Region:        detailField(details, "Region:"),
		Manufacturer:  detailField(details, "Manufacturer:"),
		MediaURL:      mediaImageURL(doc),
		SourcePageURL: pageURL,
	}

	rec, rejection := validator.Validate(raw, model.OriginListing)
	if rejection != nil {
		return nil, rejection, nil
	}
	return rec, nil, nil
}

// detailField 在详情区内定位标签文本，读取同行的值单元格。
// 值单元格里有链接时取链接文本（Country/Region/City/Manufacturer 的形态），
// 否则取单元格文本。找不到标签或值为空都退化为哨兵值。
func detailField(details *goquery.Selection, label string) string {
	value := model.SentinelNA

	details.Find("div.camera-details__row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("div.camera-details__cell")
		if cells.Length() < 2 {
			return true
		}
		if !strings.Contains(cells.Eq(0).Text(), label) {
			return true
		}

		cell := cells.Eq(1)
		if a := cell.Find("a").First(); a.Length() > 0 {
			value = strings.TrimSpace(a.Text())
		} else {
			value = strings.TrimSpace(cell.Text())
		}
		return false
	})

	if value == "" {
		return model.SentinelNA
	}
	return value
}

func mediaImageURL(doc *goquery.Document) string {
	if src, ok := doc.Find("img.img-responsive.img-rounded.detailimage").First().Attr("src"); ok && strings.TrimSpace(src) != "" {
		return src
	}
	return model.SentinelNA
}
