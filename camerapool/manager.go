package camerapool

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"camsweep/camerapool/analyzer"
	"camsweep/camerapool/geolocate"
	"camsweep/camerapool/harvester"
	"camsweep/camerapool/model"
	"camsweep/camerapool/mutator"
	"camsweep/camerapool/prober"
	"camsweep/camerapool/storage"
	"camsweep/internal/shared/logger"
	"camsweep/internal/shared/types"
)

// Manager 是发现/扩展流水线的总控制器：驱动抓取与探测任务在
// 有界 worker 池上运行，聚合结果，按节奏汇报进度并写检查点。
//
// 共享状态约束：已接受记录的切片只由聚合循环（单 goroutine）追加，
// worker 之间互不可见，也不直接触碰存储。
type Manager struct {
	cfg   *types.Config
	runID string

	dataStore      storage.Store
	expansionStore storage.Store
	combinedStore  storage.Store

	listing   *harvester.Listing
	extractor *harvester.DetailExtractor
	prb       *prober.Prober
	gen       *mutator.Generator

	observer Observer
}

// Observer 接收运行期事件。实现者不应阻塞。
type Observer interface {
	OnProgress(mode string, processed, accepted int, ratio float64)
	OnSummary(stats RunStats)
}

// RunStats 是一次运行的聚合结果，由 Manager 的聚合点独占更新。
type RunStats struct {
	RunID     string
	Mode      string
	Processed int
	Accepted  int
	Rejected  int
	Failed    int
	Duration  time.Duration
	Artifacts []string
}

// SuccessRatio 返回接受数占处理数的百分比。
func (s *RunStats) SuccessRatio() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Processed) * 100
}

// NewManager 创建并装配流水线的所有组件。
func NewManager(cfg *types.Config) (*Manager, error) {
	sigs := prober.DefaultSignatures()
	if cfg.ExpansionConf.SignatureFile != "" {
		loaded, err := prober.LoadSignatures(cfg.ExpansionConf.SignatureFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load signature file %q: %w", cfg.ExpansionConf.SignatureFile, err)
		}
		sigs = loaded
	}

	harvestTimeout := time.Duration(cfg.HarvesterConf.TimeoutSeconds) * time.Second
	pageDelay := time.Duration(cfg.HarvesterConf.PageDelayMs) * time.Millisecond
	probeTimeout := time.Duration(cfg.ExpansionConf.ProbeTimeoutSeconds) * time.Second

	return &Manager{
		cfg:            cfg,
		runID:          uuid.New().String(),
		dataStore:      storage.NewFileStore(cfg.StorageConf.DataFile),
		expansionStore: storage.NewFileStore(cfg.StorageConf.ExpansionFile),
		combinedStore:  storage.NewFileStore(cfg.StorageConf.CombinedFile),
		listing:        harvester.NewListing(cfg.HarvesterConf.BaseURL, cfg.HarvesterConf.UserAgent, harvestTimeout, pageDelay),
		extractor:      harvester.NewDetailExtractor(harvestTimeout, cfg.HarvesterConf.UserAgent),
		prb:            prober.New(probeTimeout, geolocate.NewResolver(), sigs, cfg.HarvesterConf.UserAgent),
		gen:            mutator.NewGenerator(rand.New(rand.NewSource(time.Now().UnixNano()))),
	}, nil
}

// SetObserver 注册运行期事件接收者，nil 表示只走日志。
func (m *Manager) SetObserver(obs Observer) { m.observer = obs }

// taskResult 是单个 worker 任务的三态结果：
// 接受（rec 非空）、拒绝（rejected）、失败（err 非空）。
// 三者都为零值表示静默落空（探测未命中）。
type taskResult struct {
	rec      *model.CameraInfo
	rejected bool
	err      error
}

// RunDiscovery 执行一轮发现模式：翻页采集候选链接，
// 并发提取详情，验证通过的记录写入主数据文件。
func (m *Manager) RunDiscovery(ctx context.Context) (RunStats, error) {
	l := logger.WithComponent("CameraPool/Manager")
	started := time.Now()
	stats := RunStats{RunID: m.runID, Mode: "discover"}

	l.Info().Str("run_id", m.runID).Int("pages", m.cfg.HarvesterConf.Pages).Int("workers", m.cfg.PoolConf.Workers).Msg("Starting discovery run...")

	links := m.listing.Harvest(ctx, m.cfg.HarvesterConf.Pages)
	if len(links) == 0 {
		l.Warn().Str("run_id", m.runID).Msg("No candidate links harvested.")
		stats.Duration = time.Since(started)
		m.summarize(stats)
		return stats, nil
	}

	accepted := make([]model.CameraInfo, 0, len(links)/4)
	var ckptErr error
	counts := m.runPool(ctx, "discover", links, m.extractOne, func(rec *model.CameraInfo) bool {
		accepted = append(accepted, *rec)
		if len(accepted)%m.cfg.PoolConf.CheckpointEvery == 0 {
			if err := m.dataStore.SaveCheckpoint(accepted); err != nil {
				ckptErr = err
				return true
			}
		}
		return false
	})
	stats.Processed, stats.Accepted, stats.Rejected, stats.Failed = counts.processed, counts.accepted, counts.rejected, counts.failed

	// 检查点写不进去说明磁盘已不可靠，继续跑只会放大损失；
	// 上一个成功的检查点保持原样。
	if ckptErr != nil {
		stats.Duration = time.Since(started)
		return stats, fmt.Errorf("checkpoint write failed, aborting run: %w", ckptErr)
	}

	if err := m.dataStore.Save(accepted); err != nil {
		// 保存失败时保留检查点：它是崩溃后唯一的恢复来源。
		stats.Duration = time.Since(started)
		return stats, fmt.Errorf("failed to save records: %w", err)
	}
	if err := m.dataStore.RemoveCheckpoint(); err != nil {
		l.Warn().Err(err).Msg("Failed to remove checkpoint artifact.")
	}

	stats.Artifacts = []string{m.cfg.StorageConf.DataFile}
	stats.Duration = time.Since(started)
	m.summarize(stats)
	return stats, nil
}

func (m *Manager) extractOne(ctx context.Context, link string) taskResult {
	l := logger.WithComponent("CameraPool/Manager")

	rec, rejection, err := m.extractor.Extract(ctx, link)
	if err != nil {
		l.Error().Err(err).Str("url", link).Msg("Detail extraction failed.")
		return taskResult{err: err}
	}
	if rejection != nil {
		// 拒绝是高频的预期结果，只在 debug 级别留痕。
		l.Debug().Str("url", link).Str("reason", rejection.String()).Msg("Record rejected.")
		return taskResult{rejected: true}
	}
	return taskResult{rec: rec}
}

// RunExpansion 执行一轮扩展模式：分析既有记录集合的模式，
// 对代表性种子做地址/路径变异，并发探测候选，命中的新记录
// 写入扩展文件并与既有集合合并。
func (m *Manager) RunExpansion(ctx context.Context) (RunStats, error) {
	l := logger.WithComponent("CameraPool/Manager")
	started := time.Now()
	stats := RunStats{RunID: m.runID, Mode: "expand"}

	existing, err := m.dataStore.Load()
	if err != nil {
		return stats, fmt.Errorf("failed to load existing records: %w", err)
	}
	if len(existing) == 0 {
		return stats, fmt.Errorf("no existing records in %s; run discovery first", m.cfg.StorageConf.DataFile)
	}

	summary := analyzer.Analyze(existing)
	l.Info().
		Str("run_id", m.runID).
		Int("subnets", len(summary.SubnetCounts)).
		Int("path_patterns", len(summary.PathCounts)).
		Interface("top_ports", summary.TopPorts(5)).
		Msg("Pattern analysis finished.")

	target := m.cfg.ExpansionConf.TargetNew
	candidates := m.generateCandidates(existing, target)
	l.Info().Str("run_id", m.runID).Int("count", len(candidates)).Msg("Candidate URLs generated.")

	newRecords := make([]model.CameraInfo, 0, target)
	var ckptErr error
	counts := m.runPool(ctx, "expand", candidates, m.probeOne, func(rec *model.CameraInfo) bool {
		newRecords = append(newRecords, *rec)
		l.Info().
			Str("city", rec.City).
			Str("country", rec.Country).
			Str("manufacturer", rec.Manufacturer).
			Str("url", rec.MediaURL).
			Msg("New camera endpoint found.")
		if len(newRecords)%m.cfg.PoolConf.CheckpointEvery == 0 {
			if err := m.expansionStore.SaveCheckpoint(newRecords); err != nil {
				ckptErr = err
				return true
			}
		}
		return len(newRecords) >= target
	})
	stats.Processed, stats.Accepted, stats.Rejected, stats.Failed = counts.processed, counts.accepted, counts.rejected, counts.failed

	if ckptErr != nil {
		stats.Duration = time.Since(started)
		return stats, fmt.Errorf("checkpoint write failed, aborting run: %w", ckptErr)
	}

	if len(newRecords) > 0 {
		if err := m.expansionStore.Save(newRecords); err != nil {
			return stats, fmt.Errorf("failed to save expansion records: %w", err)
		}
		combined := make([]model.CameraInfo, 0, len(existing)+len(newRecords))
		combined = append(combined, existing...)
		combined = append(combined, newRecords...)
		if err := m.combinedStore.Save(combined); err != nil {
			return stats, fmt.Errorf("failed to save combined records: %w", err)
		}
		stats.Artifacts = []string{m.cfg.StorageConf.ExpansionFile, m.cfg.StorageConf.CombinedFile}
	}
	if err := m.expansionStore.RemoveCheckpoint(); err != nil {
		l.Warn().Err(err).Msg("Failed to remove checkpoint artifact.")
	}

	stats.Duration = time.Since(started)
	m.summarize(stats)
	return stats, nil
}

func (m *Manager) probeOne(ctx context.Context, candidate string) taskResult {
	// 探测落空是静默的：三态全零值即“未命中”。
	return taskResult{rec: m.prb.Probe(ctx, candidate)}
}

// generateCandidates 按国家分组取代表性种子做变异，
// 过滤掉已知媒体地址，生成量封顶在目标数的 3 倍。
func (m *Manager) generateCandidates(existing []model.CameraInfo, target int) []string {
	known := make(map[string]struct{}, len(existing))
	byCountry := make(map[string][]*model.CameraInfo)
	var countryOrder []string
	for i := range existing {
		rec := &existing[i]
		if rec.HasMediaURL() {
			known[rec.MediaURL] = struct{}{}
		}
		if _, ok := byCountry[rec.Country]; !ok {
			countryOrder = append(countryOrder, rec.Country)
		}
		byCountry[rec.Country] = append(byCountry[rec.Country], rec)
	}

	seen := make(map[string]struct{})
	var candidates []string

	for _, country := range countryOrder {
		seeds := byCountry[country]
		if len(seeds) > m.cfg.ExpansionConf.SeedsPerCountry {
			seeds = seeds[:m.cfg.ExpansionConf.SeedsPerCountry]
		}
		for _, seed := range seeds {
			for _, c := range m.gen.Generate(seed, m.cfg.ExpansionConf.VariationsPerSeed) {
				if _, ok := known[c]; ok {
					continue
				}
				if _, ok := seen[c]; ok {
					continue
				}
				seen[c] = struct{}{}
				candidates = append(candidates, c)
			}
		}
		if len(candidates) > target*3 {
			break
		}
	}

	// 实际探测量封顶在目标数的 2 倍，避免无意义的长尾扫描。
	if len(candidates) > target*2 {
		candidates = candidates[:target*2]
	}
	return candidates
}

type poolCounts struct {
	processed int
	accepted  int
	rejected  int
	failed    int
}

// runPool 在有界 worker 池上执行全部任务并在当前 goroutine 聚合结果。
// 结果按完成序消费；onAccept 只在聚合循环里调用，返回 true 表示
// 达到目标，停止提交新任务（在途任务自然收尾）。
func (m *Manager) runPool(ctx context.Context, mode string, urls []string, work func(context.Context, string) taskResult, onAccept func(*model.CameraInfo) bool) poolCounts {
	l := logger.WithComponent("CameraPool/Manager")

	workers := m.cfg.PoolConf.Workers
	if workers < 1 {
		workers = 1
	}
	l.Info().Int("count", len(urls)).Int("workers", workers).Str("mode", mode).Msg("Starting worker pool...")

	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)
	results := make(chan taskResult, len(urls))

	go func() {
	submit:
		for _, u := range urls {
			select {
			case <-poolCtx.Done():
				break submit
			case semaphore <- struct{}{}:
			}

			wg.Add(1)
			go func(u string) {
				defer wg.Done()
				defer func() { <-semaphore }()
				results <- work(poolCtx, u)
			}(u)
		}
		wg.Wait()
		close(results)
	}()

	var counts poolCounts
	for r := range results {
		counts.processed++
		switch {
		case r.rec != nil:
			counts.accepted++
			if onAccept(r.rec) {
				cancel()
			}
		case r.rejected:
			counts.rejected++
		case r.err != nil:
			counts.failed++
		}

		if counts.processed%m.cfg.PoolConf.ProgressEvery == 0 {
			ratio := float64(counts.accepted) / float64(counts.processed) * 100
			l.Info().
				Str("mode", mode).
				Int("processed", counts.processed).
				Int("total", len(urls)).
				Int("accepted", counts.accepted).
				Float64("success_ratio", ratio).
				Msg("Pool progress.")
			if m.observer != nil {
				m.observer.OnProgress(mode, counts.processed, counts.accepted, ratio)
			}
		}
	}

	return counts
}

func (m *Manager) summarize(stats RunStats) {
	l := logger.WithComponent("CameraPool/Manager")
	l.Info().
		Str("run_id", stats.RunID).
		Str("mode", stats.Mode).
		Int("processed", stats.Processed).
		Int("accepted", stats.Accepted).
		Int("rejected", stats.Rejected).
		Int("failed", stats.Failed).
		Float64("success_ratio", stats.SuccessRatio()).
		Dur("duration", stats.Duration).
		Interface("artifacts", stats.Artifacts).
		Msg("Run finished.")
	if m.observer != nil {
		m.observer.OnSummary(stats)
	}
}
