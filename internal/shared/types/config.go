package types

// HarvesterConf 包含发现模式（列表站点抓取）的行为配置。
type HarvesterConf struct {
	BaseURL        string `ini:"base_url"`
	Pages          int    `ini:"pages"`
	PageDelayMs    int    `ini:"page_delay_ms"`
	TimeoutSeconds int    `ini:"timeout_seconds"`
	UserAgent      string `ini:"user_agent"`
}

// PoolConf 包含 worker 池与进度/检查点节奏的配置。
type PoolConf struct {
	Workers         int `ini:"workers"`
	ProgressEvery   int `ini:"progress_every"`
	CheckpointEvery int `ini:"checkpoint_every"`
}

// ExpansionConf 包含扩展模式（候选生成与探测）的行为配置。
type ExpansionConf struct {
	TargetNew           int    `ini:"target_new"`
	VariationsPerSeed   int    `ini:"variations_per_seed"`
	SeedsPerCountry     int    `ini:"seeds_per_country"`
	ProbeTimeoutSeconds int    `ini:"probe_timeout_seconds"`
	SignatureFile       string `ini:"signature_file"`
}

// StorageConf 指定各输出工件的位置。
type StorageConf struct {
	DataFile      string `ini:"data_file"`
	ExpansionFile string `ini:"expansion_file"`
	CombinedFile  string `ini:"combined_file"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// Config 是 camsweep 的统一配置结构体（只包含行为配置）。
type Config struct {
	HarvesterConf `ini:"harvester"`
	PoolConf      `ini:"pool"`
	ExpansionConf `ini:"expansion"`
	StorageConf   `ini:"storage"`
	LogConf       `ini:"log"`
}

// ApplyDefaults 为未设置的字段填入默认值，使空配置文件也能运行。
func (c *Config) ApplyDefaults() {
	if c.HarvesterConf.BaseURL == "" {
		c.HarvesterConf.BaseURL = "http://www.insecam.org"
	}
	if c.HarvesterConf.Pages <= 0 {
		c.HarvesterConf.Pages = 500
	}
	if c.HarvesterConf.PageDelayMs <= 0 {
		c.HarvesterConf.PageDelayMs = 300
	}
	if c.HarvesterConf.TimeoutSeconds <= 0 {
		c.HarvesterConf.TimeoutSeconds = 10
	}
	if c.HarvesterConf.UserAgent == "" {
		c.HarvesterConf.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if c.PoolConf.Workers <= 0 {
		c.PoolConf.Workers = 15
	}
	if c.PoolConf.ProgressEvery <= 0 {
		c.PoolConf.ProgressEvery = 50
	}
	if c.PoolConf.CheckpointEvery <= 0 {
		c.PoolConf.CheckpointEvery = 100
	}
	if c.ExpansionConf.TargetNew <= 0 {
		c.ExpansionConf.TargetNew = 300
	}
	if c.ExpansionConf.VariationsPerSeed <= 0 {
		c.ExpansionConf.VariationsPerSeed = 15
	}
	if c.ExpansionConf.SeedsPerCountry <= 0 {
		c.ExpansionConf.SeedsPerCountry = 5
	}
	if c.ExpansionConf.ProbeTimeoutSeconds <= 0 {
		c.ExpansionConf.ProbeTimeoutSeconds = 8
	}
	if c.StorageConf.DataFile == "" {
		c.StorageConf.DataFile = "camera_data.json"
	}
	if c.StorageConf.ExpansionFile == "" {
		c.StorageConf.ExpansionFile = "expansion_cameras.json"
	}
	if c.StorageConf.CombinedFile == "" {
		c.StorageConf.CombinedFile = "expanded_camera_data.json"
	}
	if c.LogConf.Level == "" {
		c.LogConf.Level = "info"
	}
}
