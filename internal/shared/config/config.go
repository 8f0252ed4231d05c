package config

import (
	"os"
	"strconv"

	"gopkg.in/ini.v1"

	"camsweep/internal/shared/types"
)

// LoadIni 加载行为配置文件。文件不存在时不报错：
// 全部字段走默认值，保证零配置也能启动。
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyDefaults()
			return nil
		}
		return err
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return err
	}

	overrideFromEnvInt(&cfg.PoolConf.Workers, "CAMSWEEP_WORKERS")
	overrideFromEnvInt(&cfg.HarvesterConf.Pages, "CAMSWEEP_PAGES")
	overrideFromEnvStr(&cfg.LogConf.Level, "CAMSWEEP_LOG_LEVEL")

	cfg.ApplyDefaults()
	return nil
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvStr(target *string, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		*target = envValue
	}
}
