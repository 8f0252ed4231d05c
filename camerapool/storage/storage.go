package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"camsweep/camerapool/model"
	"camsweep/internal/shared/logger"
)

// Store 接口定义了记录集合持久化的行为。
// 检查点是运行中的临时快照，正常完成后被最终工件取代并删除。
type Store interface {
	Load() ([]model.CameraInfo, error)
	Save(records []model.CameraInfo) error
	SaveCheckpoint(records []model.CameraInfo) error
	RemoveCheckpoint() error
}

// FileStore 实现了 Store 接口，使用 JSON 文件持久化。
// 写入走“临时文件 + rename”以保证原子性。
type FileStore struct {
	filePath string
	mu       sync.Mutex
}

// NewFileStore 创建一个新的 FileStore 实例。
func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath}
}

// CheckpointPath 返回检查点工件的位置：主文件名加 _checkpoint 后缀。
func (fs *FileStore) CheckpointPath() string {
	ext := filepath.Ext(fs.filePath)
	return strings.TrimSuffix(fs.filePath, ext) + "_checkpoint" + ext
}

// Load 从 JSON 文件加载记录集合。文件不存在视为空集而不是错误。
func (fs *FileStore) Load() ([]model.CameraInfo, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	l := logger.WithComponent("CameraPool/Storage")

	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			l.Info().Str("path", fs.filePath).Msg("Record file not found, starting with an empty set.")
			return []model.CameraInfo{}, nil
		}
		return nil, err
	}

	var records []model.CameraInfo
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	l.Info().Int("count", len(records)).Str("path", fs.filePath).Msg("Successfully loaded records from file.")
	return records, nil
}

// Save 将记录集合原子地写入主文件。
func (fs *FileStore) Save(records []model.CameraInfo) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := writeAtomic(fs.filePath, records); err != nil {
		return err
	}

	l := logger.WithComponent("CameraPool/Storage")
	l.Info().Int("count", len(records)).Str("path", fs.filePath).Msg("Successfully saved records to file.")
	return nil
}

// SaveCheckpoint 把已接受的记录快照写到检查点文件。
func (fs *FileStore) SaveCheckpoint(records []model.CameraInfo) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := writeAtomic(fs.CheckpointPath(), records); err != nil {
		return err
	}

	l := logger.WithComponent("CameraPool/Storage")
	l.Info().Int("count", len(records)).Str("path", fs.CheckpointPath()).Msg("Checkpoint written.")
	return nil
}

// RemoveCheckpoint 删除检查点文件。文件不存在不算错误。
func (fs *FileStore) RemoveCheckpoint() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.CheckpointPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func writeAtomic(path string, records []model.CameraInfo) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
