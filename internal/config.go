package internal

import (
	"fmt"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pugtube/pugtube/internal/api"
	"github.com/pugtube/pugtube/internal/catalog"
	"github.com/pugtube/pugtube/internal/database"
	"github.com/pugtube/pugtube/internal/ingest"
)

// PugTubeConfig is the struct used to contain the various user config
// supplied by file, or manually inside the code.
type PugTubeConfig struct {
	Database     database.DatabaseConfig `yaml:"database" env-required:"true"`
	Catalog      catalog.Config          `yaml:"catalog" env-required:"true"`
	Ingest       ingest.Config           `yaml:"ingest"`
	RestConfig   api.RestConfig          `yaml:"api"`
	MediaDirPath string                  `yaml:"media_dir" env:"MEDIA_DIR" env-default:"media"`
}

// LoadFromFile loads a configuration file formatted in YAML in to a
// PugTubeConfig struct.
func (config *PugTubeConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration: %v", err.Error())
	}

	return nil
}

// DefaultConfigPath derives the expected config location inside the users
// home directory.
func DefaultConfigPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(".", "pugtube.yaml")
	}

	return filepath.Join(home, ".config", "pugtube", "config.yaml")
}
