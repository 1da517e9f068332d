package cli

import (
	"fmt"

	"github.com/m-mizutani/dagstat/pkg/domain/interfaces"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
)

// runInit writes the config template to path, or to the user config path
// when path is empty.
func runInit(service interfaces.ConfigService, path string, force bool) error {
	if path == "" {
		path = service.GetDefaultPath()
	}

	if err := service.SaveTemplate(path, force); err != nil {
		return err
	}

	fmt.Printf("Config template written to %s\n", path)
	return nil
}

// loadConfig reads the file named by --config, else the first config found in
// dir, else the user config. The returned path is empty when none exists.
func loadConfig(service interfaces.ConfigService, explicitPath, dir string) (*model.Config, string, error) {
	if explicitPath != "" {
		cfg, err := service.Load(explicitPath)
		return cfg, explicitPath, err
	}

	cfg, path, err := service.LoadFromDirectory(dir)
	if err != nil || path != "" {
		return cfg, path, err
	}

	return service.LoadDefault()
}
