package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wolfeidau/towerctl/internal/awsauth"
	"github.com/wolfeidau/towerctl/internal/console"
	"github.com/wolfeidau/towerctl/internal/logger"
	"github.com/wolfeidau/towerctl/internal/tower"
)

type Globals struct {
	Debug      bool
	ConfigPath string
	Version    string
}

// ConfigFile is the optional YAML configuration for towerctl.
type ConfigFile struct {
	RoleARN          string        `yaml:"role_arn"`
	Region           string        `yaml:"region"`
	SuspendedOU      string        `yaml:"suspended_ou"`
	SettlingTime     time.Duration `yaml:"settling_time"`
	StatusCacheTTL   time.Duration `yaml:"status_cache_ttl"`
	BusyPollInterval time.Duration `yaml:"busy_poll_interval"`
}

func loadConfigFile(path string) (ConfigFile, error) {
	var cfg ConfigFile
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// buildTower wires the three service clients behind a ControlTower. The
// console transport uses the default HTTP client; console session
// authentication is expected to be in place already.
func buildTower(ctx context.Context, globals *Globals) (*tower.ControlTower, error) {
	log.Logger = logger.Setup(globals.Debug)

	fileCfg, err := loadConfigFile(globals.ConfigPath)
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsauth.Config(ctx, fileCfg.RoleARN, fileCfg.Region)
	if err != nil {
		return nil, err
	}

	doer := console.NewHTTPDoer(http.DefaultClient, console.EndpointURL(awsCfg.Region))
	return tower.New(ctx,
		servicecatalog.NewFromConfig(awsCfg),
		organizations.NewFromConfig(awsCfg),
		console.New(doer, awsCfg.Region),
		tower.Config{
			SettlingTime:     fileCfg.SettlingTime,
			SuspendedOUName:  fileCfg.SuspendedOU,
			StatusCacheTTL:   fileCfg.StatusCacheTTL,
			BusyPollInterval: fileCfg.BusyPollInterval,
		})
}
