package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	cfgPkg "github.com/policyscan/policyscan/pkg/config"
	"github.com/policyscan/policyscan/pkg/policies"
	"github.com/policyscan/policyscan/pkg/store"
	"github.com/policyscan/policyscan/server"
)

type Config struct {
	Port      int
	DBUrl     string
	TableName string
	VectorDim int
	CORS      bool
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Config {
	var config Config
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.IntVar(&config.Port, "port", 0, "HTTP listen port")
	flag.StringVar(&config.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&config.TableName, "table", "", "PostgreSQL table name")
	flag.IntVar(&config.VectorDim, "vector-dim", 0, "Embedding vector dimension")
	flag.BoolVar(&config.CORS, "cors", true, "Enable permissive CORS headers")
	flag.Parse()

	// Load config file if specified, then let flags win where set
	if cfg, err := cfgPkg.LoadConfig(configPath); err == nil {
		if config.Port == 0 {
			config.Port = cfg.Server.Port
		}
		if config.DBUrl == "" {
			config.DBUrl = cfg.Database.URL
		}
		if config.TableName == "" {
			config.TableName = cfg.Database.TableName
		}
		if config.VectorDim == 0 {
			config.VectorDim = cfg.Database.VectorDim
		}
		if cfg.Server.CORSEnabled {
			config.CORS = true
		}
	}

	return config
}

func run(config Config) error {
	if config.DBUrl == "" {
		return fmt.Errorf("database URL is required (set -db-url or DATABASE_URL)")
	}

	policyStore, err := store.NewWithConfig(store.PolicyStoreConfig{
		ConnString: config.DBUrl,
		TableName:  config.TableName,
		VectorDim:  config.VectorDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize policy store: %v", err)
	}
	defer policyStore.Close()

	service := policies.NewService(policyStore)

	srv := server.New(server.Config{
		Addr:        fmt.Sprintf(":%d", config.Port),
		CORSEnabled: config.CORS,
	}, service)

	color.Green("policyscan API listening on :%d\n", config.Port)
	return srv.Run()
}
