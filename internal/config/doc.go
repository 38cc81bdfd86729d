// Package config provides centralized configuration management for wexport.
// It loads configuration from multiple sources, validates it, and resolves
// the on-disk layout used by the export service.
//
// # Configuration Sources
//
// Configuration is layered in the following order, later sources winning:
//
//	1. Default values (Default)
//	2. A YAML file (WEXPORT_CONFIG, ./config.yaml or ./configs/config.yaml)
//	3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern WEXPORT_<SECTION>_<FIELD>:
//
//	WEXPORT_SERVER_PORT=8080
//	WEXPORT_SECURITY_API_TOKENS=secret:1,other:2
//	WEXPORT_LOGGING_LEVEL=debug
//	WEXPORT_EXPORT_BATCH_SIZE=200
//	WEXPORT_PATHS_BASE_DIR=/var/lib/wexport
//
// # Paths
//
// Relative paths are anchored at paths.base_dir, which defaults to the
// directory of the running executable:
//
//	<base>/
//	  ├── data/wexport.db    (orders, catalog, templates, export log)
//	  ├── data/exports/      (generated CSV/XLSX files)
//	  └── logs/              (rotated application logs)
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	paths, err := cfg.ResolvePaths()
package config
