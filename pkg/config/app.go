package config

import "time"

var AppVersion = "DEVELOPMENT"

const (
	AppName           = "sharemount"
	ConnDbFile        = "connections.db"
	LogFile           = "core.log"
	PidFile           = "core.pid"
	CfgFile           = "config.toml"
	MountRootDirName  = "Shares"
	APIRequestTimeout = 30 * time.Second

	AppEnv = "SHAREMOUNT_APP_PATH"
	CfgEnv = "SHAREMOUNT_CONFIG"
)
