package config

import "fmt"

// 构建时通过 -ldflags 注入
var (
	Version    string = "dev"
	CommitHash string = ""
	BuildTime  string = ""
)

// IsDevelopment 判断是否为开发环境，开发环境下 GORM 打印 SQL
func IsDevelopment() bool {
	return Version == "dev"
}

// VersionString 命令行显示的版本信息
func VersionString() string {
	commit := CommitHash
	if commit == "" {
		commit = "n/a"
	}
	if BuildTime == "" {
		return fmt.Sprintf("%s (commit %s)", Version, commit)
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, commit, BuildTime)
}
