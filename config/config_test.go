package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("默认端口应为 8080，实际 %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("配置文件应覆盖默认值，实际 %s", cfg.Log.Level)
	}
	g := cfg.Generation
	if g.ClockInHour != 9 || g.ClockInMinMin != 5 || g.ClockInMinMax != 40 {
		t.Errorf("上班时间默认值错误: %+v", g)
	}
	if g.ClockOutHour != 14 || g.ClockOutMinMin != 0 || g.ClockOutMinMax != 45 {
		t.Errorf("下班时间默认值错误: %+v", g)
	}
	if g.AbsentMin != 2 || g.AbsentMax != 4 {
		t.Errorf("缺勤范围默认值错误: %d-%d", g.AbsentMin, g.AbsentMax)
	}
	if g.Timeout != 60*time.Second || g.MaxMonths != 24 {
		t.Errorf("生成限制默认值错误: %v %d", g.Timeout, g.MaxMonths)
	}
	if cfg.Output.ArtifactTTL != time.Hour {
		t.Errorf("产物 TTL 默认值错误: %v", cfg.Output.ArtifactTTL)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("默认数据库驱动应为 sqlite，实际 %s", cfg.Database.Driver)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\ngeneration:\n  absent_max: 6\n")
	t.Setenv("ATTEND_SERVER_PORT", "9100")
	t.Setenv("ATTEND_GENERATION_OVERTIME_MODE", "beyond:240")
	t.Setenv("ATTEND_AUTH_API_KEYS", "0123456789abcdef,fedcba9876543210")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("环境变量应覆盖配置文件，实际端口 %d", cfg.Server.Port)
	}
	if cfg.Generation.AbsentMax != 6 {
		t.Errorf("配置文件值未生效: %d", cfg.Generation.AbsentMax)
	}
	if cfg.Generation.OvertimeMode != "beyond:240" {
		t.Errorf("加班模式错误: %s", cfg.Generation.OvertimeMode)
	}
	if len(cfg.Auth.APIKeys) != 2 {
		t.Errorf("API Key 解析错误: %v", cfg.Auth.APIKeys)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, ""))
		if err != nil {
			t.Fatalf("Load 应成功: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"未知驱动", func(c *Config) { c.Database.Driver = "mysql" }, "db.driver"},
		{"缺勤范围倒置", func(c *Config) { c.Generation.AbsentMin = 5 }, "absent_min"},
		{"上班分钟越界", func(c *Config) { c.Generation.ClockInMinMax = 60 }, "上班分钟"},
		{"下班分钟倒置", func(c *Config) { c.Generation.ClockOutMinMin = 50 }, "下班分钟"},
		{"月数为零", func(c *Config) { c.Generation.MaxMonths = 0 }, "max_months"},
		{"超时为零", func(c *Config) { c.Generation.Timeout = 0 }, "timeout"},
		{"时区无效", func(c *Config) { c.Generation.Timezone = "Mars/Base" }, "timezone"},
		{"TTL 为零", func(c *Config) { c.Output.ArtifactTTL = 0 }, "artifact_ttl"},
		{"密钥过短", func(c *Config) { c.Auth.APIKeys = []string{"short"} }, "api_keys"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("期望校验失败")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("错误信息应包含 %q，实际 %v", tt.want, err)
			}
		})
	}
}
