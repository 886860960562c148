package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/config"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/attendance"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/render"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/service"
	applogger "github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "attendance",
		Short:        "考勤日历生成工具",
		SilenceUsage: true,
	}
	root.AddCommand(newGenerateCmd())
	return root
}

// generateOptions generate 子命令参数
type generateOptions struct {
	configPath string
	batch      string
	dept       string
	company    string
	start      string
	end        string
	code       string
	name       string
	rosterPath string
	seed       uint64
	formats    string
	out        string
	verbose    bool
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "按名单或单个员工生成考勤日历",
		Example: `  attendance generate --batch B-7 --dept 工程部 --company Acme \
    --start 2025-09-12 --end 2025-10-20 --roster roster.xlsx --formats xlsx,pdf`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var seed *uint64
			if cmd.Flags().Changed("seed") {
				seed = &opts.seed
			}
			return runGenerate(cmd, opts, seed)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "配置文件路径（默认 ./config/config.yaml）")
	f.StringVar(&opts.batch, "batch", "", "批次号")
	f.StringVar(&opts.dept, "dept", "", "部门名称")
	f.StringVar(&opts.company, "company", "", "公司名称")
	f.StringVar(&opts.start, "start", "", "开始日期（YYYY-MM-DD 或 DD-MM-YYYY）")
	f.StringVar(&opts.end, "end", "", "结束日期（YYYY-MM-DD 或 DD-MM-YYYY）")
	f.StringVar(&opts.code, "code", "", "单人模式：工号")
	f.StringVar(&opts.name, "name", "", "单人模式：姓名")
	f.StringVar(&opts.rosterPath, "roster", "", "名单文件（.xlsx / .xls / .csv）")
	f.Uint64Var(&opts.seed, "seed", 0, "随机种子，相同种子得到相同结果")
	f.StringVar(&opts.formats, "formats", "", "输出格式，逗号分隔（xlsx,pdf,docx,ics）")
	f.StringVar(&opts.out, "out", "", "输出根目录（默认 output.dir），结果写入其下新建的 attendance-<uuid> 目录")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "输出 info 级日志")

	cmd.MarkFlagsMutuallyExclusive("roster", "code")
	cmd.MarkFlagsMutuallyExclusive("roster", "name")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions, seed *uint64) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if !opts.verbose {
		cfg.Log.Level = "warn"
	}
	cfg.Log.Format = "console"

	logger, err := applogger.NewLogger(&cfg.Log, "cli")
	if err != nil {
		return err
	}
	defer logger.Sync()

	// CLI 直接写文件：不保存产物，不记录历史
	svc, err := service.NewService(cfg, nil, nil, nil, logger)
	if err != nil {
		return err
	}

	entries, err := loadRoster(svc.Generation, opts)
	if err != nil {
		return err
	}

	res, err := svc.Generation.Generate(cmd.Context(), &service.GenerateInput{
		BatchID:        opts.batch,
		DepartmentName: opts.dept,
		CompanyName:    opts.company,
		StartDate:      opts.start,
		EndDate:        opts.end,
		Roster:         entries,
		Seed:           seed,
		Formats:        opts.formats,
	})
	if err != nil {
		return err
	}

	root := opts.out
	if root == "" {
		root = cfg.Output.Dir
	}
	dir, err := writeResult(root, res)
	if err != nil {
		return err
	}
	logger.Info("结果已写入", zap.String("dir", dir))

	printSummary(cmd.OutOrStdout(), dir, res)
	return nil
}

func loadRoster(svc service.GenerationService, opts *generateOptions) ([]attendance.RosterEntry, error) {
	if opts.rosterPath != "" {
		f, err := os.Open(opts.rosterPath)
		if err != nil {
			return nil, fmt.Errorf("打开名单文件失败: %w", err)
		}
		defer f.Close()
		return svc.ParseRoster(f, filepath.Base(opts.rosterPath))
	}

	code, name := strings.TrimSpace(opts.code), strings.TrimSpace(opts.name)
	if code == "" && name == "" {
		return nil, errors.New("请通过 --roster 指定名单文件，或通过 --code / --name 指定单个员工")
	}
	return []attendance.RosterEntry{{Code: code, Name: name}}, nil
}

// writeResult 在 root 下新建唯一目录并写入各格式文件与打包 zip
func writeResult(root string, res *service.GenerateResult) (string, error) {
	dir := filepath.Join(root, "attendance-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	files := make([]*render.Artifact, 0, len(res.Artifacts)+1)
	files = append(files, res.Artifacts...)
	files = append(files, res.Archive)
	for _, a := range files {
		if err := os.WriteFile(filepath.Join(dir, a.Filename), a.Data, 0o644); err != nil {
			return "", fmt.Errorf("写入 %s 失败: %w", a.Filename, err)
		}
	}
	return dir, nil
}

func printSummary(w io.Writer, dir string, res *service.GenerateResult) {
	fmt.Fprintf(w, "输出目录: %s\n", dir)
	fmt.Fprintf(w, "随机种子: %d\n", res.Seed)
	fmt.Fprintf(w, "名单人数: %d\n", len(res.Report.Roster))

	months := make([]string, 0, len(res.Report.Months))
	for _, g := range res.Report.Months {
		months = append(months, g.Label())
	}
	fmt.Fprintf(w, "月份: %s\n", strings.Join(months, ", "))

	for _, a := range res.Artifacts {
		fmt.Fprintf(w, "  [%s] %s (%d bytes)\n", a.Format, a.Filename, len(a.Data))
	}
	fmt.Fprintf(w, "  [zip] %s\n", res.Archive.Filename)
	for _, f := range res.Failures {
		fmt.Fprintf(w, "  [%s] 失败: %v\n", f.Format, f.Err)
	}
}
