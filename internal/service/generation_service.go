package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/config"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/attendance"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/dto"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/model"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/render"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/repository"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/roster"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/metrics"
)

// ── 考勤生成业务错误 ──

var (
	ErrAllRenderersFailed = errors.New("所有输出格式均渲染失败")
	ErrJobNotFound        = errors.New("生成结果不存在或已过期")
	ErrHistoryDisabled    = errors.New("未启用生成历史")
	ErrGenerationTimeout  = errors.New("生成超时")
	ErrRosterOverLimit    = errors.New("名单人数超过服务配置上限")
	ErrRunNotFound        = errors.New("生成记录不存在")
)

// GenerateInput 一次生成的输入（名单已解析）
type GenerateInput struct {
	BatchID        string
	DepartmentName string
	CompanyName    string
	StartDate      string
	EndDate        string
	Roster         []attendance.RosterEntry
	Seed           *uint64
	Formats        string // 逗号分隔；为空使用配置默认值
}

// GenerateResult 一次生成的结果
type GenerateResult struct {
	JobID     string
	Seed      uint64
	Report    *attendance.Report
	Artifacts []*render.Artifact
	Failures  []*render.RenderError
	Archive   *render.Artifact
	ExpiresAt time.Time
}

// GenerationService 考勤日历生成业务接口
type GenerationService interface {
	// ParseRoster 解析上传的名单文件
	ParseRoster(r io.Reader, filename string) ([]attendance.RosterEntry, error)
	// Generate 合成 + 渲染 + 打包保存
	Generate(ctx context.Context, in *GenerateInput) (*GenerateResult, error)
	// Preview 只合成，不渲染不保存
	Preview(ctx context.Context, in *GenerateInput) (*dto.PreviewResponse, error)
	// Download 按任务 ID 取回打包产物
	Download(ctx context.Context, jobID string) (*render.Artifact, error)
	// ListRuns 生成历史分页
	ListRuns(ctx context.Context, req *dto.RunListRequest) ([]dto.RunResponse, int64, error)
	// GetRun 单条生成记录
	GetRun(ctx context.Context, runID string) (*dto.RunResponse, error)
}

type generationService struct {
	cfg      config.GenerationConfig
	ttl      time.Duration
	policy   attendance.Policy
	formats  []render.Format
	loc      *time.Location
	store    ArtifactStore
	runs     repository.GenerationRunRepository
	metrics  *metrics.Metrics
	logger   *zap.Logger
	newRand  func(seed uint64) attendance.Rand
	newJobID func() string
	renderer func(render.Format) render.Renderer
}

// NewGenerationService 创建 GenerationService 实例
//
// store 为 nil 时不保存产物（CLI 直接写文件）；runs 为 nil 表示未启用历史。
func NewGenerationService(
	cfg *config.Config,
	store ArtifactStore,
	runs repository.GenerationRunRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) (GenerationService, error) {
	policy, err := PolicyFromConfig(cfg.Generation)
	if err != nil {
		return nil, err
	}
	formats, err := render.ParseFormats(cfg.Generation.Formats)
	if err != nil {
		return nil, fmt.Errorf("generation.formats 无效: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Generation.Timezone)
	if err != nil {
		return nil, fmt.Errorf("generation.timezone 无效: %w", err)
	}

	s := &generationService{
		cfg:     cfg.Generation,
		ttl:     cfg.Output.ArtifactTTL,
		policy:  policy,
		formats: formats,
		loc:     loc,
		store:   store,
		runs:    runs,
		metrics: m,
		logger:  logger,
		newRand: func(seed uint64) attendance.Rand {
			return attendance.NewSeededRand(seed)
		},
		newJobID: uuid.NewString,
	}
	s.renderer = s.defaultRenderer
	return s, nil
}

// PolicyFromConfig 由配置构造合成策略
func PolicyFromConfig(g config.GenerationConfig) (attendance.Policy, error) {
	p := attendance.Policy{
		ClockInHour:    g.ClockInHour,
		ClockInMinMin:  g.ClockInMinMin,
		ClockInMinMax:  g.ClockInMinMax,
		ClockOutHour:   g.ClockOutHour,
		ClockOutMinMin: g.ClockOutMinMin,
		ClockOutMinMax: g.ClockOutMinMax,
		AbsentMin:      g.AbsentMin,
		AbsentMax:      g.AbsentMax,
	}

	wd, err := attendance.ParseWeekday(g.WeeklyOff)
	if err != nil {
		return p, err
	}
	p.WeeklyOff = wd

	if p.Overtime, err = attendance.ParseOvertimeMode(g.OvertimeMode); err != nil {
		return p, err
	}

	for i, h := range g.Holidays {
		d, err := attendance.ParseDate(fmt.Sprintf("generation.holidays[%d]", i), h)
		if err != nil {
			return p, fmt.Errorf("%w: %v", attendance.ErrInvalidPolicy, err)
		}
		p.Holidays = append(p.Holidays, d)
	}

	return p, p.Validate()
}

// ────────────────────── ParseRoster ──────────────────────

func (s *generationService) ParseRoster(r io.Reader, filename string) ([]attendance.RosterEntry, error) {
	entries, err := roster.Parse(r, filename)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("名单解析完成", zap.String("file", filename), zap.Int("rows", len(entries)))
	return entries, nil
}

// ────────────────────── Generate ──────────────────────

func (s *generationService) Generate(ctx context.Context, in *GenerateInput) (*GenerateResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	formats := s.formats
	if strings.TrimSpace(in.Formats) != "" {
		var err error
		if formats, err = render.ParseFormats(in.Formats); err != nil {
			return nil, &attendance.ValidationError{Field: "formats", Reason: err.Error()}
		}
	}

	seed := s.seed(in)
	report, err := s.synthesize(ctx, in, seed)
	if err != nil {
		return nil, s.timeoutOr(ctx, err)
	}

	renderers := make([]render.Renderer, 0, len(formats))
	for _, f := range formats {
		renderers = append(renderers, s.renderer(f))
	}
	res := render.RenderAll(ctx, report, renderers...)
	if ctx.Err() != nil {
		return nil, s.timeoutOr(ctx, ctx.Err())
	}

	failed := make([]string, 0, len(res.Errors))
	for _, re := range res.Errors {
		failed = append(failed, string(re.Format))
		s.logger.Warn("渲染失败",
			zap.String("batch_id", report.Config.BatchID),
			zap.String("format", string(re.Format)),
			zap.Error(re.Err),
		)
	}

	jobID := s.newJobID()
	run := s.newRun(jobID, report, seed)
	run.FailedFormats = strings.Join(failed, ",")

	if len(res.Artifacts) == 0 {
		run.Status = model.RunStatusFailed
		run.ErrorMessage = joinRenderErrors(res.Errors)
		s.finish(ctx, run, start, report, failed)
		return nil, fmt.Errorf("%w: %s", ErrAllRenderersFailed, run.ErrorMessage)
	}

	archive, err := render.Archive(render.BaseName(report.Config)+".zip", res.Artifacts, report.Config.PeriodStart)
	if err != nil {
		s.fail(ctx, run, start, report, failed, err)
		return nil, fmt.Errorf("打包生成结果失败: %w", err)
	}

	result := &GenerateResult{
		JobID:     jobID,
		Seed:      seed,
		Report:    report,
		Artifacts: res.Artifacts,
		Failures:  res.Errors,
		Archive:   archive,
	}
	if s.store != nil {
		if err := s.store.Save(ctx, jobID, archive, s.ttl); err != nil {
			s.metrics.StoreError("save")
			s.logger.Error("保存生成结果失败", zap.String("job_id", jobID), zap.Error(err))
			s.fail(ctx, run, start, report, failed, err)
			return nil, fmt.Errorf("保存生成结果失败: %w", err)
		}
		result.ExpiresAt = time.Now().Add(s.ttl)
	}

	run.Formats = joinFormats(res.Artifacts)
	run.Status = model.RunStatusSuccess
	if len(failed) > 0 {
		run.Status = model.RunStatusPartial
		run.ErrorMessage = joinRenderErrors(res.Errors)
	}
	s.finish(ctx, run, start, report, failed)

	s.logger.Info("考勤日历生成完成",
		zap.String("job_id", jobID),
		zap.String("batch_id", report.Config.BatchID),
		zap.Int("roster_size", len(report.Roster)),
		zap.Int("months", len(report.Months)),
		zap.Strings("failed_formats", failed),
		zap.Uint64("seed", seed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// ────────────────────── Preview ──────────────────────

func (s *generationService) Preview(ctx context.Context, in *GenerateInput) (*dto.PreviewResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	seed := s.seed(in)
	report, err := s.synthesize(ctx, in, seed)
	if err != nil {
		return nil, s.timeoutOr(ctx, err)
	}

	resp := &dto.PreviewResponse{
		Seed:   strconv.FormatUint(seed, 10),
		Blocks: make([]dto.MonthBlockResponse, 0, report.BlockCount()),
	}
	for _, g := range report.Months {
		for _, b := range g.Blocks {
			resp.Blocks = append(resp.Blocks, toMonthBlockResponse(b))
		}
	}
	return resp, nil
}

// ────────────────────── Download ──────────────────────

func (s *generationService) Download(ctx context.Context, jobID string) (*render.Artifact, error) {
	if s.store == nil {
		return nil, ErrJobNotFound
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, ErrJobNotFound
	}
	art, err := s.store.Load(ctx, jobID)
	if errors.Is(err, ErrArtifactNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		s.metrics.StoreError("load")
		s.logger.Error("读取生成结果失败", zap.String("job_id", jobID), zap.Error(err))
		return nil, err
	}
	return art, nil
}

// ────────────────────── ListRuns ──────────────────────

func (s *generationService) ListRuns(ctx context.Context, req *dto.RunListRequest) ([]dto.RunResponse, int64, error) {
	if s.runs == nil {
		return nil, 0, ErrHistoryDisabled
	}
	runs, total, err := s.runs.List(ctx, req.BatchID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询生成历史失败", zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.RunResponse, 0, len(runs))
	for _, r := range runs {
		list = append(list, toRunResponse(r))
	}
	return list, total, nil
}

// ────────────────────── GetRun ──────────────────────

func (s *generationService) GetRun(ctx context.Context, runID string) (*dto.RunResponse, error) {
	if s.runs == nil {
		return nil, ErrHistoryDisabled
	}
	if _, err := uuid.Parse(runID); err != nil {
		return nil, ErrRunNotFound
	}
	run, err := s.runs.GetByID(ctx, runID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		s.logger.Error("查询生成记录失败", zap.String("run_id", runID), zap.Error(err))
		return nil, err
	}
	resp := toRunResponse(*run)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// 内部流程
// ════════════════════════════════════════════════════════════

func (s *generationService) seed(in *GenerateInput) uint64 {
	if in.Seed != nil {
		return *in.Seed
	}
	return attendance.RandomSeed()
}

// synthesize 解析日期、校验限制后合成全部月份；每次调用使用独立的合成器与随机源
func (s *generationService) synthesize(ctx context.Context, in *GenerateInput, seed uint64) (*attendance.Report, error) {
	start, err := attendance.ParseDate("start_date", in.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := attendance.ParseDate("end_date", in.EndDate)
	if err != nil {
		return nil, err
	}

	cfg := attendance.ReportConfig{
		BatchID:        strings.TrimSpace(in.BatchID),
		DepartmentName: strings.TrimSpace(in.DepartmentName),
		CompanyName:    strings.TrimSpace(in.CompanyName),
		PeriodStart:    start,
		PeriodEnd:      end,
	}
	if err := attendance.ValidateRequest(in.Roster, cfg); err != nil {
		return nil, err
	}
	if len(in.Roster) > s.cfg.MaxRosterSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrRosterOverLimit, len(in.Roster), s.cfg.MaxRosterSize)
	}
	months, err := attendance.Months(start, end)
	if err != nil {
		return nil, err
	}
	if len(months) > s.cfg.MaxMonths {
		return nil, &attendance.ValidationError{
			Field:  "end_date",
			Reason: fmt.Sprintf("区间跨 %d 个月，超过上限 %d", len(months), s.cfg.MaxMonths),
		}
	}

	synth, err := attendance.NewSynthesizer(s.policy, s.newRand(seed))
	if err != nil {
		return nil, err
	}
	return synth.Generate(ctx, in.Roster, cfg)
}

func (s *generationService) defaultRenderer(f render.Format) render.Renderer {
	if f == render.FormatICS {
		return render.NewICSRenderer().WithLocation(s.loc)
	}
	r, _ := render.New(f) // formats 已校验
	return r
}

func (s *generationService) timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.metrics.ObserveRun("timeout", s.cfg.Timeout, 0, 0, nil)
		return fmt.Errorf("%w（上限 %s）", ErrGenerationTimeout, s.cfg.Timeout)
	}
	return err
}

func (s *generationService) newRun(jobID string, report *attendance.Report, seed uint64) *model.GenerationRun {
	c := report.Config
	return &model.GenerationRun{
		RunID:          jobID,
		BatchID:        c.BatchID,
		DepartmentName: c.DepartmentName,
		CompanyName:    c.CompanyName,
		PeriodStart:    c.PeriodStart,
		PeriodEnd:      c.PeriodEnd,
		RosterSize:     len(report.Roster),
		MonthCount:     len(report.Months),
		Seed:           strconv.FormatUint(seed, 10),
	}
}

// finish 记录指标与历史；历史写入失败只记日志
func (s *generationService) finish(ctx context.Context, run *model.GenerationRun, start time.Time, report *attendance.Report, failed []string) {
	elapsed := time.Since(start)
	run.DurationMs = elapsed.Milliseconds()
	s.metrics.ObserveRun(run.Status, elapsed, run.RosterSize, report.BlockCount(), failed)

	if s.runs == nil {
		return
	}
	// 请求 ctx 可能已接近超时，历史写入单独给时限
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.runs.Create(hctx, run); err != nil {
		s.logger.Warn("写入生成历史失败", zap.String("run_id", run.RunID), zap.Error(err))
	}
}

// fail 渲染之后的步骤出错时同样留下失败记录
func (s *generationService) fail(ctx context.Context, run *model.GenerationRun, start time.Time, report *attendance.Report, failed []string, err error) {
	run.Status = model.RunStatusFailed
	run.ErrorMessage = err.Error()
	s.finish(ctx, run, start, report, failed)
}

func joinFormats(arts []*render.Artifact) string {
	names := make([]string, 0, len(arts))
	for _, a := range arts {
		names = append(names, string(a.Format))
	}
	return strings.Join(names, ",")
}

func joinRenderErrors(errs []*render.RenderError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// ── DTO 转换 ──

// ToGenerateResponse 生成结果转为接口响应
func ToGenerateResponse(res *GenerateResult, downloadURL string) *dto.GenerateResponse {
	resp := &dto.GenerateResponse{
		JobID:       res.JobID,
		Seed:        strconv.FormatUint(res.Seed, 10),
		Archive:     res.Archive.Filename,
		DownloadURL: downloadURL,
		RosterSize:  len(res.Report.Roster),
		Months:      make([]string, 0, len(res.Report.Months)),
		Artifacts:   make([]dto.ArtifactResponse, 0, len(res.Artifacts)),
	}
	if !res.ExpiresAt.IsZero() {
		resp.ExpiresAt = res.ExpiresAt.UTC().Format(time.RFC3339)
	}
	for _, g := range res.Report.Months {
		resp.Months = append(resp.Months, g.Label())
	}
	for _, a := range res.Artifacts {
		resp.Artifacts = append(resp.Artifacts, dto.ArtifactResponse{
			Format:   string(a.Format),
			Filename: a.Filename,
			Size:     len(a.Data),
		})
	}
	for _, f := range res.Failures {
		resp.Failed = append(resp.Failed, dto.RenderFailureResponse{
			Format: string(f.Format),
			Error:  f.Err.Error(),
		})
	}
	return resp
}

func toMonthBlockResponse(b attendance.MonthBlock) dto.MonthBlockResponse {
	s := b.Summary
	resp := dto.MonthBlockResponse{
		Label:   b.Label,
		EmpCode: b.Entry.Code,
		EmpName: b.Entry.Name,
		Summary: dto.SummaryResponse{
			Present:       s.Present,
			Absent:        s.Absent,
			WeeklyOff:     s.WeeklyOff,
			Holiday:       s.Holiday,
			Leave:         s.Leave,
			OutOfRange:    s.OutOfRange,
			TotalWorked:   s.TotalWorked(),
			TotalOvertime: s.TotalOvertime(),
		},
		Days: make([]dto.DayResponse, 0, len(b.Days)),
	}
	if !b.WindowStart.IsZero() {
		resp.WindowStart = b.WindowStart.Format("2006-01-02")
		resp.WindowEnd = b.WindowEnd.Format("2006-01-02")
	}
	for _, d := range b.Days {
		resp.Days = append(resp.Days, dto.DayResponse{
			Day:       d.Day,
			Date:      d.Date.Format("2006-01-02"),
			Weekday:   attendance.ShortWeekday(d.Weekday),
			WeeklyOff: d.WeeklyOff,
			In:        d.ClockIn(),
			Out:       d.ClockOut(),
			Work:      d.Worked(),
			Break:     d.Break(),
			OT:        d.Overtime(),
			Status:    d.Status.Code(),
		})
	}
	return resp
}

func toRunResponse(r model.GenerationRun) dto.RunResponse {
	return dto.RunResponse{
		RunID:          r.RunID,
		BatchID:        r.BatchID,
		DepartmentName: r.DepartmentName,
		CompanyName:    r.CompanyName,
		PeriodStart:    r.PeriodStart.Format("2006-01-02"),
		PeriodEnd:      r.PeriodEnd.Format("2006-01-02"),
		RosterSize:     r.RosterSize,
		MonthCount:     r.MonthCount,
		Seed:           r.Seed,
		Formats:        r.Formats,
		FailedFormats:  r.FailedFormats,
		Status:         r.Status,
		ErrorMessage:   r.ErrorMessage,
		DurationMs:     r.DurationMs,
		CreatedAt:      r.CreatedAt.UTC().Format(time.RFC3339),
	}
}
