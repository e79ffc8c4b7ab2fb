package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/chunk"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/compose"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/config"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/extract"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/fetch"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/llm"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/logger"
	dm "github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/report"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/retry"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/search"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/search/factory"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/storage"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/summarize"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/tavily"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/urlnorm"
)

// Recorder 运行记录，可选。记录失败只打日志，不影响运行
type Recorder interface {
	StartRun(ctx context.Context, runID, topic string, startedAt time.Time) error
	FinishRun(ctx context.Context, runID string, sum storage.RunSummary, finishedAt time.Time) error
}

// Deps 引擎依赖，全部显式传入
type Deps struct {
	Searcher  search.Searcher
	Extractor extract.Extractor
	// Fallback 抽取 API 失败后的本地抽取器，可为空
	Fallback  extract.Extractor
	ChatModel model.BaseChatModel
	Recorder  Recorder
	// Now 时钟，测试时可替换
	Now func() time.Time
}

// Engine 核心处理引擎，一次运行使用一份配置
type Engine struct {
	cfg        *config.Config
	searcher   search.Searcher
	fetcher    *fetch.Fetcher
	summarizer *summarize.Summarizer
	composer   *compose.Composer
	recorder   Recorder
	policy     retry.Policy
	now        func() time.Time
}

// New 用显式依赖创建引擎
func New(cfg *config.Config, deps Deps) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if deps.Searcher == nil || deps.Extractor == nil || deps.ChatModel == nil {
		return nil, errors.New("searcher, extractor and chat model are required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	policy := retry.Policy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
	}
	client := llm.NewClient(deps.ChatModel, llm.NewLimiter(cfg.Concurrency))

	return &Engine{
		cfg:      cfg,
		searcher: deps.Searcher,
		fetcher: fetch.New(deps.Extractor, deps.Fallback, fetch.Options{
			Format:         extract.Format(cfg.Extract.Format),
			FallbackFormat: extract.Format(cfg.Extract.FallbackFormat),
			MinContent:     cfg.Extract.MinContent,
			Policy:         policy,
		}),
		summarizer: summarize.New(client, chunk.New(cfg.Chunk.MaxTokens), policy),
		composer:   compose.New(client, policy, cfg.Chunk.ComposeMaxTokens),
		recorder:   deps.Recorder,
		policy:     policy,
		now:        now,
	}, nil
}

// NewFromConfig 按配置初始化真实的搜索、抽取与 LLM 客户端
func NewFromConfig(ctx context.Context, cfg *config.Config, recorder Recorder) (*Engine, error) {
	// 初始化 LLM
	chatModel, err := llm.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	// 初始化搜索客户端
	searcher, err := factory.NewSearcher(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
	}

	extractor := tavily.NewClient(cfg.Search.Tavily.APIKey,
		tavily.WithBaseURL(cfg.Search.Tavily.BaseURL),
		tavily.WithExtractDepth(cfg.Extract.Depth),
	)
	var fallback extract.Extractor
	if cfg.Extract.Readability {
		fallback = extract.NewReadabilityExtractor(cfg.Extract.Timeout)
	}

	return New(cfg, Deps{
		Searcher:  searcher,
		Extractor: extractor,
		Fallback:  fallback,
		ChatModel: chatModel,
		Recorder:  recorder,
	})
}

// RunOptions 运行选项
type RunOptions struct {
	Topic            string
	ProgressCallback func(p Progress)
}

// run 一次运行的私有状态
type run struct {
	id       string
	topic    string
	started  time.Time
	progress func(Progress)
	result   *dm.RunResult
	log      *logrus.Entry
}

func (r *run) report(p Progress) {
	if r.progress != nil {
		r.progress(p)
	}
}

// Run 执行一次报告生成: 搜索 -> 逐个抓取并摘要 -> 组装 -> 保存。
// 单个来源的失败被记录后跳过；没有可用来源或组装失败时返回 Fatal 错误，且不写文件。
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*dm.RunResult, error) {
	topic := strings.TrimSpace(opts.Topic)
	id := uuid.NewString()
	r := &run{
		id:       id,
		topic:    topic,
		log:      logger.WithRun(id),
		started:  e.now(),
		progress: opts.ProgressCallback,
	}
	r.result = &dm.RunResult{RunID: r.id, Topic: topic}
	r.report(Progress{State: StateIdle, Message: "starting"})

	if topic == "" {
		err := apierr.Validation("run", errors.New("empty research topic"))
		r.report(Progress{State: StateFailed, Message: err.Error()})
		return r.result, err
	}

	r.log.Infof("开始生成研究报告 [%s]", topic)
	e.recordStart(ctx, r)

	res, err := e.run(ctx, r)
	if err != nil {
		r.log.Errorf("研究报告生成失败 [%s]: %v", topic, err)
		r.report(Progress{State: StateFailed, Percent: 100, Message: err.Error()})
		e.recordFinish(r, storage.RunSummary{
			Status:       storage.StatusFailed,
			SkippedCount: len(r.result.Skipped),
			Error:        err.Error(),
		})
		return r.result, err
	}

	e.recordFinish(r, storage.RunSummary{
		Status:       storage.StatusDone,
		ReportPath:   res.Path,
		ReportTitle:  res.Report.Title,
		SourceCount:  len(res.Report.Sources),
		SkippedCount: len(res.Skipped),
	})
	r.report(Progress{State: StateDone, Percent: 100, Message: res.Path})
	r.log.Infof("研究报告已保存: %s (%d 个来源，跳过 %d 个)", res.Path, len(res.Report.Sources), len(res.Skipped))
	return res, nil
}

func (e *Engine) run(ctx context.Context, r *run) (*dm.RunResult, error) {
	// 1. 搜索
	r.report(Progress{State: StateSearching, Percent: 5, Message: "searching: " + r.topic})
	candidates, err := e.search(ctx, r.topic)
	if err != nil {
		return nil, err
	}
	r.log.Infof("搜索到 %d 个候选来源 [%s]", len(candidates), r.topic)

	// 2. 逐个抓取、摘要
	usable := e.processSources(ctx, r, candidates)
	if ctx.Err() != nil {
		return nil, apierr.Fatal("run", ctx.Err())
	}
	if len(usable) == 0 {
		return nil, apierr.Fatal("run", fmt.Errorf("no usable sources: %d candidates, %d skipped", len(candidates), len(r.result.Skipped)))
	}

	// 3. 组装报告
	r.report(Progress{State: StateComposing, Percent: 85, Total: len(usable), Message: "composing report"})
	rep, warnings, err := e.composer.Compose(ctx, r.topic, usable, e.now())
	r.result.Warnings = append(r.result.Warnings, warnings...)
	if err != nil {
		return nil, err
	}

	// 4. 保存
	path, err := report.Save(e.cfg.Output.Dir, rep)
	if err != nil {
		return nil, apierr.Fatal("save report", err)
	}

	r.result.Report = rep
	r.result.Path = path
	return r.result, nil
}

// search 调用搜索 API 并按规范化 URL 去重
func (e *Engine) search(ctx context.Context, topic string) ([]dm.Source, error) {
	req := &search.Request{
		Query:             topic,
		Depth:             search.Depth(e.cfg.Search.Depth),
		MaxResults:        e.cfg.Search.MaxResults,
		IncludeRawContent: e.cfg.Search.IncludeRawContent,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	policy := e.policy
	policy.OnRetry = func(err error, wait time.Duration) {
		logger.Log.Warnf("搜索失败，%v 后重试: %v", wait, err)
	}
	resp, err := retry.DoValue(ctx, policy, func(ctx context.Context) (*search.Response, error) {
		return e.searcher.Search(ctx, req)
	})
	if err != nil {
		return nil, apierr.Fatal("search", err)
	}

	seen := make(map[string]struct{}, len(resp.Results))
	sources := make([]dm.Source, 0, len(resp.Results))
	for _, item := range resp.Results {
		key := item.URL
		if n, err := urlnorm.Normalize(item.URL); err == nil {
			key = n
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		sources = append(sources, dm.Source{
			Title:      strings.TrimSpace(item.Title),
			URL:        item.URL,
			Snippet:    strings.TrimSpace(item.Content),
			RawContent: item.RawContent,
		})
	}
	return sources, nil
}

// processSources 顺序处理每个来源，返回摘要成功的来源
func (e *Engine) processSources(ctx context.Context, r *run, candidates []dm.Source) []dm.Source {
	var usable []dm.Source
	total := len(candidates)
	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		src := candidates[i]

		r.report(Progress{State: StateFetching, Index: i + 1, Total: total, Source: src.URL, Percent: percent(i, total)})
		text, normalized, err := e.fetcher.Fetch(ctx, &src)
		if err != nil {
			e.skip(r, &src, "fetch", err)
			r.report(Progress{State: StateFetching, Index: i + 1, Total: total, Source: src.URL, Percent: percent(i+1, total), Message: "skipped: " + err.Error()})
			continue
		}
		src.URL = normalized
		src.ExtractedText = text

		r.report(Progress{State: StateSummarizing, Index: i + 1, Total: total, Source: src.URL, Percent: percent(i, total)})
		res, err := e.summarizer.Summarize(ctx, r.topic, &src, text)
		if err != nil {
			e.skip(r, &src, "summarize", err)
			r.report(Progress{State: StateSummarizing, Index: i + 1, Total: total, Source: src.URL, Percent: percent(i+1, total), Message: "skipped: " + err.Error()})
			continue
		}
		if res.Warning != nil {
			r.result.Warnings = append(r.result.Warnings, res.Warning.Error())
		}
		src.Summary = res.Summary
		src.ChunkCount = res.Chunks
		usable = append(usable, src)

		r.log.Infof("来源处理完成 [%d/%d] %s", i+1, total, src.URL)
		r.report(Progress{State: StateSummarizing, Index: i + 1, Total: total, Source: src.URL, Percent: percent(i+1, total), Message: "done"})
	}
	return usable
}

// skip 记录被跳过的来源。每种错误类别都在这里显式处理
func (e *Engine) skip(r *run, src *dm.Source, stage string, err error) {
	kind := apierr.KindOf(err)
	switch kind {
	case apierr.KindValidation:
		r.log.Warnf("来源 URL 非法，跳过 [%s]: %v", src.URL, err)
	case apierr.KindTransient:
		r.log.Warnf("来源重试次数用尽，跳过 [%s] (%s): %v", src.URL, stage, err)
	case apierr.KindPermanent, apierr.KindUnknown:
		r.log.Warnf("来源处理失败，跳过 [%s] (%s): %v", src.URL, stage, err)
	case apierr.KindTokenBudgetExceeded, apierr.KindFatal:
		r.log.Errorf("来源处理出现意外错误，跳过 [%s] (%s): %v", src.URL, stage, err)
	}
	r.result.Skipped = append(r.result.Skipped, dm.SkippedSource{
		URL:    src.URL,
		Title:  src.Title,
		Stage:  stage,
		Kind:   kind.String(),
		Reason: err.Error(),
	})
}

// percent 来源处理阶段占 10% -> 80%
func percent(done, total int) int {
	if total == 0 {
		return 80
	}
	return 10 + int(float64(done)/float64(total)*70)
}

func (e *Engine) recordStart(ctx context.Context, r *run) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.StartRun(ctx, r.id, r.topic, r.started); err != nil {
		r.log.Errorf("无法创建运行记录: %v", err)
	}
}

func (e *Engine) recordFinish(r *run, sum storage.RunSummary) {
	if e.recorder == nil {
		return
	}
	// 运行被取消时仍然要写入结束状态
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.recorder.FinishRun(ctx, r.id, sum, e.now()); err != nil {
		r.log.Errorf("无法更新运行记录: %v", err)
	}
}
