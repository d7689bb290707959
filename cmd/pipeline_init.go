package main

import (
	"context"
	"os"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/chat"
	"github.com/sells-group/lead-pipeline/internal/crmsync"
	"github.com/sells-group/lead-pipeline/internal/extract"
	"github.com/sells-group/lead-pipeline/internal/journal"
	"github.com/sells-group/lead-pipeline/internal/metrics"
	"github.com/sells-group/lead-pipeline/internal/protection"
	"github.com/sells-group/lead-pipeline/internal/resilience"
	"github.com/sells-group/lead-pipeline/internal/store"
	"github.com/sells-group/lead-pipeline/internal/transform"
	anthropicpkg "github.com/sells-group/lead-pipeline/pkg/anthropic"
	"github.com/sells-group/lead-pipeline/pkg/notion"
	sfpkg "github.com/sells-group/lead-pipeline/pkg/salesforce"
)

// pipelineEnv holds the initialized store, gate and pipeline used by the
// serve and chat commands.
type pipelineEnv struct {
	Store    store.ClientActivityStore
	Gate     *protection.Gate
	Pipeline *chat.Pipeline
	Registry *prometheus.Registry
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// initPipeline wires every collaborator from cfg. Integrations without
// credentials are left out: no Anthropic key means fallback replies and
// heuristic extraction, no Salesforce means qualified leads are not synced.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	catalog, err := initCatalog()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gateCfg := cfg.Protection.Gate()
	if len(catalog.SpamVocabulary) > 0 {
		gateCfg.SpamVocabulary = catalog.SpamVocabulary
	}
	gate := protection.NewGate(gateCfg, st)

	company := chat.Company{
		Name:    cfg.Company.Name,
		Email:   cfg.Company.Email,
		Phone:   cfg.Company.Phone,
		Website: cfg.Company.Website,
	}

	deps := chat.Deps{
		Gate:      gate,
		Extractor: extract.NewHeuristic(catalog),
		Transformer: transform.New(
			transform.WithAssignedTeam(cfg.Salesforce.AssignedTeam),
			transform.WithLeadSource(cfg.Salesforce.LeadSource),
		),
		Metrics: m,
	}

	if cfg.Anthropic.Key != "" {
		ai := anthropicpkg.NewClient(cfg.Anthropic.Key,
			anthropicpkg.WithBaseURL(cfg.Anthropic.BaseURL),
			anthropicpkg.WithMaxRetries(0),
		)
		deps.Replier = chat.NewAnthropicReplier(ai, company, chat.ReplierConfig{
			Model:          cfg.Anthropic.ReplyModel,
			MaxTokens:      cfg.Anthropic.MaxTokens,
			AttemptTimeout: secs(cfg.Chat.AttemptTimeoutSecs),
			MaxHistory:     cfg.Chat.MaxHistory,
			Retry: resilience.RetryConfig{
				MaxAttempts:    cfg.Chat.RetryAttempts,
				InitialBackoff: time.Duration(cfg.Chat.RetryBackoffMs) * time.Millisecond,
			},
			Breaker: resilience.BreakerConfig{
				FailureThreshold: cfg.Chat.CircuitThreshold,
				Cooldown:         secs(cfg.Chat.CircuitResetSecs),
				OnStateChange: func(from, to resilience.CircuitState) {
					zap.L().Warn("anthropic circuit changed state",
						zap.String("from", from.String()),
						zap.String("to", to.String()),
					)
				},
			},
		})
		if cfg.Chat.ModelExtraction {
			deps.Extractor = extract.NewFallback(
				extract.NewModel(ai, extract.ModelConfig{
					Model:   cfg.Anthropic.ExtractModel,
					Timeout: secs(cfg.Chat.ExtractTimeoutSecs),
				}),
				deps.Extractor,
			)
		}
	} else {
		zap.L().Warn("LEADS_ANTHROPIC_KEY not set, replies use the fallback message")
	}

	if cfg.Salesforce.Enabled() {
		sfClient, err := initSalesforce()
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		deps.Orchestrator = crmsync.NewOrchestrator(crmsync.NewSalesforceCRM(sfClient),
			crmsync.WithObjectTimeout(secs(cfg.Chat.CRMTimeoutSecs)),
			crmsync.WithMetrics(m),
		)
	} else {
		zap.L().Warn("salesforce not configured, qualified leads will not be synced")
	}

	if cfg.Notion.Token != "" {
		deps.Journal = journal.NewNotion(notion.NewClient(cfg.Notion.Token,
			notion.WithRateLimit(cfg.Notion.RateLimit),
			notion.WithRetries(cfg.Notion.Retries),
		), cfg.Notion.LeadDB)
		zap.L().Info("notion lead journal enabled")
	}

	p := chat.NewPipeline(deps,
		chat.WithCompany(company),
		chat.WithReplyTimeout(secs(cfg.Chat.ReplyTimeoutSecs)),
		chat.WithJournalTimeout(secs(cfg.Chat.JournalTimeoutSecs)),
	)

	return &pipelineEnv{
		Store:    st,
		Gate:     gate,
		Pipeline: p,
		Registry: reg,
	}, nil
}

// initCatalog loads the keyword catalog file, or the built-in catalog when
// none is configured.
func initCatalog() (*extract.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return extract.DefaultCatalog(), nil
	}
	catalog, err := extract.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load keyword catalog")
	}
	zap.L().Info("keyword catalog loaded",
		zap.String("path", cfg.Catalog.Path),
		zap.Int("services", len(catalog.Services)),
	)
	return catalog, nil
}

// sqlStore is implemented by the stores that need a schema.
type sqlStore interface {
	Migrate(ctx context.Context) error
}

func initStore(ctx context.Context) (store.ClientActivityStore, error) {
	var (
		st  store.ClientActivityStore
		err error
	)
	switch cfg.Store.Driver {
	case "", "memory":
		return store.NewMemory(), nil
	case "redis":
		st, err = store.NewRedis(ctx, cfg.Store.RedisAddr, "", 0)
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "open %s store", cfg.Store.Driver)
	}

	if m, ok := st.(sqlStore); ok {
		if err := m.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}
	return st, nil
}

func initSalesforce() (sfpkg.Client, error) {
	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(cfg.Salesforce.RateLimit)), nil
}
