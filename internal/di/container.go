package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/adapters/notify"
	"github.com/gnuru1/InboxWrangler/internal/config"
	"github.com/gnuru1/InboxWrangler/internal/core"
	"github.com/gnuru1/InboxWrangler/internal/factory"
	"github.com/gnuru1/InboxWrangler/internal/logging"
	"github.com/gnuru1/InboxWrangler/internal/organizer"
	"github.com/gnuru1/InboxWrangler/internal/similarity"
	"github.com/gnuru1/InboxWrangler/internal/utils"
	"github.com/gnuru1/InboxWrangler/internal/whitelist"
)

// ConfigOverride adjusts the loaded configuration before anything is built
// from it. Subcommand flags are applied this way so they take precedence
// over the config file and environment.
type ConfigOverride func(*config.Config)

// BuildContainer creates and configures a dependency injection container
func BuildContainer(overrides ...ConfigOverride) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.New()
		if err != nil {
			return nil, err
		}
		for _, override := range overrides {
			override(cfg)
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailStoreFactory); err != nil {
		return nil, err
	}

	// Register cache repository
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}

	// Register state store
	if err := container.Provide(func(f *factory.StoreFactory) (core.StateStore, error) {
		return f.CreateStateStore()
	}); err != nil {
		return nil, err
	}

	// Register mail store
	if err := container.Provide(func(f *factory.MailStoreFactory) (core.MailStore, error) {
		return f.CreateMailStore()
	}); err != nil {
		return nil, err
	}

	// Register primary classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register organizer service. The fallback classifier, similarity strategy
	// and pinned-sender checker are built here because they all derive from
	// the same configuration sections.
	if err := container.Provide(func(
		classifier core.Classifier,
		f *factory.ClassifierFactory,
		cacheRepo core.CacheRepository,
		store core.StateStore,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.OrganizerService, error) {
		fallback := f.CreateFallback()

		clsCfg, err := cfg.GetClassifier()
		if err != nil {
			return nil, err
		}
		cacheCfg, err := cfg.GetCache()
		if err != nil {
			return nil, err
		}
		scoring, err := cfg.Scoring()
		if err != nil {
			return nil, err
		}
		sim, err := similarity.New(scoring.Normalizer.Strategy)
		if err != nil {
			return nil, err
		}
		user := cfg.GetUser()
		pinned := whitelist.NewChecker(user.PinnedSenders, logger)

		return core.NewOrganizerService(
			classifier,
			fallback,
			cacheRepo,
			store,
			sim,
			pinned,
			scoring,
			user.Addresses,
			cacheCfg.Enabled,
			cacheCfg.TTL,
			clsCfg.Timeout,
			logger,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register organizer runner
	if err := container.Provide(func(
		service *core.OrganizerService,
		mail core.MailStore,
		cfg *config.Config,
		logger *zap.Logger,
	) *organizer.Organizer {
		orgCfg := cfg.GetOrganizer()
		return organizer.New(service, mail, orgCfg.DryRun, orgCfg.MaxMessages, logger)
	}); err != nil {
		return nil, err
	}

	// Register reporter
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*organizer.Reporter, error) {
		orgCfg := cfg.GetOrganizer()
		scoring, err := cfg.Scoring()
		if err != nil {
			return nil, err
		}
		return organizer.NewReporter(
			orgCfg.ReportDir,
			scoring.Decision.HighPriorityThreshold,
			scoring.Decision.MediumPriorityThreshold,
			logger,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register report sender. Nil when notifications are disabled; the
	// watcher treats that as "write reports but do not mail them".
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) organizer.ReportSender {
		n := cfg.GetNotify()
		if !n.Enabled {
			return nil
		}
		return notify.NewSMTPNotifier(n.SMTPAddress, n.Username, n.Password, n.From, n.To, n.ImplicitTLS, logger)
	}); err != nil {
		return nil, err
	}

	// Register watcher
	if err := container.Provide(func(
		org *organizer.Organizer,
		reporter *organizer.Reporter,
		sender organizer.ReportSender,
		cfg *config.Config,
		logger *zap.Logger,
	) (*organizer.Watcher, error) {
		return organizer.NewWatcher(org, reporter, sender, cfg.GetOrganizer().Schedule, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
