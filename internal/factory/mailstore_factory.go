package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/adapters/mailstore"
	"github.com/gnuru1/InboxWrangler/internal/config"
	"github.com/gnuru1/InboxWrangler/internal/core"
	"github.com/gnuru1/InboxWrangler/internal/utils"
)

// MailStoreFactory creates mailbox backends based on configuration
type MailStoreFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewMailStoreFactory creates a new mail store factory
func NewMailStoreFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *MailStoreFactory {
	return &MailStoreFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateMailStore creates a mail store based on the configuration
func (f *MailStoreFactory) CreateMailStore() (core.MailStore, error) {
	mailCfg := f.cfg.GetMail()

	switch mailCfg.Type {
	case "imap":
		if mailCfg.IMAPAddress == "" || mailCfg.IMAPUsername == "" {
			return nil, fmt.Errorf("imap address and username are required")
		}
		return mailstore.NewIMAPStore(
			mailCfg.IMAPAddress,
			mailCfg.IMAPUsername,
			mailCfg.IMAPPassword,
			mailCfg.IMAPInbox,
			mailCfg.IMAPSent,
			mailCfg.IMAPTaskMailbox,
			f.logger,
		), nil
	case "dir":
		return mailstore.NewDirStore(mailCfg.DirPath, f.textProcessor, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail store type: %s", mailCfg.Type)
	}
}
