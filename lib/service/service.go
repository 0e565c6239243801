package service

import (
	"github.com/aquaoffice/tresorerie.go/common"
	"github.com/aquaoffice/tresorerie.go/rabbitmq"
	"github.com/uptrace/bun"
	"github.com/ziflex/lecho/v3"
)

type TreasuryService struct {
	Config         *Config
	DB             *bun.DB
	Logger         *lecho.Logger
	EntryPubSub    *Pubsub
	RabbitMQClient rabbitmq.Client

	locks *accountLocks
}

func NewTreasuryService(config *Config, db *bun.DB, logger *lecho.Logger) *TreasuryService {
	return &TreasuryService{
		Config:      config,
		DB:          db,
		Logger:      logger,
		EntryPubSub: NewPubsub(),
		locks:       newAccountLocks(),
	}
}

func (svc *TreasuryService) entryPrefix() string {
	if svc.Config.EntryReferencePrefix == "" {
		return common.EntryReferencePrefix
	}
	return svc.Config.EntryReferencePrefix
}

func (svc *TreasuryService) accountPrefix() string {
	if svc.Config.AccountReferencePrefix == "" {
		return common.AccountReferencePrefix
	}
	return svc.Config.AccountReferencePrefix
}

func (svc *TreasuryService) pageSizes() (def int, max int) {
	def, max = svc.Config.DefaultPageSize, svc.Config.MaxPageSize
	if max <= 0 {
		max = 100
	}
	if def <= 0 || def > max {
		def = 15
		if def > max {
			def = max
		}
	}
	return def, max
}
