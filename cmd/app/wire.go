//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/ai-supportdesk/internal/bootstrap"
	"github.com/yanqian/ai-supportdesk/internal/domain/chat"
	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
	"github.com/yanqian/ai-supportdesk/internal/infra/config"
	httpiface "github.com/yanqian/ai-supportdesk/internal/interface/http"
	"github.com/yanqian/ai-supportdesk/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideFAQConfig,
		provideChatConfig,
		provideChatGPTClient,
		provideEmbeddingProvider,
		provideFAQRepository,
		provideCacheStore,
		provideFAQCache,
		provideQueryTracker,
		provideRetriever,
		provideLLM,
		provideTokenCounter,
		provideConversationStore,
		faq.NewService,
		chat.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
