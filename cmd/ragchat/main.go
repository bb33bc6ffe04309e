// Command ragchat chats with local documents through a retrieval-augmented
// language model.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/ragchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
	"github.com/custodia-labs/ragchat/internal/core/services"
	"github.com/custodia-labs/ragchat/internal/logger"
	"github.com/custodia-labs/ragchat/internal/normalisers"
	"github.com/custodia-labs/ragchat/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version, buildServices); err != nil {
		os.Exit(1)
	}
}

// buildServices wires the adapters and core services for one command run.
func buildServices(dataDir string) (*cli.Services, error) {
	if err := file.LoadEnv(file.EnvFile, filepath.Join(dataDir, file.EnvFile)); err != nil {
		logger.Warn("loading %s: %v", file.EnvFile, err)
	}

	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator(), dataDir)

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	// A misconfigured provider must not block the settings commands that fix it.
	aiServices, err := ai.Init(settings, false)
	if err != nil {
		logger.Warn("%v", err)
		aiServices = ai.IndexOnly(settings)
	}

	stores, closeStores, err := openStores(dataDir, settings.History.Backend)
	if err != nil {
		aiServices.Close()
		return nil, err
	}

	pipeline, err := postprocessors.BuildPipeline(postprocessors.NewDefaultRegistry(), domain.PipelineConfigFor(settings.Chunking))
	if err != nil {
		aiServices.Close()
		_ = closeStores()
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	var prompts driven.PromptStore
	if ps, err := file.NewPromptStore(filepath.Join(dataDir, "prompts")); err != nil {
		logger.Warn("prompt store unavailable, using built-in prompts: %v", err)
	} else {
		prompts = ps
	}

	index := aiServices.VectorIndex

	chat := services.NewChatOrchestrator(
		index,
		aiServices.LLMService,
		stores.history,
		stores.sessions,
		services.NewPromptAssembler(prompts),
		services.ChatConfigFrom(settings),
	)
	ingest := services.NewIngestService(
		normalisers.NewDefaultRegistry(),
		pipeline,
		index,
		stores.documents,
	)

	return &cli.Services{
		Chat:     chat,
		Ingest:   ingest,
		Sessions: services.NewSessionService(stores.sessions, stores.history),
		Settings: settingsService,
		Close: func() error {
			aiServices.Close()
			return closeStores()
		},
	}, nil
}

type storeSet struct {
	sessions  driven.SessionStore
	history   driven.HistoryStore
	documents driven.DocumentRegistry
}

// openStores opens the history backend. The memory backend keeps
// conversations for the life of the process only.
func openStores(dataDir string, backend domain.HistoryBackend) (*storeSet, func() error, error) {
	if backend == domain.HistoryBackendMemory {
		logger.Debug("using in-memory history")
		return &storeSet{
			sessions:  memory.NewSessionStore(),
			history:   memory.NewHistoryStore(),
			documents: memory.NewDocumentRegistry(),
		}, func() error { return nil }, nil
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history in %s: %w", dataDir, err)
	}
	logger.Debug("history database: %s", store.Path())
	return &storeSet{
		sessions:  store.SessionStore(),
		history:   store.HistoryStore(),
		documents: store.DocumentRegistry(),
	}, store.Close, nil
}
