package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/czhharrison/MerchantChat/internal/assistant"
	"github.com/czhharrison/MerchantChat/internal/collab"
	"github.com/czhharrison/MerchantChat/internal/config"
	"github.com/czhharrison/MerchantChat/internal/generate"
	"github.com/czhharrison/MerchantChat/internal/logging"
	"github.com/czhharrison/MerchantChat/internal/storage"
	"github.com/czhharrison/MerchantChat/internal/tokenize"
)

const turnTimeout = 60 * time.Second

// #region main
func main() {
	resume := flag.String("session", "", "resume an existing session instead of starting a new one")
	verbose := flag.Bool("v", false, "print intent and preference snapshot after each reply")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Pretty: true})

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	handle, closer, err := collab.Open(context.Background(), cfg.Collaborator)
	if err != nil {
		logger.Warn().Err(err).Msg("collaborator unavailable, using template generation")
	}
	defer closer.Close()

	tok := tokenize.NewGse(cfg.Vocabulary())
	if err := tok.Err(); err != nil {
		logger.Warn().Err(err).Msg("gse dictionary unavailable, using lexicon segmentation")
	}

	svc, err := assistant.New(assistant.Deps{
		Config:       cfg,
		DB:           db,
		Tokenizer:    tok,
		Collaborator: handle,
		Selector:     generate.NewRandSelector(time.Now().UnixNano()),
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build assistant")
	}

	sessionID := *resume
	if sessionID == "" {
		if sessionID, err = svc.NewSession(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start session")
		}
	}

	fmt.Println("Merchant assistant ready.")
	fmt.Printf("  DB: %s | Collaborator: %s | Session: %s\n", cfg.Storage.Path, handle.Name(), sessionID)
	fmt.Println("Describe a product or ask for a title, CTR check, competitor analysis or strategy (or 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			continue
		}
		if prompt == "quit" || prompt == "exit" {
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		reply, err := svc.Respond(ctx, sessionID, prompt)
		cancel()
		if err != nil {
			logger.Error().Err(err).Msg("turn failed")
			continue
		}

		fmt.Printf("\n%s\n\n", reply.Text)
		if *verbose {
			fmt.Printf("[intent=%s", reply.Classification.Intent)
			if hint := reply.Preferences.Advisory(); hint != "" {
				fmt.Printf(" %s", hint)
			}
			fmt.Println("]")
		}
	}
}

// #endregion main
