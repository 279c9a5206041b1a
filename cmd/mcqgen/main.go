package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"mcqgen"
)

func main() {
	cfg := mcqgen.LoadConfig()

	var (
		text         = flag.String("text", "", "Text content to generate questions from")
		textFile     = flag.String("text-file", "", "Read text content from this file")
		pdfFile      = flag.String("pdf", "", "PDF document to extract content from")
		numQuestions = flag.Int("questions", 0, "Number of questions to request, 1-20 (default: keep stored config)")
		difficulty   = flag.String("difficulty", "", "Difficulty level: easy, medium, hard (default: keep stored config)")
		outputDir    = flag.String("output", ".", "Directory to write "+mcqgen.ExportFilename+" into")
		apiKey       = flag.String("api-key", "", "OpenAI API key to store (or set OPENAI_API_KEY env var)")
		clearKey     = flag.Bool("clear-key", false, "Remove the stored API key")
		reset        = flag.Bool("reset", false, "Clear content, questions and config before doing anything else")
		generate     = flag.Bool("generate", true, "Generate questions from the current content")
		printJSON    = flag.Bool("json", false, "Print the questions as JSON to stdout")
		dbPath       = flag.String("db", cfg.DBPath, "sqlite database holding the persisted state")
		backend      = flag.String("store", cfg.StoreBackend, "State backend: sqlite, redis, memory")
		offline      = flag.Bool("offline", cfg.Offline, "Use the built-in offline question service instead of OpenAI")
		verbose      = flag.Bool("verbose", cfg.Verbose, "Enable verbose debugging output")
	)

	flag.Parse()

	cfg.DBPath = *dbPath
	cfg.StoreBackend = *backend
	cfg.Offline = *offline
	mcqgen.SetVerbose(*verbose)

	ctx := context.Background()

	store, closer, err := mcqgen.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open state store: %v", err)
	}
	defer closer.Close()

	if sq, ok := store.(*mcqgen.SQLiteStore); ok {
		if keys, err := sq.Keys(ctx); err == nil {
			mcqgen.VerboseLog("Persisted keys in %s: %v", cfg.DBPath, keys)
		}
	}

	generator := mcqgen.NewGenerator(mcqgen.NewQuestionService(cfg), mcqgen.WithTimeout(cfg.GenerationTimeout))
	ingestor := mcqgen.NewIngestor(mcqgen.PdftotextExtractor{})
	session := mcqgen.NewSession(ctx, store, generator, ingestor)
	defer session.Close()

	if *reset {
		if err := session.Reset(ctx); err != nil {
			log.Fatalf("Failed to reset: %v", err)
		}
		log.Printf("Reset complete")
	}

	if err := configureKey(ctx, session.Credentials(), *apiKey, cfg.APIKey, *clearKey); err != nil {
		log.Fatalf("Failed to configure API key: %v", err)
	}

	if err := ingest(ctx, session, *text, *textFile, *pdfFile); err != nil {
		log.Fatalf("Failed to load content: %v", err)
	}

	if *numQuestions != 0 || *difficulty != "" {
		next := session.Snapshot().Config
		if *numQuestions != 0 {
			next.NumberOfQuestions = *numQuestions
		}
		if *difficulty != "" {
			next.DifficultyLevel = mcqgen.Difficulty(strings.ToLower(*difficulty))
		}
		if err := session.SetConfig(ctx, next); err != nil {
			log.Fatalf("Failed to set config: %v", err)
		}
	}

	snap := session.Snapshot()
	if *generate && snap.Origin.Present() {
		questions, err := session.Generate(ctx)
		if err != nil {
			log.Fatalf("Failed to generate questions: %v", err)
		}
		log.Printf("Generated %d questions", len(questions))
	} else if *generate && !*reset {
		log.Printf("No content loaded; use -text, -text-file or -pdf")
	}

	questions := session.Questions()
	if *printJSON {
		output, err := json.MarshalIndent(questions, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal questions: %v", err)
		}
		fmt.Println(string(output))
	}

	if len(questions) == 0 {
		return
	}
	path, err := mcqgen.ExportFile(*outputDir, questions)
	if err != nil {
		log.Fatalf("Failed to export questions: %v", err)
	}
	log.Printf("Questions saved to: %s", path)
}

func configureKey(ctx context.Context, creds *mcqgen.Credentials, flagKey, envKey string, remove bool) error {
	if remove {
		if err := creds.ClearKey(ctx); err != nil {
			return err
		}
		log.Printf("API key removed")
		if flagKey == "" {
			return nil
		}
	}
	if flagKey != "" {
		return creds.SetKey(ctx, flagKey)
	}
	if envKey == "" {
		return nil
	}
	status, err := creds.Status(ctx)
	if err != nil || status.HasKey {
		return err
	}
	err = creds.SetKey(ctx, envKey)
	if errors.Is(err, mcqgen.ErrInvalidKey) {
		log.Printf("Ignoring invalid OPENAI_API_KEY")
		return nil
	}
	return err
}

func ingest(ctx context.Context, session *mcqgen.Session, text, textFile, pdfFile string) error {
	switch {
	case text != "":
		_, err := session.IngestText(ctx, text)
		return err

	case textFile != "":
		data, err := os.ReadFile(textFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", textFile, err)
		}
		_, err = session.IngestText(ctx, string(data))
		return err

	case pdfFile != "":
		data, err := os.ReadFile(pdfFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", pdfFile, err)
		}
		origin, err := session.IngestDocument(ctx, data, mime.TypeByExtension(filepath.Ext(pdfFile)))
		if err != nil {
			return err
		}
		log.Printf("Extracted %d characters from %s", len(origin.Content), pdfFile)
	}
	return nil
}
