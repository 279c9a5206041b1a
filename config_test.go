package mcqgen

import (
	"context"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"MCQGEN_STORE", "MCQGEN_DB_PATH", "PORT", "MCQGEN_OFFLINE", "MCQGEN_GENERATION_TIMEOUT", "OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	if cfg.StoreBackend != BackendSQLite || cfg.DBPath != "./mcqgen.db" || cfg.Port != "8180" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Offline || cfg.APIKey != "" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.GenerationTimeout != DefaultGenerationTimeout {
		t.Errorf("timeout = %v", cfg.GenerationTimeout)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("MCQGEN_STORE", BackendMemory)
	t.Setenv("MCQGEN_OFFLINE", "true")
	t.Setenv("MCQGEN_GENERATION_TIMEOUT", "45s")
	t.Setenv("MCQGEN_VERBOSE", "not-a-bool")
	t.Setenv("PORT", "9000")

	cfg := LoadConfig()
	if cfg.StoreBackend != BackendMemory || !cfg.Offline || cfg.Port != "9000" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.GenerationTimeout != 45*time.Second {
		t.Errorf("timeout = %v", cfg.GenerationTimeout)
	}
	if cfg.Verbose {
		t.Error("unparsable bool should fall back to false")
	}
	if _, ok := NewQuestionService(cfg).(SampleService); !ok {
		t.Error("offline config did not select SampleService")
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	store, closer, err := OpenStore(ctx, &Config{StoreBackend: BackendMemory})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("memory backend gave %T", store)
	}
	closer.Close()

	store, closer, err = OpenStore(ctx, &Config{StoreBackend: BackendSQLite, DBPath: t.TempDir() + "/state.db"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("sqlite backend gave %T", store)
	}
	closer.Close()

	if _, _, err := OpenStore(ctx, &Config{StoreBackend: "etcd"}); err == nil {
		t.Error("unknown backend accepted")
	}
}
