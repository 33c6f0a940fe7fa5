package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PathsConfig locates the pipeline artifacts on disk.
type PathsConfig struct {
	Audio      string `yaml:"audio"`
	Transcript string `yaml:"transcript"`
	Chunks     string `yaml:"chunks"`
	ChunkStore string `yaml:"chunk_store"`
	Index      string `yaml:"index"`
	Log        string `yaml:"log"`
}

// FasterWhisperConfig configures the local faster-whisper transcription helper.
type FasterWhisperConfig struct {
	Model       string `yaml:"model"`
	Device      string `yaml:"device"`
	ComputeType string `yaml:"compute_type"`
	Python      string `yaml:"python"`
}

// OpenAITranscriberConfig configures the OpenAI speech-to-text backend.
type OpenAITranscriberConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// TranscriberConfig selects and configures the speech recognition backend.
type TranscriberConfig struct {
	Type          string                   `yaml:"type"`
	FasterWhisper *FasterWhisperConfig     `yaml:"faster_whisper,omitempty"`
	OpenAI        *OpenAITranscriberConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how the transcript is split into chunks.
// OverlapSentences and MinWords are pointers so an explicit 0 survives defaulting.
type ChunkerConfig struct {
	WordLimit        int  `yaml:"word_limit"`
	OverlapSentences *int `yaml:"overlap_sentences"`
	// MinWords drops short chunks; 0 disables the filter.
	MinWords *int `yaml:"min_words"`
}

// Overlap returns the number of sentences repeated between consecutive chunks.
func (c ChunkerConfig) Overlap() int { return intOr(c.OverlapSentences, defaultOverlapSentences) }

// MinChunkWords returns the chunker's short-chunk threshold.
func (c ChunkerConfig) MinChunkWords() int { return intOr(c.MinWords, defaultChunkMinWords) }

// IndexerConfig configures the index build stage.
type IndexerConfig struct {
	// MinWords drops degenerate chunks before embedding; 0 disables the filter.
	MinWords *int `yaml:"min_words"`
}

// MinChunkWords returns the indexer's short-chunk threshold.
func (c IndexerConfig) MinChunkWords() int { return intOr(c.MinWords, defaultIndexMinWords) }

const (
	defaultOverlapSentences = 1
	defaultChunkMinWords    = 20
	defaultIndexMinWords    = 10
)

// Int returns a pointer to v, for setting optional fields.
func Int(v int) *int { return &v }

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// ONNXEmbedderConfig points at a sentence-transformers ONNX export and its tokenizer.
type ONNXEmbedderConfig struct {
	ModelPath      string `yaml:"model_path"`
	TokenizerPath  string `yaml:"tokenizer_path"`
	SharedLibrary  string `yaml:"shared_library"`
	Dimension      int    `yaml:"dimension"`
	MaxBatchTokens int    `yaml:"max_batch_tokens"`
}

// GeminiEmbedderConfig configures Google embeddings.
type GeminiEmbedderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// HashEmbedderConfig configures the offline hashed bag-of-words embedder.
type HashEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	ONNX   *ONNXEmbedderConfig   `yaml:"onnx,omitempty"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Gemini *GeminiEmbedderConfig `yaml:"gemini,omitempty"`
	Hash   *HashEmbedderConfig   `yaml:"hash,omitempty"`
}

// VectorStoreConfig selects and configures the vector index implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AnswererConfig holds the retrieval gates and the answer strategy.
type AnswererConfig struct {
	Strategy         string  `yaml:"strategy"`
	MinQuestionWords int     `yaml:"min_question_words"`
	MaxDistance      float64 `yaml:"max_distance"`
	MinOverlap       int     `yaml:"min_overlap"`
	Humanize         bool    `yaml:"humanize"`
}

// GeminiConfig configures the generative answer provider.
type GeminiConfig struct {
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	Temperature       float32 `yaml:"temperature"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerMinute int     `yaml:"requests_per_minute"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Paths       PathsConfig       `yaml:"paths"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Indexer     IndexerConfig     `yaml:"indexer"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Answerer    AnswererConfig    `yaml:"answerer"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/lecturetutor/config.yaml.
// If neither exists, it writes defaults to ~/.config/lecturetutor/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lecturetutor", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	p := &cfg.Paths
	if p.Audio == "" {
		p.Audio = filepath.Join("data", "audio", "lecture.mp3")
	}
	if p.Transcript == "" {
		p.Transcript = filepath.Join("data", "transcripts", "lecture.txt")
	}
	if p.Chunks == "" {
		p.Chunks = filepath.Join("data", "transcripts", "chunks.txt")
	}
	if p.ChunkStore == "" {
		p.ChunkStore = filepath.Join("data", "vectors", "chunks_store.txt")
	}
	if p.Index == "" {
		p.Index = filepath.Join("data", "vectors", "index.flat")
	}
	if p.Log == "" {
		p.Log = filepath.Join("data", "lecturetutor.log")
	}

	if cfg.Transcriber.Type == "" {
		cfg.Transcriber.Type = "faster-whisper"
	}
	switch cfg.Transcriber.Type {
	case "faster-whisper":
		if cfg.Transcriber.FasterWhisper == nil {
			cfg.Transcriber.FasterWhisper = &FasterWhisperConfig{}
		}
		fw := cfg.Transcriber.FasterWhisper
		if fw.Model == "" {
			fw.Model = "base"
		}
		if fw.Device == "" {
			fw.Device = "auto"
		}
		if fw.ComputeType == "" {
			fw.ComputeType = "int8"
		}
		if fw.Python == "" {
			fw.Python = "python3"
		}
	case "openai":
		if cfg.Transcriber.OpenAI == nil {
			cfg.Transcriber.OpenAI = &OpenAITranscriberConfig{}
		}
		o := cfg.Transcriber.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "whisper-1"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 3600
		}
	}

	if cfg.Chunker.WordLimit == 0 {
		cfg.Chunker.WordLimit = 70
	}
	if cfg.Chunker.OverlapSentences == nil {
		cfg.Chunker.OverlapSentences = Int(defaultOverlapSentences)
	}
	if cfg.Chunker.MinWords == nil {
		cfg.Chunker.MinWords = Int(defaultChunkMinWords)
	}
	if cfg.Indexer.MinWords == nil {
		cfg.Indexer.MinWords = Int(defaultIndexMinWords)
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "onnx"
	}
	switch cfg.Embedder.Type {
	case "onnx":
		if cfg.Embedder.ONNX == nil {
			cfg.Embedder.ONNX = &ONNXEmbedderConfig{}
		}
		o := cfg.Embedder.ONNX
		if o.ModelPath == "" {
			o.ModelPath = filepath.Join("models", "all-MiniLM-L6-v2", "model.onnx")
		}
		if o.TokenizerPath == "" {
			o.TokenizerPath = filepath.Join("models", "all-MiniLM-L6-v2", "tokenizer.json")
		}
		if o.Dimension == 0 {
			o.Dimension = 384
		}
		if o.MaxBatchTokens == 0 {
			o.MaxBatchTokens = 6000
		}
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 32
		}
	case "gemini":
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiEmbedderConfig{}
		}
		g := cfg.Embedder.Gemini
		if g.APIKeyEnv == "" {
			g.APIKeyEnv = "GOOGLE_API_KEY"
		}
		if g.Model == "" {
			g.Model = "text-embedding-004"
		}
	case "hash":
		if cfg.Embedder.Hash == nil {
			cfg.Embedder.Hash = &HashEmbedderConfig{}
		}
		if cfg.Embedder.Hash.Dimension == 0 {
			cfg.Embedder.Hash.Dimension = 512
		}
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "flat"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.Collection == "" {
			q.Collection = "lecture"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}

	a := &cfg.Answerer
	if a.Strategy == "" {
		a.Strategy = "extractive"
	}
	if a.MinQuestionWords == 0 {
		a.MinQuestionWords = 3
	}
	if a.MaxDistance == 0 {
		a.MaxDistance = 1.2
	}
	if a.MinOverlap == 0 {
		a.MinOverlap = 2
	}

	g := &cfg.Gemini
	if g.APIKeyEnv == "" {
		g.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if g.Model == "" {
		g.Model = "gemini-flash-latest"
	}
	if g.TimeoutSecs == 0 {
		g.TimeoutSecs = 60
	}
	if g.RequestsPerMinute == 0 {
		g.RequestsPerMinute = 10
	}

	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
