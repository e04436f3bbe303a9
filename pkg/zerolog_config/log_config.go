package zerolog_config

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.elastic.co/ecszerolog"
)

var appPrefix = "labmerge"
var setAppPrefixOnce *sync.Once = &sync.Once{}
var startupLoggerOnce *sync.Once = &sync.Once{}

// ElasticsearchWriter sends each log line to an Elasticsearch index
type ElasticsearchWriter struct {
	URL    string
	Client *http.Client
}

func (ew ElasticsearchWriter) Write(p []byte) (n int, err error) {
	client := ew.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	resp, err := client.Post(ew.URL+"/_doc", "application/json", bytes.NewReader(p))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("elasticsearch returned %d", resp.StatusCode)
	}

	return len(p), nil
}

// ParseLevel maps a level name onto zerolog, defaulting to info
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

// NewLogger builds the application logger. Console output always goes to
// out; ECS documents are also shipped when elasticsearchURL is set.
func NewLogger(out io.Writer, elasticsearchURL, index string) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}

	if elasticsearchURL == "" {
		return zerolog.New(console).With().Str("app", appPrefix).Timestamp().Logger()
	}

	ecsLogger := ecszerolog.New(&ElasticsearchWriter{
		URL: strings.TrimRight(elasticsearchURL, "/") + "/" + index,
	})

	multi := zerolog.MultiLevelWriter(ecsLogger, console)
	return zerolog.New(multi).With().Str("app", appPrefix).Timestamp().Logger()
}

// SetAppPrefix sets the app field attached to every log line
func SetAppPrefix(prefix string) {
	setAppPrefixOnce.Do(func() {
		appPrefix = prefix
	})
}

// StartupWithEnv installs the global logger. index names the Elasticsearch
// index used when elasticsearchURL is set. Run SetAppPrefix first.
func StartupWithEnv(elasticsearchURL, index, level string) error {
	if index == "" {
		return fmt.Errorf("index is required")
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	startupLoggerOnce.Do(func() {
		zerolog.SetGlobalLevel(lvl)
		log.Logger = NewLogger(os.Stderr, elasticsearchURL, index)
	})
	return nil
}
