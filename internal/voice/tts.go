package voice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"fourall/internal/config"
	"fourall/internal/storage"
)

// maxTTSChars is the longest text the translate endpoint accepts in one request
const maxTTSChars = 200

// TTSService turns text into MP3 speech and caches the result in storage
type TTSService struct {
	endpoint string
	client   *http.Client
	store    storage.Storage
	logger   *zap.Logger
	inflight singleflight.Group
}

// NewTTSService creates a TTS service backed by the configured endpoint
func NewTTSService(cfg config.TTS, store storage.Storage, logger *zap.Logger) *TTSService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TTSService{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
		store:    store,
		logger:   logger,
	}
}

// AudioKey is the storage key of the clip for text spoken in lang at rate
func AudioKey(text, lang string, rate float64) string {
	sum := sha256.Sum256([]byte(lang + "|" + strconv.FormatFloat(rate, 'f', 2, 64) + "|" + text))
	return hex.EncodeToString(sum[:16]) + ".mp3"
}

// Synthesize returns the storage key of the spoken text, generating it on a cache miss.
// Concurrent requests for the same clip share one generation.
func (s *TTSService) Synthesize(ctx context.Context, text, lang string, rate float64) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("nothing to say")
	}
	if len([]rune(text)) > maxTTSChars {
		text = string([]rune(text)[:maxTTSChars])
	}

	key := AudioKey(text, lang, rate)
	_, err, _ := s.inflight.Do(key, func() (any, error) {
		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, nil
		}
		return nil, s.generate(ctx, key, text, lang, rate)
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate audio: %w", err)
	}
	return key, nil
}

// Open returns the stored clip
func (s *TTSService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.store.Download(ctx, key)
}

// Delete removes a stored clip
func (s *TTSService) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}

func (s *TTSService) generate(ctx context.Context, key, text, lang string, rate float64) error {
	tl, _, _ := strings.Cut(lang, "-")

	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", strings.ToLower(tl))
	params.Set("client", "tw-ob")
	params.Set("textlen", strconv.Itoa(len(text)))
	params.Set("ttsspeed", strconv.FormatFloat(rate, 'f', 2, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// The endpoint rejects requests without a browser user agent
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := s.store.Upload(ctx, key, resp.Body); err != nil {
		return fmt.Errorf("failed to store audio: %w", err)
	}
	s.logger.Debug("speech generated", zap.String("key", key), zap.String("lang", lang))
	return nil
}
