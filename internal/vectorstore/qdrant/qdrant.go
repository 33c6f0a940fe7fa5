package qdrant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lecturetutor/internal/domain"
)

// Storage is a minimal REST client to Qdrant using Euclid distance.
// Point ids are row positions, so the chunk store stays aligned by position.
type Storage struct {
	mu         sync.Mutex
	url        string
	apiKey     string
	collection string
	dimension  int
	count      int
	client     *http.Client
}

var _ domain.VectorIndex = (*Storage)(nil)

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// marker is written by Save so the rest of the pipeline can treat the collection as a file artifact.
type marker struct {
	URL        string `json:"url"`
	Collection string `json:"collection"`
	Dimension  int    `json:"dimension"`
	Count      int    `json:"count"`
}

func newStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Create drops any existing collection and creates an empty one of the given dimension.
func Create(cfg Config, dimension int) (*Storage, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	s := newStorage(cfg)
	s.dimension = dimension
	if err := s.do(http.MethodDelete, s.collectionURL(), nil, nil, http.StatusNotFound); err != nil {
		return nil, err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Euclid",
		},
	}
	if err := s.do(http.MethodPut, s.collectionURL(), body, nil); err != nil {
		return nil, err
	}
	return s, nil
}

// Open attaches to the collection described by a marker file written by Save.
func Open(cfg Config, markerPath string) (*Storage, error) {
	data, err := os.ReadFile(markerPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("index not found: %s: %w", markerPath, domain.ErrMissingInput)
		}
		return nil, err
	}
	var m marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", markerPath, domain.ErrCorruptIndex, err)
	}
	if cfg.Collection == "" {
		cfg.Collection = m.Collection
	}
	if cfg.URL == "" {
		cfg.URL = m.URL
	}
	s := newStorage(cfg)
	s.dimension = m.Dimension

	var info struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	if err := s.do(http.MethodGet, s.collectionURL(), nil, &info); err != nil {
		return nil, err
	}
	s.count = info.Result.PointsCount
	if s.count != m.Count {
		return nil, fmt.Errorf("collection %s has %d points, marker says %d: %w", s.collection, s.count, m.Count, domain.ErrCorruptIndex)
	}
	return s, nil
}

func (s *Storage) Dimension() int { return s.dimension }

func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Storage) Add(vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	points := make([]map[string]any, len(vectors))
	for i, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		points[i] = map[string]any{
			"id":      s.count + i,
			"vector":  v,
			"payload": map[string]any{"position": s.count + i},
		}
	}
	body := map[string]any{"points": points}
	if err := s.do(http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil); err != nil {
		return err
	}
	s.count += len(vectors)
	return nil
}

// Search returns squared Euclidean distances so thresholds match the flat index.
func (s *Storage) Search(vector []float32, k int) ([]domain.Hit, error) {
	if k <= 0 {
		k = 1
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      int            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	hits := make([]domain.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		pos := r.ID
		if v, ok := r.Payload["position"].(float64); ok {
			pos = int(v)
		}
		hits = append(hits, domain.Hit{Position: pos, Distance: float32(r.Score * r.Score)})
	}
	return hits, nil
}

// Save records the collection coordinates in a marker file at path.
func (s *Storage) Save(path string) error {
	s.mu.Lock()
	m := marker{URL: s.url, Collection: s.collection, Dimension: s.dimension, Count: s.count}
	s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

func (s *Storage) do(method, url string, body, out any, okStatus ...int) error {
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	for _, code := range okStatus {
		if resp.StatusCode == code {
			return nil
		}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
