package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/edustack/tutorchat/src/cache"
)

// CachedLLM wraps an Agent and caches answers in memory for the lifetime of
// the process. Nothing is written to disk; the transcript contract says all
// state is discarded on restart.
type CachedLLM struct {
	Agent Agent
	Cache *cache.LRUCache
}

func NewCachedLLM(agent Agent, size int, ttl time.Duration) *CachedLLM {
	return &CachedLLM{Agent: agent, Cache: cache.NewLRUCache(size, ttl)}
}

// Generate checks the cache before calling the underlying agent.
func (c *CachedLLM) Generate(ctx context.Context, prompt string) (any, error) {
	key := cache.HashKey(prompt)
	if val, ok := c.Cache.Get(key); ok {
		return val, nil
	}

	res, err := c.Agent.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	c.Cache.Set(key, res)
	return res, nil
}

// GenerateWithFiles keys the cache on the prompt and every attachment.
func (c *CachedLLM) GenerateWithFiles(ctx context.Context, prompt string, files []File) (any, error) {
	h := sha256.New()
	h.Write([]byte(prompt))
	for _, f := range files {
		h.Write([]byte(f.Name))
		h.Write([]byte(f.MIME))
		h.Write(f.Data)
	}
	key := hex.EncodeToString(h.Sum(nil))

	if val, ok := c.Cache.Get(key); ok {
		return val, nil
	}

	res, err := c.Agent.GenerateWithFiles(ctx, prompt, files)
	if err != nil {
		return nil, err
	}
	c.Cache.Set(key, res)
	return res, nil
}

// GenerateStream serves cached prompts as a single chunk, otherwise streams
// from the underlying agent and caches the full result when done.
func (c *CachedLLM) GenerateStream(ctx context.Context, prompt string) (<-chan StreamChunk, error) {
	key := cache.HashKey(prompt)
	if val, ok := c.Cache.Get(key); ok {
		return singleChunkStream(val, nil), nil
	}

	innerCh, err := c.Agent.GenerateStream(ctx, prompt)
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		for chunk := range innerCh {
			ch <- chunk
			if chunk.Done && chunk.FullText != "" && chunk.Err == nil {
				c.Cache.Set(key, chunk.FullText)
			}
		}
	}()

	return ch, nil
}

// TryCreateCachedLLM checks env vars and wraps the agent if caching is
// enabled.
func TryCreateCachedLLM(agent Agent) Agent {
	sizeStr := os.Getenv("TUTORCHAT_CACHE_SIZE")
	if sizeStr == "" {
		return agent
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size <= 0 {
		return agent
	}

	ttl := 300 * time.Second
	if ttlStr := os.Getenv("TUTORCHAT_CACHE_TTL"); ttlStr != "" {
		if sec, err := strconv.Atoi(ttlStr); err == nil && sec > 0 {
			ttl = time.Duration(sec) * time.Second
		}
	}

	return NewCachedLLM(agent, size, ttl)
}

var _ Agent = (*CachedLLM)(nil)
