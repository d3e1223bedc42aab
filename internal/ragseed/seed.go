// Package ragseed populates the knowledge base behind the retriever.
//
// It bundles a static AMPS and bond-RFQ corpus so a fresh deployment can
// answer domain questions before any external ingestion has run, and it
// loads YAML corpus files for everything else. Point ids are content
// hashes, so re-seeding the same corpus converges instead of duplicating.
package ragseed

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
	"github.com/gabriel-vasile/mimetype"
	"gopkg.in/yaml.v3"
)

// seedBatchSize bounds how many chunks are embedded per retriever call.
const seedBatchSize = 16

type corpusYAML struct {
	Docs  []corpusDoc `yaml:"docs"`
	Texts []string    `yaml:"texts"`
}

type corpusDoc struct {
	Source string `yaml:"source"`
	Text   string `yaml:"text"`
}

// SeedDefault ingests the bundled corpus through the retriever. Safe to run
// on every startup.
func SeedDefault(ctx domain.Context, retr domain.Retriever) error {
	var texts []string
	var metas []map[string]string
	for _, doc := range defaultCorpus {
		for _, chunk := range ChunkMarkdown(doc.Text) {
			texts = append(texts, chunk)
			metas = append(metas, map[string]string{"source": doc.Source})
		}
	}
	texts, metas = dedupe(texts, metas)
	return upsertAll(ctx, retr, texts, metas)
}

// SeedFile ingests a single YAML corpus file. The file either carries a
// docs list ({source, text} entries), a texts list, or is a plain YAML list
// of strings. Entries without a source fall back to the file's base name.
func SeedFile(ctx domain.Context, retr domain.Retriever, path string) error {
	abs, err := resolvePath(path)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("seed file not found: %s", path)
		}
		return err
	}
	if mt := mimetype.Detect(b); !strings.HasPrefix(mt.String(), "text/") {
		return fmt.Errorf("%w: %s is %s, want a text corpus", domain.ErrInvalidArgument, path, mt.String())
	}

	var doc corpusYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		// Fallback: try simple list of strings
		var ls []string
		if err2 := yaml.Unmarshal(b, &ls); err2 != nil {
			return fmt.Errorf("yaml parse: %w", err)
		}
		doc.Texts = ls
	}

	fallbackSource := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	var texts []string
	var metas []map[string]string
	add := func(source, text string) {
		if source == "" {
			source = fallbackSource
		}
		for _, chunk := range ChunkMarkdown(text) {
			texts = append(texts, chunk)
			metas = append(metas, map[string]string{"source": source})
		}
	}
	for _, d := range doc.Docs {
		add(d.Source, d.Text)
	}
	for _, t := range doc.Texts {
		add("", t)
	}
	texts, metas = dedupe(texts, metas)
	if len(texts) == 0 {
		return fmt.Errorf("no texts to seed in %s", path)
	}
	return upsertAll(ctx, retr, texts, metas)
}

// resolvePath mitigates file inclusion issues by constraining seed files to
// the current working directory.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)
	wd = filepath.Clean(wd)
	if os.Getenv("RAGSEED_ALLOW_ABSPATHS") != "1" {
		if !strings.HasPrefix(abs, wd+string(os.PathSeparator)) && abs != wd {
			return "", fmt.Errorf("disallowed path: %s", abs)
		}
	}
	return abs, nil
}

// dedupe drops repeated chunk texts, keeping the first occurrence and its
// metadata.
func dedupe(texts []string, metas []map[string]string) ([]string, []map[string]string) {
	seen := make(map[string]struct{}, len(texts))
	outTexts := texts[:0]
	outMetas := metas[:0]
	for i, t := range texts {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		outTexts = append(outTexts, t)
		outMetas = append(outMetas, metas[i])
	}
	return outTexts, outMetas
}

// upsertAll pushes chunks through the retriever in batches. Embedding
// providers rate-limit bulk ingestion, so each batch retries with
// exponential backoff before the seed run as a whole is failed.
func upsertAll(ctx domain.Context, retr domain.Retriever, texts []string, metas []map[string]string) error {
	for i := 0; i < len(texts); i += seedBatchSize {
		end := i + seedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batchTexts := texts[i:end]
		batchMetas := metas[i:end]
		op := func() error {
			err := retr.AddTexts(ctx, batchTexts, batchMetas)
			if errors.Is(err, domain.ErrInvalidArgument) {
				return backoff.Permanent(err)
			}
			return err
		}
		expo := backoff.NewExponentialBackOff()
		expo.InitialInterval = 200 * time.Millisecond
		expo.MaxInterval = 2 * time.Second
		expo.MaxElapsedTime = 15 * time.Second
		if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
			return fmt.Errorf("upsert batch at %d: %w", i, err)
		}
	}
	return nil
}
