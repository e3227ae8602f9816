package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// DirProvider reads the files directly inside Dir whose extension is in
// Extensions (empty means every file). Subdirectories are not descended.
type DirProvider struct {
	Dir        string
	Extensions []string
	OnSkip     SkipFunc

	enc    encoding.Encoding
	logger *slog.Logger
}

// NewDirProvider resolves the named text encoding ("utf-8", "gbk",
// "gb18030" or "big5").
func NewDirProvider(dir string, extensions []string, encodingName string) (*DirProvider, error) {
	enc, err := LookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &DirProvider{
		Dir:        dir,
		Extensions: extensions,
		enc:        enc,
		logger:     slog.Default().With("component", "corpus-dir", "dir", dir),
	}, nil
}

// LookupEncoding maps a configured encoding name to its decoder. UTF-8
// input has a leading BOM stripped and invalid sequences replaced with
// U+FFFD.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "gbk", "cp936":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	case "big5":
		return traditionalchinese.Big5, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 0, "unsupported corpus encoding %q", name)
	}
}

// Load reads every matching file. Files that cannot be read or decoded are
// logged, reported to OnSkip and left out.
func (p *DirProvider) Load(ctx context.Context) (Corpus, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory %s: %w: %w", p.Dir, apperrors.ErrCorpusUnavailable, err)
	}

	docs := make(Corpus, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !MatchExtension(entry.Name(), p.Extensions) {
			continue
		}
		text, err := p.readFile(filepath.Join(p.Dir, entry.Name()))
		if err != nil {
			p.logger.Warn("skipping unreadable document", "file", entry.Name(), "error", err)
			if p.OnSkip != nil {
				p.OnSkip(entry.Name(), err)
			}
			continue
		}
		docs[entry.Name()] = text
	}
	p.logger.Debug("corpus loaded", "documents", len(docs))
	return docs, nil
}

func (p *DirProvider) readFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	decoded, err := p.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return strings.ToValidUTF8(string(decoded), "\uFFFD"), nil
}

// MatchExtension reports whether name has one of extensions, compared
// case-insensitively with or without the leading dot.
func MatchExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// IDs returns the corpus ids in ascending order.
func (c Corpus) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
