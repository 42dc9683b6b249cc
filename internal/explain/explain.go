// Package explain answers the "explain selection" action. No model is
// called: the selection is echoed together with the syntax nodes that
// enclose it.
package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/code-explorer/backend/internal/models"
	"github.com/rs/zerolog"
	sitter "github.com/smacker/go-tree-sitter"
)

// PlaceholderMessage accompanies every explanation.
const PlaceholderMessage = "Explanations are not available yet. The selection and its enclosing code structure are shown instead."

// ErrEmptySelection is returned when nothing is selected.
var ErrEmptySelection = errors.New("selection is empty")

// Explainer builds placeholder explanations.
type Explainer struct {
	parser *sitter.Parser
	mu     sync.Mutex
	log    zerolog.Logger
}

// New creates an Explainer.
func New(log zerolog.Logger) *Explainer {
	return &Explainer{
		parser: sitter.NewParser(),
		log:    log,
	}
}

// Close releases the parser.
func (e *Explainer) Close() {
	e.parser.Close()
}

// Explain echoes selection and, when it occurs in the record and the
// language has a grammar, lists the enclosing named nodes (innermost last).
func (e *Explainer) Explain(ctx context.Context, record models.FileRecord, selection string) (models.Explanation, error) {
	if strings.TrimSpace(selection) == "" {
		return models.Explanation{}, ErrEmptySelection
	}

	out := models.Explanation{
		Selection: selection,
		Language:  record.Language,
		Lines:     strings.Count(selection, "\n") + 1,
		Context:   []models.SyntaxNode{},
		Message:   PlaceholderMessage,
	}

	offset := strings.Index(record.Content, selection)
	if offset < 0 {
		return out, nil
	}
	out.Found = true

	lang := grammarFor(record.Language)
	if lang == nil {
		return out, nil
	}

	nodes, err := e.enclosing(ctx, lang, []byte(record.Content), uint32(offset), uint32(offset+len(selection)))
	if err != nil {
		return models.Explanation{}, err
	}
	out.Context = nodes

	e.log.Debug().
		Str("file", record.Name).
		Str("language", record.Language).
		Int("nodes", len(nodes)).
		Msg("explained selection")
	return out, nil
}

func (e *Explainer) enclosing(ctx context.Context, lang *sitter.Language, content []byte, start, end uint32) ([]models.SyntaxNode, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.parser.SetLanguage(lang)
	tree, err := e.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing content: %w", err)
	}
	defer tree.Close()

	var chain []models.SyntaxNode
	node := tree.RootNode()
	for {
		next := spanningChild(node, start, end)
		if next == nil {
			return chain, nil
		}
		chain = append(chain, models.SyntaxNode{
			Type:      next.Type(),
			StartLine: int(next.StartPoint().Row) + 1,
			EndLine:   int(next.EndPoint().Row) + 1,
		})
		node = next
	}
}

// spanningChild returns the named child of node covering [start, end).
func spanningChild(node *sitter.Node, start, end uint32) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		if child.StartByte() <= start && end <= child.EndByte() {
			return child
		}
	}
	return nil
}
